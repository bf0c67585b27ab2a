package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserEstimateWins(t *testing.T) {
	e := New(5000)
	e.SetScanning(true)
	e.Observe(10)
	e.Observe(100000)
	assert.Equal(t, 5000, e.Estimate())
	e.Lock()
	assert.Equal(t, 5000, e.Estimate())
}

func TestScanningInflation(t *testing.T) {
	e := New(0)
	e.SetScanning(true)
	e.Observe(100)
	assert.Equal(t, 300, e.Estimate())

	e.SetScanning(false)
	assert.Equal(t, 120, e.Estimate())
}

func TestGrowthThreshold(t *testing.T) {
	e := New(0)
	e.SetScanning(true)
	e.Observe(100)
	got := e.Estimate()

	// 15% growth: below the 20% refit threshold, estimate holds.
	e.Observe(115)
	assert.Equal(t, got, e.Estimate())

	// 25% growth refits.
	e.Observe(125)
	assert.Equal(t, 375, e.Estimate())
}

func TestLockFreezes(t *testing.T) {
	e := New(0)
	e.SetScanning(true)
	e.Observe(200)
	e.Lock()

	assert.True(t, e.Locked())
	assert.Equal(t, 200, e.Estimate())

	// Late discovery noise is ignored once locked.
	e.Observe(900)
	assert.Equal(t, 200, e.Estimate())
}

func TestUnknownIsZero(t *testing.T) {
	e := New(0)
	assert.Equal(t, 0, e.Estimate())
}
