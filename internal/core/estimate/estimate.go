package estimate

import "sync"

// Estimator maintains a running estimate of total collection size for the
// sampler. While unlocked it tracks discovery; once a scan completes
// naturally it locks, so late stragglers cannot re-trigger sampler churn.
type Estimator struct {
	mu sync.Mutex

	userEstimate int
	locked       bool
	scanning     bool

	discovered    int
	baseAtLastFit int
	estimate      int
}

// New returns an estimator. A positive userEstimate always wins and is
// never adjusted.
func New(userEstimate int) *Estimator {
	return &Estimator{userEstimate: userEstimate}
}

// SetScanning flips the activity hint: an active scan inflates the
// estimate (assume more is coming), idle keeps only a small margin.
func (e *Estimator) SetScanning(active bool) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.scanning = active
	e.mu.Unlock()
}

// Observe records the discovered-so-far count. The estimate is recomputed
// only when the count grew more than 20% since the last fit.
func (e *Estimator) Observe(discovered int) {
	if e == nil || discovered < 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.discovered = discovered
	if e.locked || e.userEstimate > 0 {
		return
	}
	if e.baseAtLastFit > 0 && float64(discovered) <= float64(e.baseAtLastFit)*1.2 {
		return
	}
	e.baseAtLastFit = discovered
	e.estimate = e.inflated(discovered)
}

// Lock freezes the estimate after a naturally completed scan. The final
// discovered count becomes the estimate; no inflation applies to a tree
// that has been walked to the end.
func (e *Estimator) Lock() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if !e.locked && e.userEstimate <= 0 && e.discovered > 0 {
		e.estimate = e.discovered
	}
	e.locked = true
	e.scanning = false
	e.mu.Unlock()
}

func (e *Estimator) Locked() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// Estimate returns the current best total-size guess, 0 when nothing is
// known yet.
func (e *Estimator) Estimate() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.userEstimate > 0 {
		return e.userEstimate
	}
	if e.locked {
		return e.estimate
	}
	if e.estimate <= 0 {
		return e.inflated(e.discovered)
	}
	// Re-apply the activity factor so pausing a scan deflates without a
	// new fit.
	return withFactor(e.baseAtLastFit, e.scanning)
}

func (e *Estimator) inflated(discovered int) int {
	return withFactor(discovered, e.scanning)
}

func withFactor(n int, scanning bool) int {
	if n <= 0 {
		return 0
	}
	if scanning {
		return n * 3
	}
	return int(float64(n) * 1.2)
}
