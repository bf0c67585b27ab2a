package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	ModeRandom     = "random"
	ModeSequential = "sequential"

	BackendFilesystem = "filesystem"
	BackendIndexed    = "indexed"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// UnlimitedDepth disables the depth cap; 0 scans the root only.
const UnlimitedDepth = -1

type Config struct {
	RootPath string

	TargetQueueSize int

	// MaxScanDepth is nil for an unlimited walk, 0 for the root only and
	// N for root plus N levels.
	MaxScanDepth *int

	EstimatedTotalSize int

	PriorityPathPatterns   []string
	PriorityPathMultiplier float64

	Mode          string
	SortField     string
	SortDirection string

	DiscoveryBackend string
	MetadataBackend  string

	PriorityRecentFiles bool
	RecentWindowSeconds int

	RecentHistoryDepth int

	ScanTimeout time.Duration
}

// ScanDepth flattens MaxScanDepth for the scanner: UnlimitedDepth when
// unset, the configured level cap otherwise.
func (c *Config) ScanDepth() int {
	if c == nil || c.MaxScanDepth == nil {
		return UnlimitedDepth
	}
	return *c.MaxScanDepth
}

// Prepare normalizes and validates the configuration. Call once at
// construction; components trust a prepared Config afterwards.
func (c *Config) Prepare() error {
	c.normalize()

	if strings.TrimSpace(c.RootPath) == "" {
		return fmt.Errorf("root path is required")
	}
	if c.TargetQueueSize <= 0 {
		return fmt.Errorf("target queue size must be > 0")
	}
	if c.MaxScanDepth != nil && *c.MaxScanDepth < 0 {
		return fmt.Errorf("max scan depth must be >= 0")
	}
	switch c.Mode {
	case ModeRandom, ModeSequential:
	default:
		return fmt.Errorf("invalid mode %q (expected: random|sequential)", c.Mode)
	}
	switch c.SortDirection {
	case DirectionAsc, DirectionDesc:
	default:
		return fmt.Errorf("invalid sort direction %q (expected: asc|desc)", c.SortDirection)
	}
	switch c.DiscoveryBackend {
	case BackendFilesystem, BackendIndexed:
	default:
		return fmt.Errorf("invalid discovery backend %q (expected: filesystem|indexed)", c.DiscoveryBackend)
	}
	switch c.MetadataBackend {
	case "", BackendFilesystem, BackendIndexed:
	default:
		return fmt.Errorf("invalid metadata backend %q (expected: filesystem|indexed)", c.MetadataBackend)
	}
	return nil
}

func (c *Config) normalize() {
	if c.TargetQueueSize == 0 {
		c.TargetQueueSize = 50
	}
	if c.PriorityPathMultiplier <= 0 {
		c.PriorityPathMultiplier = 3.0
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeRandom
	}
	c.SortField = strings.TrimSpace(c.SortField)
	if c.SortField == "" {
		c.SortField = "mtime"
	}
	c.SortDirection = strings.ToLower(strings.TrimSpace(c.SortDirection))
	if c.SortDirection == "" {
		c.SortDirection = DirectionDesc
	}
	c.DiscoveryBackend = strings.ToLower(strings.TrimSpace(c.DiscoveryBackend))
	if c.DiscoveryBackend == "" {
		c.DiscoveryBackend = BackendFilesystem
	}
	c.MetadataBackend = strings.ToLower(strings.TrimSpace(c.MetadataBackend))
	if c.RecentWindowSeconds <= 0 {
		c.RecentWindowSeconds = 7 * 24 * 3600
	}
	if c.RecentHistoryDepth <= 0 {
		c.RecentHistoryDepth = 10
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 180 * time.Second
	}
}
