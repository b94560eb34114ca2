package breadcrumb

import (
	"fmt"
	"time"
)

// HardMaxPoints is the absolute maximum path capacity the recorder supports,
// regardless of configuration.
const HardMaxPoints = 500

// Default tuning values. Points are roughly 24 bytes each, so the default
// path costs a few kilobytes; higher capacities improve pruning at the cost
// of memory and cleanup CPU.
const (
	DefaultAccuracy           = 2.0 // meters between stored points
	DefaultMaxPoints          = 150
	DefaultBadPositionTimeout = 15 * time.Second
	DefaultCleanupStartMargin = 10
	DefaultCleanupMinPoints   = 10
	DefaultSimplifyBudget     = 200 * time.Microsecond
	DefaultPruneBudget        = 300 * time.Microsecond
)

// Config holds the tuning parameters for a Recorder. Use DefaultConfig and
// override fields as needed; New validates before building any state.
type Config struct {
	// Accuracy is the minimum spacing between stored points, in meters.
	// Must be positive.
	Accuracy float64

	// MaxPoints is the path capacity. Must be in [1, HardMaxPoints].
	MaxPoints int

	// BadPositionTimeout deactivates the recorder if no valid position
	// arrives for this long while active.
	BadPositionTimeout time.Duration

	// CleanupStartMargin is the number of free slots left in the path at
	// which routine cleanup starts running before appends.
	CleanupStartMargin int

	// CleanupMinPoints is the minimum number of points a routine cleanup
	// must reclaim to be worth compacting for.
	CleanupMinPoints int

	// SimplifyBudget and PruneBudget bound the time one call to
	// AdvanceSimplification / AdvancePruning may spend before yielding.
	SimplifyBudget time.Duration
	PruneBudget    time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Accuracy:           DefaultAccuracy,
		MaxPoints:          DefaultMaxPoints,
		BadPositionTimeout: DefaultBadPositionTimeout,
		CleanupStartMargin: DefaultCleanupStartMargin,
		CleanupMinPoints:   DefaultCleanupMinPoints,
		SimplifyBudget:     DefaultSimplifyBudget,
		PruneBudget:        DefaultPruneBudget,
	}
}

// Validate checks the configuration. A zero MaxPoints or non-positive
// Accuracy means the feature is disabled by configuration and is reported
// as an error by New.
func (c Config) Validate() error {
	if c.Accuracy <= 0 {
		return fmt.Errorf("accuracy must be positive, got %v", c.Accuracy)
	}
	if c.MaxPoints <= 0 {
		return fmt.Errorf("max points must be positive, got %d", c.MaxPoints)
	}
	if c.MaxPoints > HardMaxPoints {
		return fmt.Errorf("max points %d exceeds hard maximum %d", c.MaxPoints, HardMaxPoints)
	}
	if c.BadPositionTimeout <= 0 {
		return fmt.Errorf("bad position timeout must be positive, got %v", c.BadPositionTimeout)
	}
	if c.CleanupStartMargin < 1 {
		return fmt.Errorf("cleanup start margin must be at least 1, got %d", c.CleanupStartMargin)
	}
	if c.CleanupMinPoints < 1 {
		return fmt.Errorf("cleanup min points must be at least 1, got %d", c.CleanupMinPoints)
	}
	if c.SimplifyBudget <= 0 || c.PruneBudget <= 0 {
		return fmt.Errorf("time budgets must be positive, got simplify=%v prune=%v", c.SimplifyBudget, c.PruneBudget)
	}
	return nil
}

// simplifyEpsilon is the RDP tolerance: points closer than this to the
// candidate line are dropped. Proportional to the point spacing.
func (c Config) simplifyEpsilon() float64 {
	return c.Accuracy * 0.5
}

// pruneDelta is the distance at which two path segments are considered
// close enough that nothing between them can hide an obstacle. Kept just
// under the point spacing.
func (c Config) pruneDelta() float64 {
	return c.Accuracy * 0.99
}

// simplifyStackCap sizes the RDP work stack. 2/3 of capacity plus one is a
// comfortable overestimate of the deepest split sequence.
func (c Config) simplifyStackCap() int {
	return c.MaxPoints*2/3 + 1
}

// loopBufferCap sizes the detected-loop buffer at a quarter of the path
// capacity.
func (c Config) loopBufferCap() int {
	n := c.MaxPoints / 4
	if n < 1 {
		n = 1
	}
	return n
}
