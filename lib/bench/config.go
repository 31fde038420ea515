package bench

import (
	"errors"
	"fmt"
	"strings"
)

// Range is a geometric progression of scale values: Start, Start*Scale, ... while <= End
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Scale int `json:"scale"`
}

// Values returns the values of the range in ascending order
func (r Range) Values() []int {
	if r.Start < 1 || r.End < r.Start {
		return nil
	}
	if r.Start == r.End || r.Scale < 2 {
		return []int{r.Start}
	}
	var values []int
	for v := r.Start; v <= r.End; v *= r.Scale {
		values = append(values, v)
		if v > r.End/r.Scale { // next step would overflow or exceed End
			break
		}
	}
	return values
}

func (r Range) validate(name string) error {
	if r.Start < 1 {
		return fmt.Errorf("%s start must be >= 1, got %d", name, r.Start)
	}
	if r.End < r.Start {
		return fmt.Errorf("%s end (%d) must be >= start (%d)", name, r.End, r.Start)
	}
	if r.Start != r.End && r.Scale < 2 {
		return fmt.Errorf("%s scale must be >= 2, got %d", name, r.Scale)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d (x%d)", r.Start, r.End, r.Scale)
}

// Config controls the run loop of the Driver
type Config struct {
	A Range `json:"a"` // countA, the number of A entities (or lock keys)
	B Range `json:"b"` // countB, the number of B entities (or lock vector size)

	WarmupRuns int `json:"warmup_runs"` // runs whose samples are not reported
	HotRuns    int `json:"hot_runs"`    // measured runs

	Include []string `json:"include,omitempty"` // operations to run, empty = all
	Exclude []string `json:"exclude,omitempty"` // operations to skip

	RenewConnection bool `json:"renew_connection"` // reconnect the load for every run
	RenewOperations bool `json:"renew_operations"` // re-create the operations for every run
	ClearCache      bool `json:"clear_cache"`      // clear the persistence context before every operation
	FullGC          bool `json:"full_gc"`          // force a GC before every measurement
}

// DefaultConfig returns the settings of a small run
func DefaultConfig() Config {
	return Config{
		A:          Range{Start: 256, End: 256, Scale: 2},
		B:          Range{Start: 256, End: 256, Scale: 2},
		WarmupRuns: 1,
		HotRuns:    3,
		ClearCache: true,
	}
}

// Runs returns the total number of runs
func (c Config) Runs() int {
	return c.WarmupRuns + c.HotRuns
}

// Validate checks the ranges, the run counts and the operation filters
func (c Config) Validate() error {
	if err := c.A.validate("A"); err != nil {
		return err
	}
	if err := c.B.validate("B"); err != nil {
		return err
	}
	if c.WarmupRuns < 0 || c.HotRuns < 0 {
		return errors.New("run counts must not be negative")
	}
	if c.Runs() < 1 {
		return errors.New("at least one warmup or hot run is required")
	}
	for _, name := range append(append([]string{}, c.Include...), c.Exclude...) {
		if strings.TrimSpace(name) == "" {
			return errors.New("operation names in include/exclude must not be empty")
		}
	}
	return nil
}

// selected reports whether an operation passes the include and exclude filters
func (c Config) selected(name string) bool {
	for _, ex := range c.Exclude {
		if ex == name {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, in := range c.Include {
		if in == name {
			return true
		}
	}
	return false
}
