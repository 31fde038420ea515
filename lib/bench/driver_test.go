package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// fakeLoad records the lifecycle calls of the driver
type fakeLoad struct {
	calls   []string
	failOp  string // operation that fails
	failAt  int    // countA at which failOp fails
	ops     []string
	inTx    bool
	txCount int
}

func (f *fakeLoad) Name() string { return "fake" }

func (f *fakeLoad) log(call string) { f.calls = append(f.calls, call) }

func (f *fakeLoad) InitConnection(context.Context) error { f.log("connect"); return nil }
func (f *fakeLoad) CloseConnection() error                { f.log("disconnect"); return nil }
func (f *fakeLoad) CloseOperations() error                { f.log("closeOps"); return nil }
func (f *fakeLoad) ClearPersistenceContext() error        { f.log("clearCache"); return nil }
func (f *fakeLoad) ClearData(context.Context) error       { f.log("clearData"); return nil }

func (f *fakeLoad) InitOperations() ([]Operation, error) {
	f.log("initOps")
	ops := make([]Operation, len(f.ops))
	for i, name := range f.ops {
		name := name
		ops[i] = NewOperation(name, func(_ context.Context, countA, countB int) error {
			if !f.inTx {
				return errors.New("operation outside transaction")
			}
			f.log(fmt.Sprintf("%s(%d,%d)", name, countA, countB))
			if name == f.failOp && countA == f.failAt {
				return errors.New("verification failed")
			}
			return nil
		})
	}
	return ops, nil
}

func (f *fakeLoad) BeginTransaction() error {
	if f.inTx {
		return errors.New("nested transaction")
	}
	f.inTx = true
	f.txCount++
	return nil
}

func (f *fakeLoad) CommitTransaction() error {
	f.inTx = false
	return nil
}

func (f *fakeLoad) RollbackTransaction() error {
	f.log("rollback")
	f.inTx = false
	return nil
}

func TestRangeValues(t *testing.T) {
	tests := []struct {
		r    Range
		want []int
	}{
		{Range{1, 8, 2}, []int{1, 2, 4, 8}},
		{Range{3, 10, 3}, []int{3, 9}},
		{Range{5, 5, 0}, []int{5}},
		{Range{1, 1000, 10}, []int{1, 10, 100, 1000}},
		{Range{0, 10, 2}, nil},
	}
	for _, tt := range tests {
		if got := tt.r.Values(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%v: Expected %v, got %v", tt.r, tt.want, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	tests := map[string]func(c *Config){
		"start zero":     func(c *Config) { c.A.Start = 0 },
		"end below":      func(c *Config) { c.B.End = c.B.Start - 1 },
		"scale one":      func(c *Config) { c.A.End = c.A.Start * 4; c.A.Scale = 1 },
		"negative runs":  func(c *Config) { c.HotRuns = -1 },
		"no runs":        func(c *Config) { c.HotRuns, c.WarmupRuns = 0, 0 },
		"empty excluded": func(c *Config) { c.Exclude = []string{" "} },
	}
	for name, mutate := range tests {
		c := DefaultConfig()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Expected validation error", name)
		}
	}
}

func TestRunSchedule(t *testing.T) {
	load := &fakeLoad{ops: []string{"ins", "get", "del"}}
	cfg := Config{
		A:          Range{1, 2, 2},
		B:          Range{3, 3, 2},
		WarmupRuns: 1,
		HotRuns:    2,
		Exclude:    []string{"get"},
		ClearCache: true,
	}
	d := NewDriver(cfg, load)
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// runs * |A| * |B| * |ops|
	if len(res.Samples) != 3*2*1*2 {
		t.Fatalf("Expected 12 samples, got %d", len(res.Samples))
	}
	if load.txCount != len(res.Samples) {
		t.Errorf("Expected one transaction per sample, got %d", load.txCount)
	}
	if hot := res.Hot(); len(hot) != 8 {
		t.Errorf("Expected 8 hot samples, got %d", len(hot))
	}
	if !res.Samples[0].Warmup || res.Samples[4].Warmup {
		t.Errorf("Expected only the first run to be warmup")
	}
	if got := res.Ops["fake"]; !reflect.DeepEqual(got, []string{"ins", "del"}) {
		t.Errorf("Expected [ins del], got %v", got)
	}

	wantStart := []string{"connect", "initOps", "clearData", "clearCache", "ins(1,3)", "clearCache", "del(1,3)", "clearData"}
	if !reflect.DeepEqual(load.calls[:len(wantStart)], wantStart) {
		t.Errorf("Unexpected call order %v", load.calls[:len(wantStart)])
	}
	last := load.calls[len(load.calls)-2:]
	if !reflect.DeepEqual(last, []string{"closeOps", "disconnect"}) {
		t.Errorf("Expected operations and connection to be closed at the end, got %v", last)
	}

	var buf bytes.Buffer
	d.WriteMetrics(&buf)
	if !strings.Contains(buf.String(), `crund_operations_total{load="fake",op="ins"} 4`) {
		t.Errorf("Expected 4 hot ins operations in metrics, got:\n%s", buf.String())
	}
}

func TestRunRenewConnection(t *testing.T) {
	load := &fakeLoad{ops: []string{"op"}}
	cfg := Config{A: Range{1, 1, 0}, B: Range{1, 1, 0}, HotRuns: 3, RenewConnection: true}
	if _, err := NewDriver(cfg, load).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	connects := 0
	for _, c := range load.calls {
		if c == "connect" {
			connects++
		}
	}
	if connects != 3 {
		t.Errorf("Expected 3 connects, got %d", connects)
	}
}

func (f *fakeLoad) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestRunRenewOperations(t *testing.T) {
	load := &fakeLoad{ops: []string{"op"}}
	cfg := Config{A: Range{1, 2, 2}, B: Range{1, 1, 0}, WarmupRuns: 1, HotRuns: 2, RenewOperations: true}
	if _, err := NewDriver(cfg, load).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n := load.count("initOps"); n != 3 {
		t.Errorf("Expected operations to be created once per run (3), got %d", n)
	}
	if n := load.count("closeOps"); n != 3 {
		t.Errorf("Expected operations to be closed once per run (3), got %d", n)
	}
	if n := load.count("connect"); n != 1 {
		t.Errorf("Expected a single connect, got %d", n)
	}

	// every run starts with fresh operations: initOps follows closeOps
	want := []string{"connect", "initOps", "clearData", "op(1,1)", "clearData", "op(2,1)", "closeOps", "initOps"}
	if !reflect.DeepEqual(load.calls[:len(want)], want) {
		t.Errorf("Unexpected call order %v", load.calls[:len(want)])
	}
	if last := load.calls[len(load.calls)-2:]; !reflect.DeepEqual(last, []string{"closeOps", "disconnect"}) {
		t.Errorf("Expected the last run to close operations then the connection, got %v", last)
	}
}

func TestRunReusesOperations(t *testing.T) {
	load := &fakeLoad{ops: []string{"op"}}
	cfg := Config{A: Range{1, 1, 0}, B: Range{1, 1, 0}, HotRuns: 3}
	if _, err := NewDriver(cfg, load).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n := load.count("initOps"); n != 1 {
		t.Errorf("Expected operations to be created once, got %d", n)
	}
	if n := load.count("closeOps"); n != 1 {
		t.Errorf("Expected operations to be closed once, got %d", n)
	}
}

func TestRunFullGC(t *testing.T) {
	load := &fakeLoad{ops: []string{"ins", "del"}}
	cfg := Config{A: Range{1, 4, 2}, B: Range{1, 1, 0}, HotRuns: 2, FullGC: true}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	res, err := NewDriver(cfg, load).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	runtime.ReadMemStats(&after)

	// runs * |A| * |ops|
	if len(res.Samples) != 2*3*2 {
		t.Fatalf("Expected 12 samples, got %d", len(res.Samples))
	}
	if gcs := after.NumGC - before.NumGC; gcs < uint32(len(res.Samples)) {
		t.Errorf("Expected at least one GC per measurement (%d), got %d", len(res.Samples), gcs)
	}
}

func TestRunAbortsOnError(t *testing.T) {
	load := &fakeLoad{ops: []string{"ins", "verify", "del"}, failOp: "verify", failAt: 2}
	cfg := Config{A: Range{1, 4, 2}, B: Range{1, 1, 0}, HotRuns: 2}
	res, err := NewDriver(cfg, load).Run(context.Background())

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Expected *OpError, got %v", err)
	}
	if opErr.Op != "verify" || opErr.CountA != 2 {
		t.Errorf("Expected failure in verify at nA=2, got %+v", opErr)
	}
	// ins(1), verify(1), del(1), ins(2)
	if len(res.Samples) != 4 {
		t.Errorf("Expected 4 samples before the failure, got %d", len(res.Samples))
	}
	if load.inTx {
		t.Errorf("Expected transaction to be rolled back")
	}
	for _, c := range load.calls {
		if c == "del(2,1)" || c == "ins(4,1)" {
			t.Errorf("Expected run to abort, but %s was executed", c)
		}
	}
	if last := load.calls[len(load.calls)-1]; last != "disconnect" {
		t.Errorf("Expected connection to be closed, got %s", last)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	load := &fakeLoad{ops: []string{"op"}}
	cfg := Config{A: Range{1, 1, 0}, B: Range{1, 1, 0}, HotRuns: 1}
	if _, err := NewDriver(cfg, load).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
