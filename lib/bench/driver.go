package bench

import (
	"context"
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"runtime"
	"time"
)

var log = logger.GetLogger("bench")

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// Sample is the measurement of one operation at one scale in one run
type Sample struct {
	Load      string        `json:"load"`
	Op        string        `json:"op"`
	Run       int           `json:"run"`
	Warmup    bool          `json:"warmup"`
	CountA    int           `json:"count_a"`
	CountB    int           `json:"count_b"`
	Duration  time.Duration `json:"duration_ns"`
	HeapDelta int64         `json:"heap_delta_bytes"`
}

// Results are all samples of a driver run in execution order
type Results struct {
	Config  Config              `json:"config"`
	Loads   []string            `json:"loads"`
	Ops     map[string][]string `json:"ops"` // load -> selected operations in execution order
	Samples []Sample            `json:"samples"`
}

// Hot returns the samples of the hot runs
func (r *Results) Hot() []Sample {
	hot := make([]Sample, 0, len(r.Samples))
	for _, s := range r.Samples {
		if !s.Warmup {
			hot = append(hot, s)
		}
	}
	return hot
}

// OpError is returned when a run aborts, it carries where the failure happened
type OpError struct {
	Load   string
	Op     string // empty if the failure was outside an operation
	CountA int
	CountB int
	Err    error
}

func (e *OpError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("load %s (nA=%d, nB=%d): %v", e.Load, e.CountA, e.CountB, e.Err)
	}
	return fmt.Sprintf("load %s, operation %s (nA=%d, nB=%d): %v", e.Load, e.Op, e.CountA, e.CountB, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Driver
// --------------------------------------------------------------------------

// Driver runs the operations of its loads over the cross product of the A and B ranges.
//
// Thread-safety: The driver is single threaded, Run must not be called concurrently.
type Driver struct {
	cfg     Config
	loads   []ILoad
	metrics *metrics.Set
}

// NewDriver creates a driver, cfg is validated by Run
func NewDriver(cfg Config, loads ...ILoad) *Driver {
	return &Driver{
		cfg:     cfg,
		loads:   loads,
		metrics: metrics.NewSet(),
	}
}

// WriteMetrics writes the duration histograms and counters in Prometheus text format
func (d *Driver) WriteMetrics(w io.Writer) {
	d.metrics.WritePrometheus(w)
}

// Run executes all loads one after another. Any error aborts the whole run,
// the results collected so far are returned with the error.
func (d *Driver) Run(ctx context.Context) (*Results, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(d.loads) == 0 {
		return nil, errors.New("no loads to run")
	}

	res := &Results{
		Config: d.cfg,
		Ops:    make(map[string][]string),
	}
	for _, load := range d.loads {
		res.Loads = append(res.Loads, load.Name())
		if err := d.runLoad(ctx, load, res); err != nil {
			d.metrics.GetOrCreateCounter(fmt.Sprintf(`crund_errors_total{load=%q}`, load.Name())).Inc()
			return res, err
		}
	}
	return res, nil
}

// loadRun holds the connection and operation state of a load across runs
type loadRun struct {
	load      ILoad
	connected bool
	ops       []Operation
}

func (lr *loadRun) connect(ctx context.Context) error {
	if lr.connected {
		return nil
	}
	if err := lr.load.InitConnection(ctx); err != nil {
		return fmt.Errorf("init connection: %w", err)
	}
	lr.connected = true
	return nil
}

func (lr *loadRun) initOps(cfg Config) error {
	if lr.ops != nil {
		return nil
	}
	ops, err := lr.load.InitOperations()
	if err != nil {
		return fmt.Errorf("init operations: %w", err)
	}
	lr.ops = make([]Operation, 0, len(ops))
	for _, op := range ops {
		if cfg.selected(op.Name()) {
			lr.ops = append(lr.ops, op)
		}
	}
	return nil
}

func (lr *loadRun) closeOps() error {
	if lr.ops == nil {
		return nil
	}
	lr.ops = nil
	return lr.load.CloseOperations()
}

func (lr *loadRun) disconnect() error {
	if !lr.connected {
		return nil
	}
	lr.connected = false
	return lr.load.CloseConnection()
}

// release closes operations and connection, the first error wins
func (lr *loadRun) release() error {
	errOps := lr.closeOps()
	errConn := lr.disconnect()
	if errOps != nil {
		return errOps
	}
	return errConn
}

func (d *Driver) runLoad(ctx context.Context, load ILoad, res *Results) (err error) {
	lr := &loadRun{load: load}
	defer func() {
		if relErr := lr.release(); relErr != nil {
			if err == nil {
				err = &OpError{Load: load.Name(), Err: fmt.Errorf("release: %w", relErr)}
			} else {
				log.Warningf("Releasing load %s after failure: %v", load.Name(), relErr)
			}
		}
	}()

	as, bs := d.cfg.A.Values(), d.cfg.B.Values()
	log.Infof("Running load %s: A=%v B=%v, %d warmup and %d hot runs", load.Name(), as, bs, d.cfg.WarmupRuns, d.cfg.HotRuns)

	for run := 0; run < d.cfg.Runs(); run++ {
		warmup := run < d.cfg.WarmupRuns

		if err := lr.connect(ctx); err != nil {
			return &OpError{Load: load.Name(), Err: err}
		}
		if err := lr.initOps(d.cfg); err != nil {
			return &OpError{Load: load.Name(), Err: err}
		}
		if _, ok := res.Ops[load.Name()]; !ok {
			names := make([]string, len(lr.ops))
			for i, op := range lr.ops {
				names[i] = op.Name()
			}
			res.Ops[load.Name()] = names
		}

		if warmup {
			log.Infof("[%s] warmup run %d/%d", load.Name(), run+1, d.cfg.WarmupRuns)
		} else {
			log.Infof("[%s] hot run %d/%d", load.Name(), run-d.cfg.WarmupRuns+1, d.cfg.HotRuns)
		}

		for _, countA := range as {
			for _, countB := range bs {
				if err := load.ClearData(ctx); err != nil {
					return &OpError{Load: load.Name(), CountA: countA, CountB: countB, Err: fmt.Errorf("clear data: %w", err)}
				}
				for _, op := range lr.ops {
					if err := ctx.Err(); err != nil {
						return err
					}
					sample, err := d.measure(ctx, load, op, countA, countB)
					if err != nil {
						return err
					}
					sample.Run = run
					sample.Warmup = warmup
					res.Samples = append(res.Samples, sample)
					if !warmup {
						d.record(sample)
					}
				}
			}
		}

		if d.cfg.RenewOperations {
			if err := lr.closeOps(); err != nil {
				return &OpError{Load: load.Name(), Err: fmt.Errorf("close operations: %w", err)}
			}
		}
		if d.cfg.RenewConnection {
			if err := lr.closeOps(); err != nil {
				return &OpError{Load: load.Name(), Err: fmt.Errorf("close operations: %w", err)}
			}
			if err := lr.disconnect(); err != nil {
				return &OpError{Load: load.Name(), Err: fmt.Errorf("close connection: %w", err)}
			}
		}
	}
	return nil
}

// measure runs one operation inside its own transaction and returns the sample.
// On failure the transaction is rolled back.
func (d *Driver) measure(ctx context.Context, load ILoad, op Operation, countA, countB int) (Sample, error) {
	fail := func(err error) (Sample, error) {
		if rbErr := load.RollbackTransaction(); rbErr != nil {
			log.Debugf("Rollback after failed operation %s: %v", op.Name(), rbErr)
		}
		return Sample{}, &OpError{Load: load.Name(), Op: op.Name(), CountA: countA, CountB: countB, Err: err}
	}

	if d.cfg.ClearCache {
		if err := load.ClearPersistenceContext(); err != nil {
			return Sample{}, &OpError{Load: load.Name(), Op: op.Name(), CountA: countA, CountB: countB, Err: fmt.Errorf("clear persistence context: %w", err)}
		}
	}
	if d.cfg.FullGC {
		runtime.GC()
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	if err := load.BeginTransaction(); err != nil {
		return fail(fmt.Errorf("begin: %w", err))
	}
	if err := op.Run(ctx, countA, countB); err != nil {
		return fail(err)
	}
	if err := load.CommitTransaction(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)

	log.Debugf("[%s] %s nA=%d nB=%d: %s", load.Name(), op.Name(), countA, countB, elapsed)
	return Sample{
		Load:      load.Name(),
		Op:        op.Name(),
		CountA:    countA,
		CountB:    countB,
		Duration:  elapsed,
		HeapDelta: int64(after.HeapAlloc) - int64(before.HeapAlloc),
	}, nil
}

func (d *Driver) record(s Sample) {
	labels := fmt.Sprintf(`{load=%q,op=%q}`, s.Load, s.Op)
	d.metrics.GetOrCreateHistogram("crund_operation_duration_seconds" + labels).Update(s.Duration.Seconds())
	d.metrics.GetOrCreateCounter("crund_operations_total" + labels).Inc()
}
