package lockbench

import (
	"context"
	"errors"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"testing"
)

func localLocks(context.Context) (lockmgr.ILockManager, func() error, error) {
	s := lstore.Wrap(maple.NewMapleDB(nil))
	return lockmgr.NewLockManager(s), s.Close, nil
}

func TestLockRun(t *testing.T) {
	load, err := NewLoad("", localLocks)
	if err != nil {
		t.Fatalf("NewLoad failed: %v", err)
	}
	cfg := bench.Config{
		A:          bench.Range{Start: 1, End: 16, Scale: 4},
		B:          bench.Range{Start: 1, End: 4, Scale: 2},
		WarmupRuns: 1,
		HotRuns:    2,
	}
	res, err := bench.NewDriver(cfg, load).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := 3 * 3 * 3 * 6; len(res.Samples) != want {
		t.Errorf("Expected %d samples, got %d", want, len(res.Samples))
	}
}

func TestLockConflictDetected(t *testing.T) {
	// without relLock the vectors collide with the single locks
	load, _ := NewLoad("lock", localLocks)
	cfg := bench.Config{
		A:       bench.Range{Start: 2, End: 2},
		B:       bench.Range{Start: 2, End: 2},
		HotRuns: 1,
		Exclude: []string{"relLock"},
	}
	_, err := bench.NewDriver(cfg, load).Run(context.Background())

	var cerr *ConflictError
	if !errors.As(err, &cerr) || cerr.Op != "acquire vector" {
		t.Fatalf("Expected vector acquisition conflict, got %v", err)
	}
}

func TestClearDataReleasesLeftovers(t *testing.T) {
	load, _ := NewLoad("lock", localLocks)
	cfg := bench.Config{
		A:       bench.Range{Start: 3, End: 3},
		B:       bench.Range{Start: 1, End: 1},
		HotRuns: 2,
		Include: []string{"acqLock"},
	}
	if _, err := bench.NewDriver(cfg, load).Run(context.Background()); err != nil {
		t.Fatalf("Expected leftover locks to be released between runs, got %v", err)
	}
}

// stuckLocks refuses every vector release
type stuckLocks struct {
	lockmgr.ILockManager
}

func (s stuckLocks) ReleaseLocks([]string, []byte) (bool, error) {
	return false, nil
}

func TestClearDataReportsUnreleasedLocks(t *testing.T) {
	load, _ := NewLoad("lock", func(ctx context.Context) (lockmgr.ILockManager, func() error, error) {
		locks, closeFn, err := localLocks(ctx)
		return stuckLocks{locks}, closeFn, err
	})
	cfg := bench.Config{
		A:       bench.Range{Start: 2, End: 2},
		B:       bench.Range{Start: 1, End: 1},
		HotRuns: 2,
		Include: []string{"acqLock"},
	}
	_, err := bench.NewDriver(cfg, load).Run(context.Background())

	var cerr *ConflictError
	if !errors.As(err, &cerr) || cerr.Op != "release leftover" {
		t.Fatalf("Expected a release conflict when clearing data, got %v", err)
	}
	if len(cerr.Keys) != 1 {
		t.Errorf("Expected the conflict to name the leftover lock, got %v", cerr.Keys)
	}
}
