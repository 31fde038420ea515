package lockbench

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("bench")

// LockManagerFactory opens the lock manager a load runs against.
// The returned close function is called by CloseConnection and may be nil.
type LockManagerFactory func(ctx context.Context) (lockmgr.ILockManager, func() error, error)

// ConflictError is returned when a lock operation had another outcome than expected
type ConflictError struct {
	Op   string
	Keys []string
	Want bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v: expected ok=%v, got ok=%v", e.Op, e.Keys, e.Want, !e.Want)
}

type heldLock struct {
	keys  []string
	owner []byte
}

type loadImpl struct {
	name    string
	factory LockManagerFactory
	locks   lockmgr.ILockManager
	close   func() error

	single  []heldLock // held by acqLock
	vectors []heldLock // held by acqLockVec
}

// NewLoad creates the lock load. countA is the number of distinct locks,
// countB the size of the lock vectors.
func NewLoad(name string, factory LockManagerFactory) (bench.ILoad, error) {
	if factory == nil {
		return nil, errors.New("lockbench: no lock manager factory")
	}
	if name == "" {
		name = "lock"
	}
	return &loadImpl{name: name, factory: factory}, nil
}

func lockKey(i int) string {
	return fmt.Sprintf("lock/%010d", i)
}

func freeKey(vector, i int) string {
	return fmt.Sprintf("free/%010d/%010d", vector, i)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see bench.ILoad)
// --------------------------------------------------------------------------

func (l *loadImpl) Name() string {
	return l.name
}

func (l *loadImpl) InitConnection(ctx context.Context) error {
	locks, closeFn, err := l.factory(ctx)
	if err != nil {
		return err
	}
	l.locks, l.close = locks, closeFn
	return nil
}

func (l *loadImpl) CloseConnection() error {
	l.locks = nil
	if l.close == nil {
		return nil
	}
	closeFn := l.close
	l.close = nil
	return closeFn()
}

func (l *loadImpl) InitOperations() ([]bench.Operation, error) {
	return []bench.Operation{
		bench.NewOperation("acqLock", l.acqLock),
		bench.NewOperation("acqLockConflict", l.acqLockConflict),
		bench.NewOperation("relLock", l.relLock),
		bench.NewOperation("acqLockVec", l.acqLockVec),
		bench.NewOperation("acqLockVecConflict", l.acqLockVecConflict),
		bench.NewOperation("relLockVec", l.relLockVec),
	}, nil
}

func (l *loadImpl) CloseOperations() error {
	return nil
}

// The lock manager runs its own transactions
func (l *loadImpl) BeginTransaction() error    { return nil }
func (l *loadImpl) CommitTransaction() error   { return nil }
func (l *loadImpl) RollbackTransaction() error { return nil }

func (l *loadImpl) ClearPersistenceContext() error {
	return nil
}

// ClearData releases every lock still held by the load
func (l *loadImpl) ClearData(_ context.Context) error {
	held := append(l.single, l.vectors...)
	l.single, l.vectors = nil, nil
	for _, h := range held {
		ok, err := l.locks.ReleaseLocks(h.keys, h.owner)
		if err != nil {
			return err
		}
		if !ok {
			return &ConflictError{Op: "release leftover", Keys: h.keys, Want: true}
		}
	}
	if len(held) > 0 {
		log.Debugf("[%s] released %d leftover locks", l.name, len(held))
	}
	return nil
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

func (l *loadImpl) acqLock(ctx context.Context, nA, _ int) error {
	for i := 0; i < nA; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := lockKey(i)
		ok, owner, err := l.locks.AcquireLock(key)
		if err != nil {
			return err
		}
		if !ok {
			return &ConflictError{Op: "acquire", Keys: []string{key}, Want: true}
		}
		l.single = append(l.single, heldLock{keys: []string{key}, owner: owner})
	}
	return nil
}

func (l *loadImpl) acqLockConflict(ctx context.Context, nA, _ int) error {
	for i := 0; i < nA; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := lockKey(i)
		ok, owner, err := l.locks.AcquireLock(key)
		if err != nil {
			return err
		}
		if ok {
			l.single = append(l.single, heldLock{keys: []string{key}, owner: owner})
			return &ConflictError{Op: "acquire held lock", Keys: []string{key}, Want: false}
		}
	}
	return nil
}

func (l *loadImpl) relLock(ctx context.Context, _, _ int) error {
	return l.release(ctx, &l.single)
}

// acqLockVec acquires the nA locks in vectors of nB consecutive keys
func (l *loadImpl) acqLockVec(ctx context.Context, nA, nB int) error {
	for start := 0; start < nA; start += nB {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys := make([]string, 0, nB)
		for i := start; i < start+nB && i < nA; i++ {
			keys = append(keys, lockKey(i))
		}
		ok, owner, err := l.locks.AcquireLocks(keys)
		if err != nil {
			return err
		}
		if !ok {
			return &ConflictError{Op: "acquire vector", Keys: keys, Want: true}
		}
		l.vectors = append(l.vectors, heldLock{keys: keys, owner: owner})
	}
	return nil
}

// acqLockVecConflict tries one vector per held vector: nB-1 free keys plus the first
// key of the held vector. Every attempt must fail without leaving a free key locked.
func (l *loadImpl) acqLockVecConflict(ctx context.Context, _, nB int) error {
	probe := []byte("crund-lock-probe")
	for v, held := range l.vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		free := make([]string, 0, nB)
		for i := 0; i < nB-1; i++ {
			free = append(free, freeKey(v, i))
		}
		keys := append(append([]string{}, free...), held.keys[0])

		ok, owner, err := l.locks.AcquireLocks(keys)
		if err != nil {
			return err
		}
		if ok {
			l.vectors = append(l.vectors, heldLock{keys: keys, owner: owner})
			return &ConflictError{Op: "acquire overlapping vector", Keys: keys, Want: false}
		}

		// a release by a foreign owner only succeeds if no free key is locked
		if len(free) > 0 {
			released, err := l.locks.ReleaseLocks(free, probe)
			if err != nil {
				return err
			}
			if !released {
				return &ConflictError{Op: "partial vector left behind", Keys: free, Want: true}
			}
		}
	}
	return nil
}

func (l *loadImpl) relLockVec(ctx context.Context, _, _ int) error {
	return l.release(ctx, &l.vectors)
}

func (l *loadImpl) release(ctx context.Context, held *[]heldLock) error {
	for len(*held) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := (*held)[0]
		ok, err := l.locks.ReleaseLocks(h.keys, h.owner)
		if err != nil {
			return err
		}
		if !ok {
			return &ConflictError{Op: "release", Keys: h.keys, Want: true}
		}
		*held = (*held)[1:]
	}
	return nil
}
