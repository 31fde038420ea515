package crud

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/model"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("bench")

// StoreFactory opens the store a load runs against
type StoreFactory func(ctx context.Context) (store.IStore, error)

// Options configures a crud load
type Options struct {
	Name              string       // name of the load in results, default "crud/<codec>"
	Store             StoreFactory // opens the store on InitConnection
	Codec             model.ICodec // entity encoding
	CacheSize         int          // identity map size, <= 0 selects model.DefaultCacheSize
	MaxVarbinaryBytes int          // largest varbinary length, 0 disables the varbinary operations
	MaxVarcharChars   int          // largest varchar length, 0 disables the varchar operations
}

// DefaultOptions returns the options with the payload limits of CRUND (100 bytes and characters)
func DefaultOptions() Options {
	return Options{
		MaxVarbinaryBytes: 100,
		MaxVarcharChars:   100,
	}
}

type loadImpl struct {
	opts    Options
	store   store.IStore
	session *model.Session
}

// NewLoad creates the crud load
func NewLoad(opts Options) (bench.ILoad, error) {
	if opts.Store == nil {
		return nil, errors.New("crud: no store factory")
	}
	if opts.Codec == nil {
		return nil, errors.New("crud: no codec")
	}
	if opts.Name == "" {
		opts.Name = "crud/" + opts.Codec.Name()
	}
	return &loadImpl{opts: opts}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see bench.ILoad)
// --------------------------------------------------------------------------

func (l *loadImpl) Name() string {
	return l.opts.Name
}

func (l *loadImpl) InitConnection(ctx context.Context) error {
	s, err := l.opts.Store(ctx)
	if err != nil {
		return err
	}
	session, err := model.NewSession(s, l.opts.Codec, l.opts.CacheSize)
	if err != nil {
		s.Close()
		return err
	}
	l.store, l.session = s, session
	log.Debugf("[%s] connected", l.opts.Name)
	return nil
}

func (l *loadImpl) CloseConnection() error {
	if l.store == nil {
		return nil
	}
	if l.session.Active() {
		l.session.Rollback()
	}
	err := l.store.Close()
	l.store, l.session = nil, nil
	return err
}

func (l *loadImpl) InitOperations() ([]bench.Operation, error) {
	return operations(l, l.opts), nil
}

func (l *loadImpl) CloseOperations() error {
	return nil
}

func (l *loadImpl) BeginTransaction() error {
	return l.session.Begin()
}

func (l *loadImpl) CommitTransaction() error {
	return l.session.Commit()
}

func (l *loadImpl) RollbackTransaction() error {
	if l.session == nil {
		return nil
	}
	return l.session.Rollback()
}

func (l *loadImpl) ClearPersistenceContext() error {
	l.session.Clear()
	return nil
}

// ClearData deletes all As, Bs and index entries in one transaction
func (l *loadImpl) ClearData(_ context.Context) error {
	if err := l.session.Begin(); err != nil {
		return err
	}
	nB, err := l.session.DeleteAll(model.KindB)
	if err != nil {
		l.session.Rollback()
		return err
	}
	nA, err := l.session.DeleteAll(model.KindA)
	if err != nil {
		l.session.Rollback()
		return err
	}
	if err := l.session.Commit(); err != nil {
		return err
	}
	if nA+nB > 0 {
		log.Debugf("[%s] deleted %d As and %d Bs", l.opts.Name, nA, nB)
	}
	return nil
}

// --------------------------------------------------------------------------
// Verification
// --------------------------------------------------------------------------

// VerifyError is returned when an operation reads something else than what was written
type VerifyError struct {
	Entity string
	ID     int32
	Field  string
	Want   any
	Got    any
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s %d: %s: expected %v, got %v", e.Entity, e.ID, e.Field, e.Want, e.Got)
}
