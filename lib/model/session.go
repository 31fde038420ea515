package model

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	lru "github.com/hashicorp/golang-lru"
)

var (
	// ErrNoTransaction is returned for operations outside Begin and Commit/Rollback
	ErrNoTransaction = errors.New("no active transaction")
	// ErrTransactionActive is returned by Begin if a transaction is already open
	ErrTransactionActive = errors.New("transaction already active")
	// ErrExists is returned when inserting an entity whose id is taken
	ErrExists = errors.New("entity already exists")
	// ErrNotFound is returned when updating or deleting a missing entity
	ErrNotFound = errors.New("entity not found")
)

// DefaultCacheSize is the number of entities kept in the identity map
const DefaultCacheSize = 1 << 16

// Session is the persistence context of the benchmark: it maps entities onto a store
// and keeps loaded entities in an identity map, so repeated finds of the same id
// within a session return the cached entity without a store read.
//
// Thread-safety: A session must only be used by one goroutine.
type Session struct {
	store store.IStore
	codec ICodec
	cache *lru.Cache // store key -> *A or *B
	tx    store.ITx
}

// NewSession creates a session on s using codec to encode the entities.
// cacheSize <= 0 selects DefaultCacheSize.
func NewSession(s store.IStore, codec ICodec, cacheSize int) (*Session, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create identity map: %w", err)
	}
	return &Session{
		store: s,
		codec: codec,
		cache: cache,
	}, nil
}

// Codec returns the codec of the session
func (s *Session) Codec() ICodec {
	return s.codec
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// Begin starts a writable transaction
func (s *Session) Begin() error {
	if s.tx != nil {
		return ErrTransactionActive
	}
	tx, err := s.store.Begin(true)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

// Commit commits the active transaction
func (s *Session) Commit() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		s.cache.Purge()
		return err
	}
	return nil
}

// Rollback discards the active transaction and the identity map, since it may hold
// entities written by the transaction. Rollback without a transaction is a no-op.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.cache.Purge()
	return tx.Rollback()
}

// Active reports whether a transaction is open
func (s *Session) Active() bool {
	return s.tx != nil
}

// Clear empties the identity map, the next find of every entity reads the store
func (s *Session) Clear() {
	s.cache.Purge()
}

func (s *Session) active() (store.ITx, error) {
	if s.tx == nil {
		return nil, ErrNoTransaction
	}
	return s.tx, nil
}

// --------------------------------------------------------------------------
// A
// --------------------------------------------------------------------------

// InsertA stores a new A, the id must not exist
func (s *Session) InsertA(a *A) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := AKey(a.ID)
	if exists, err := s.exists(tx, key); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("insert A %d: %w", a.ID, ErrExists)
	}
	return s.putA(tx, key, a)
}

// FindA loads an A by id
func (s *Session) FindA(id int32) (*A, bool, error) {
	tx, err := s.active()
	if err != nil {
		return nil, false, err
	}
	key := AKey(id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*A), true, nil
	}
	data, loaded, err := tx.Get(key)
	if err != nil || !loaded {
		return nil, false, err
	}
	a := &A{}
	if err := s.codec.UnmarshalA(data, a); err != nil {
		return nil, false, fmt.Errorf("decode A %d: %w", id, err)
	}
	s.cache.Add(key, a)
	return a, true, nil
}

// UpdateA overwrites an existing A
func (s *Session) UpdateA(a *A) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := AKey(a.ID)
	if _, ok := s.cache.Get(key); !ok {
		if exists, err := tx.Has(key); err != nil {
			return err
		} else if !exists {
			return fmt.Errorf("update A %d: %w", a.ID, ErrNotFound)
		}
	}
	return s.putA(tx, key, a)
}

// DeleteA removes an A. Bs referencing it keep their AID.
func (s *Session) DeleteA(id int32) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := AKey(id)
	if exists, err := s.exists(tx, key); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("delete A %d: %w", id, ErrNotFound)
	}
	s.cache.Remove(key)
	return tx.Delete(key)
}

func (s *Session) putA(tx store.ITx, key string, a *A) error {
	data, err := s.codec.MarshalA(a)
	if err != nil {
		return fmt.Errorf("encode A %d: %w", a.ID, err)
	}
	if err := tx.Set(key, data); err != nil {
		return err
	}
	s.cache.Add(key, a)
	return nil
}

// --------------------------------------------------------------------------
// B
// --------------------------------------------------------------------------

// InsertB stores a new B and its index entry
func (s *Session) InsertB(b *B) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := BKey(b.ID)
	if exists, err := s.exists(tx, key); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("insert B %d: %w", b.ID, ErrExists)
	}
	if b.AID != 0 {
		if err := tx.Set(IndexKey(b.AID, b.ID), nil); err != nil {
			return err
		}
	}
	return s.putB(tx, key, b)
}

// FindB loads a B by id
func (s *Session) FindB(id int32) (*B, bool, error) {
	tx, err := s.active()
	if err != nil {
		return nil, false, err
	}
	key := BKey(id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*B), true, nil
	}
	data, loaded, err := tx.Get(key)
	if err != nil || !loaded {
		return nil, false, err
	}
	b := &B{}
	if err := s.codec.UnmarshalB(data, b); err != nil {
		return nil, false, fmt.Errorf("decode B %d: %w", id, err)
	}
	s.cache.Add(key, b)
	return b, true, nil
}

// UpdateB overwrites an existing B and moves its index entry if AID changed
func (s *Session) UpdateB(b *B) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := BKey(b.ID)
	old, err := s.loadB(tx, key)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("update B %d: %w", b.ID, ErrNotFound)
	}
	if old.AID != b.AID {
		if old.AID != 0 {
			if err := tx.Delete(IndexKey(old.AID, b.ID)); err != nil {
				return err
			}
		}
		if b.AID != 0 {
			if err := tx.Set(IndexKey(b.AID, b.ID), nil); err != nil {
				return err
			}
		}
	}
	return s.putB(tx, key, b)
}

// DeleteB removes a B and its index entry
func (s *Session) DeleteB(id int32) error {
	tx, err := s.active()
	if err != nil {
		return err
	}
	key := BKey(id)
	old, err := s.loadB(tx, key)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("delete B %d: %w", id, ErrNotFound)
	}
	if old.AID != 0 {
		if err := tx.Delete(IndexKey(old.AID, id)); err != nil {
			return err
		}
	}
	s.cache.Remove(key)
	return tx.Delete(key)
}

// FindBsByA returns the ids of all Bs referencing aid in ascending order
func (s *Session) FindBsByA(aid int32) ([]int32, error) {
	tx, err := s.active()
	if err != nil {
		return nil, err
	}
	var ids []int32
	var parseErr error
	err = tx.Scan(IndexPrefix(aid), func(key string, _ []byte) bool {
		var id int32
		id, parseErr = parseIndexKey(key)
		if parseErr != nil {
			return false
		}
		ids = append(ids, id)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ids, parseErr
}

// loadB returns the stored state of a B ignoring the identity map, nil if it does not exist.
// The cached entity may already carry the changes of the caller.
func (s *Session) loadB(tx store.ITx, key string) (*B, error) {
	data, loaded, err := tx.Get(key)
	if err != nil || !loaded {
		return nil, err
	}
	b := &B{}
	if err := s.codec.UnmarshalB(data, b); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return b, nil
}

func (s *Session) putB(tx store.ITx, key string, b *B) error {
	data, err := s.codec.MarshalB(b)
	if err != nil {
		return fmt.Errorf("encode B %d: %w", b.ID, err)
	}
	if err := tx.Set(key, data); err != nil {
		return err
	}
	s.cache.Add(key, b)
	return nil
}

// --------------------------------------------------------------------------
// Bulk operations
// --------------------------------------------------------------------------

// Count returns the number of stored entities of a kind
func (s *Session) Count(kind Kind) (int, error) {
	tx, err := s.active()
	if err != nil {
		return 0, err
	}
	n := 0
	err = tx.Scan(prefixOf(kind), func(string, []byte) bool {
		n++
		return true
	})
	return n, err
}

// DeleteAll removes all entities of a kind and returns how many were deleted.
// Deleting all Bs also removes the whole B.AID index.
func (s *Session) DeleteAll(kind Kind) (int, error) {
	tx, err := s.active()
	if err != nil {
		return 0, err
	}
	n, err := deletePrefix(tx, prefixOf(kind))
	if err != nil {
		return n, err
	}
	if kind == KindB {
		if _, err := deletePrefix(tx, PrefixIndex); err != nil {
			return n, err
		}
	}
	s.cache.Purge()
	return n, nil
}

func (s *Session) exists(tx store.ITx, key string) (bool, error) {
	if _, ok := s.cache.Get(key); ok {
		return true, nil
	}
	return tx.Has(key)
}

func deletePrefix(tx store.ITx, prefix string) (int, error) {
	var keys []string
	err := tx.Scan(prefix, func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
