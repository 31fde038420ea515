package lstore

import (
	"errors"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/store"
	storetesting "github.com/ValentinKolb/crund/lib/store/testing"
	"testing"
)

func mapleFactory() (db.KVDB, error) {
	return maple.NewMapleDB(nil), nil
}

func TestLocalStore(t *testing.T) {
	storetesting.RunStoreTests(t, "LocalStore", func(t testing.TB) store.IStore {
		s, err := NewLocalStore(mapleFactory)
		if err != nil {
			t.Fatalf("NewLocalStore failed: %v", err)
		}
		return s
	})
}

func TestFactoryError(t *testing.T) {
	_, err := NewLocalStore(func() (db.KVDB, error) {
		return nil, errors.New("disk on fire")
	})
	if store.ErrorCode(err) != store.RetCInternalError {
		t.Errorf("Expected RetCInternalError, got %v", err)
	}
}

func TestClosedStore(t *testing.T) {
	s := Wrap(maple.NewMapleDB(nil))
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := s.Begin(false); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation after Close, got %v", err)
	}
}
