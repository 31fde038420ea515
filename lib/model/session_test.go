package model_test

import (
	"errors"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/model"
	"github.com/ValentinKolb/crund/lib/model/codec"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"testing"
)

func newSession(t *testing.T) *model.Session {
	s := lstore.Wrap(maple.NewMapleDB(nil))
	t.Cleanup(func() {
		s.Close()
	})
	session, err := model.NewSession(s, codec.NewBinaryCodec(), 0)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return session
}

// inTx runs fn in a session transaction and commits it
func inTx(t *testing.T, s *model.Session, fn func()) {
	t.Helper()
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	fn()
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestNoTransaction(t *testing.T) {
	s := newSession(t)
	if err := s.InsertA(&model.A{ID: 1}); !errors.Is(err, model.ErrNoTransaction) {
		t.Errorf("Expected ErrNoTransaction, got %v", err)
	}
	if err := s.Commit(); !errors.Is(err, model.ErrNoTransaction) {
		t.Errorf("Expected ErrNoTransaction, got %v", err)
	}
	if err := s.Rollback(); err != nil {
		t.Errorf("Expected Rollback without transaction to be a no-op, got %v", err)
	}
	s.Begin()
	if err := s.Begin(); !errors.Is(err, model.ErrTransactionActive) {
		t.Errorf("Expected ErrTransactionActive, got %v", err)
	}
	s.Rollback()
}

func TestInsertFindUpdateDelete(t *testing.T) {
	s := newSession(t)

	inTx(t, s, func() {
		if err := s.InsertA(&model.A{ID: 1, CInt: 1, CLong: 1, CFloat: 1, CDouble: 1}); err != nil {
			t.Fatalf("InsertA failed: %v", err)
		}
		if err := s.InsertA(&model.A{ID: 1}); !errors.Is(err, model.ErrExists) {
			t.Errorf("Expected ErrExists, got %v", err)
		}
	})

	s.Clear()
	inTx(t, s, func() {
		a, ok, err := s.FindA(1)
		if err != nil || !ok {
			t.Fatalf("FindA failed: ok=%v err=%v", ok, err)
		}
		if a.CLong != 1 {
			t.Errorf("Expected CLong 1, got %d", a.CLong)
		}
		a.CLong = -1
		if err := s.UpdateA(a); err != nil {
			t.Fatalf("UpdateA failed: %v", err)
		}
		if err := s.UpdateA(&model.A{ID: 99}); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	s.Clear()
	inTx(t, s, func() {
		a, _, _ := s.FindA(1)
		if a == nil || a.CLong != -1 {
			t.Errorf("Expected updated A, got %+v", a)
		}
		if err := s.DeleteA(1); err != nil {
			t.Fatalf("DeleteA failed: %v", err)
		}
		if err := s.DeleteA(1); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, ok, _ := s.FindA(1); ok {
			t.Errorf("Expected A to be deleted")
		}
	})
}

func TestRelationIndex(t *testing.T) {
	s := newSession(t)

	inTx(t, s, func() {
		for i := int32(1); i <= 2; i++ {
			s.InsertA(&model.A{ID: i})
		}
		for i := int32(1); i <= 4; i++ {
			if err := s.InsertB(&model.B{ID: i, AID: (i-1)%2 + 1}); err != nil {
				t.Fatalf("InsertB failed: %v", err)
			}
		}
	})

	inTx(t, s, func() {
		ids, err := s.FindBsByA(1)
		if err != nil {
			t.Fatalf("FindBsByA failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
			t.Errorf("Expected [1 3], got %v", ids)
		}

		// move B 3 to A 2 through the cached entity
		b, _, _ := s.FindB(3)
		b.AID = 2
		if err := s.UpdateB(b); err != nil {
			t.Fatalf("UpdateB failed: %v", err)
		}
		// drop the relation of B 1
		b, _, _ = s.FindB(1)
		b.AID = 0
		s.UpdateB(b)
	})

	inTx(t, s, func() {
		if ids, _ := s.FindBsByA(1); len(ids) != 0 {
			t.Errorf("Expected no Bs for A 1, got %v", ids)
		}
		if ids, _ := s.FindBsByA(2); len(ids) != 3 {
			t.Errorf("Expected 3 Bs for A 2, got %v", ids)
		}
		if err := s.DeleteB(2); err != nil {
			t.Fatalf("DeleteB failed: %v", err)
		}
		if ids, _ := s.FindBsByA(2); len(ids) != 2 {
			t.Errorf("Expected DeleteB to remove the index entry, got %v", ids)
		}
	})
}

func TestCountAndDeleteAll(t *testing.T) {
	s := newSession(t)

	inTx(t, s, func() {
		for i := int32(1); i <= 5; i++ {
			s.InsertA(&model.A{ID: i})
			s.InsertB(&model.B{ID: i, AID: i})
		}
	})

	inTx(t, s, func() {
		if n, _ := s.Count(model.KindA); n != 5 {
			t.Errorf("Expected 5 As, got %d", n)
		}
		n, err := s.DeleteAll(model.KindB)
		if err != nil || n != 5 {
			t.Errorf("Expected 5 deleted Bs, got %d (err=%v)", n, err)
		}
	})

	inTx(t, s, func() {
		if n, _ := s.Count(model.KindB); n != 0 {
			t.Errorf("Expected 0 Bs, got %d", n)
		}
		if ids, _ := s.FindBsByA(3); len(ids) != 0 {
			t.Errorf("Expected index to be empty, got %v", ids)
		}
	})
}

func TestRollbackDiscardsIdentityMap(t *testing.T) {
	s := newSession(t)

	s.Begin()
	s.InsertA(&model.A{ID: 1})
	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	inTx(t, s, func() {
		if _, ok, _ := s.FindA(1); ok {
			t.Errorf("Expected rolled back A not to be found")
		}
	})
}

func TestKeys(t *testing.T) {
	if k := model.AKey(42); k != "a/0000000042" {
		t.Errorf("Expected a/0000000042, got %s", k)
	}
	if k := model.IndexKey(1, 2); k != "i/b.aid/0000000001/0000000002" {
		t.Errorf("Unexpected index key %s", k)
	}
}
