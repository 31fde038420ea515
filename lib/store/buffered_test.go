package store

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

// mapReader is a committed state for buffered transactions
type mapReader map[string][]byte

func (m mapReader) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapReader) Has(key string) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m mapReader) Scan(prefix string, fn func(key string, value []byte) bool) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(k, m[k]) {
			break
		}
	}
	return nil
}

func TestBufferedCommitSendsOps(t *testing.T) {
	state := mapReader{"existing": []byte("old")}
	var committed []Op
	tx := NewBufferedTx(state, true, func(ops []Op) error {
		committed = ops
		return ApplyOps(mapWriter(state), ops)
	})

	tx.Set("a", []byte("1"))
	tx.SetIfUnset("existing", []byte("new"))
	tx.Delete("gone")
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if len(committed) != 3 {
		t.Fatalf("Expected 3 ops, got %d", len(committed))
	}
	if committed[0].Type != OpSet || committed[1].Type != OpSetIfUnset || committed[2].Type != OpDelete {
		t.Errorf("Expected ops in write order, got %v", committed)
	}
	if string(state["existing"]) != "old" || string(state["a"]) != "1" {
		t.Errorf("Unexpected state after commit: %v", state)
	}
}

func TestBufferedSetIfUnsetVisibility(t *testing.T) {
	state := mapReader{"existing": []byte("old")}
	tx := NewBufferedTx(state, true, func([]Op) error { return nil })

	tx.SetIfUnset("existing", []byte("new"))
	tx.SetIfUnset("fresh", []byte("new"))

	if v, _, _ := tx.Get("existing"); string(v) != "old" {
		t.Errorf("Expected old, got %q", v)
	}
	if v, ok, _ := tx.Get("fresh"); !ok || string(v) != "new" {
		t.Errorf("Expected new, got %q", v)
	}

	// a delete followed by SetIfUnset turns into a Set
	tx.Delete("existing")
	tx.SetIfUnset("existing", []byte("again"))
	if v, _, _ := tx.Get("existing"); string(v) != "again" {
		t.Errorf("Expected again, got %q", v)
	}
}

func TestBufferedReadOnly(t *testing.T) {
	called := false
	tx := NewBufferedTx(mapReader{}, false, func([]Op) error { called = true; return nil })
	if err := tx.Set("a", nil); ErrorCode(err) != RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if called {
		t.Errorf("Expected read-only commit not to send ops")
	}
	if _, _, err := tx.Get("a"); ErrorCode(err) != RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation after commit, got %v", err)
	}
}

func TestBufferedCommitError(t *testing.T) {
	tx := NewBufferedTx(mapReader{}, true, func([]Op) error { return errors.New("boom") })
	tx.Set("a", []byte("1"))
	if err := tx.Commit(); ErrorCode(err) != RetCInternalError {
		t.Errorf("Expected RetCInternalError, got %v", err)
	}
}

func TestBufferedScanMerge(t *testing.T) {
	state := mapReader{"p/1": []byte("1"), "p/2": []byte("2"), "q/1": []byte("x")}
	tx := NewBufferedTx(state, true, func([]Op) error { return nil })
	tx.Delete("p/1")
	tx.Set("p/3", []byte("3"))
	tx.SetIfUnset("p/2", []byte("ignored"))

	var got []string
	tx.Scan("p/", func(key string, value []byte) bool {
		got = append(got, key+"="+string(value))
		return true
	})
	want := "p/2=2,p/3=3"
	if strings.Join(got, ",") != want {
		t.Errorf("Expected %s, got %v", want, got)
	}
}

type mapWriter map[string][]byte

func (m mapWriter) Set(key string, value []byte) error { m[key] = value; return nil }
func (m mapWriter) SetIfUnset(key string, value []byte) error {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
	return nil
}
func (m mapWriter) Delete(key string) error { delete(m, key); return nil }

func TestWrapError(t *testing.T) {
	if WrapError(nil) != nil {
		t.Errorf("Expected nil")
	}
	e := NewError(RetCUnsupportedOperation, "x")
	if WrapError(e) != e {
		t.Errorf("Expected *Error to pass through")
	}
	if ErrorCode(errors.New("x")) != RetCInternalError {
		t.Errorf("Expected RetCInternalError for plain errors")
	}
}
