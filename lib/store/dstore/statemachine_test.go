package dstore

import (
	"bytes"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"testing"
)

func newStateMachine(t *testing.T) sm.IConcurrentStateMachine {
	factory := CreateStateMaschineFactory(func() (db.KVDB, error) {
		return maple.NewMapleDB(nil), nil
	})
	fsm := factory(1, 1)
	t.Cleanup(func() {
		fsm.Close()
	})
	return fsm
}

func propose(t *testing.T, fsm sm.IConcurrentStateMachine, ops ...store.Op) sm.Result {
	cmd := internal.Command{Ops: ops}
	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: cmd.Serialize()}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return entries[0].Result
}

func lookupGet(t *testing.T, fsm sm.IConcurrentStateMachine, key string) internal.QueryResult {
	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: key})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	return res.(internal.QueryResult)
}

func TestUpdateAndLookup(t *testing.T) {
	fsm := newStateMachine(t)

	res := propose(t, fsm,
		store.Op{Type: store.OpSet, Key: "k1", Value: []byte("v1")},
		store.Op{Type: store.OpSet, Key: "k2", Value: []byte("v2")},
		store.Op{Type: store.OpDelete, Key: "k2"},
		store.Op{Type: store.OpSetIfUnset, Key: "k1", Value: []byte("ignored")},
	)
	if res.Value != uint64(store.RetCSuccess) {
		t.Fatalf("Expected success, got %d: %s", res.Value, res.Data)
	}

	if r := lookupGet(t, fsm, "k1"); !r.Ok || string(r.Value) != "v1" {
		t.Errorf("Expected v1, got %q (ok=%v)", r.Value, r.Ok)
	}
	if r := lookupGet(t, fsm, "k2"); r.Ok {
		t.Errorf("Expected k2 to be deleted")
	}

	has, err := fsm.Lookup(internal.Query{Type: internal.QueryTHas, Key: "k1"})
	if err != nil || has != true {
		t.Errorf("Expected Has(k1) to be true, got %v (err=%v)", has, err)
	}

	scan, err := fsm.Lookup(internal.Query{Type: internal.QueryTScan, Key: "k"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if keys := scan.(internal.ScanResult).Keys; len(keys) != 1 || keys[0] != "k1" {
		t.Errorf("Expected [k1], got %v", keys)
	}
}

func TestInvalidCommands(t *testing.T) {
	fsm := newStateMachine(t)

	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: nil}, {Index: 2, Cmd: []byte{9, 9}}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if entries[0].Result.Value != uint64(store.RetCInvalidOperation) {
		t.Errorf("Expected empty command to be rejected, got %d", entries[0].Result.Value)
	}
	if entries[1].Result.Value != uint64(store.RetCInternalError) {
		t.Errorf("Expected broken command to be rejected, got %d", entries[1].Result.Value)
	}

	if res := propose(t, fsm, store.Op{Type: 42, Key: "k"}); res.Value != uint64(store.RetCInvalidOperation) {
		t.Errorf("Expected unknown op to be rejected, got %d", res.Value)
	}

	if _, err := fsm.Lookup("not a query"); store.ErrorCode(err) != store.RetCInternalError {
		t.Errorf("Expected invalid query to fail, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newStateMachine(t)
	propose(t, src,
		store.Op{Type: store.OpSet, Key: "a", Value: []byte("1")},
		store.Op{Type: store.OpSet, Key: "b", Value: []byte("2")},
	)

	ctx, err := src.PrepareSnapshot()
	if err != nil {
		t.Fatalf("PrepareSnapshot failed: %v", err)
	}
	var buf bytes.Buffer
	if err := src.SaveSnapshot(ctx, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	dst := newStateMachine(t)
	propose(t, dst, store.Op{Type: store.OpSet, Key: "stale", Value: []byte("x")})
	if err := dst.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}

	if r := lookupGet(t, dst, "b"); !r.Ok || string(r.Value) != "2" {
		t.Errorf("Expected b=2 after recovery, got %q", r.Value)
	}
	if r := lookupGet(t, dst, "stale"); r.Ok {
		t.Errorf("Expected recovery to replace the existing content")
	}
}
