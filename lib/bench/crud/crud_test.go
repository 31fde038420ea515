package crud

import (
	"context"
	"errors"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/model/codec"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"reflect"
	"testing"
)

func mapleStore(context.Context) (store.IStore, error) {
	return lstore.Wrap(maple.NewMapleDB(nil)), nil
}

func newLoad(t *testing.T, codecName string) bench.ILoad {
	c, err := codec.New(codecName)
	if err != nil {
		t.Fatalf("codec.New failed: %v", err)
	}
	opts := DefaultOptions()
	opts.Store = mapleStore
	opts.Codec = c
	load, err := NewLoad(opts)
	if err != nil {
		t.Fatalf("NewLoad failed: %v", err)
	}
	return load
}

func TestCrudRun(t *testing.T) {
	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			cfg := bench.Config{
				A:          bench.Range{Start: 2, End: 8, Scale: 2},
				B:          bench.Range{Start: 3, End: 9, Scale: 3},
				WarmupRuns: 1,
				HotRuns:    1,
				ClearCache: true,
			}
			res, err := bench.NewDriver(cfg, newLoad(t, name)).Run(context.Background())
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			ops := res.Ops["crud/"+name]
			if want := 2 * 3 * 2 * len(ops); len(res.Samples) != want {
				t.Errorf("Expected %d samples, got %d", want, len(res.Samples))
			}
		})
	}
}

func TestCrudWithoutCacheClearing(t *testing.T) {
	cfg := bench.Config{
		A:       bench.Range{Start: 4, End: 4},
		B:       bench.Range{Start: 5, End: 5},
		HotRuns: 2,
	}
	if _, err := bench.NewDriver(cfg, newLoad(t, "binary")).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestOperationNames(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxVarbinaryBytes = 10
	opts.MaxVarcharChars = 0
	var names []string
	for _, op := range operations(&loadImpl{}, opts) {
		names = append(names, op.Name())
	}
	want := []string{
		"insA", "insB", "setAByPK", "setBByPK", "getAByPK", "getBByPK",
		"setVarbin1", "getVarbin1", "setVarbin10", "getVarbin10", "clearVarbin",
		"setBToA", "navBToA", "navAToB", "nullBToA", "delBByPK", "delAByPK",
		"reinsA", "reinsB", "delAllB", "delAllA",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestVerificationFailure(t *testing.T) {
	cfg := bench.Config{
		A:       bench.Range{Start: 2, End: 2},
		B:       bench.Range{Start: 2, End: 2},
		HotRuns: 1,
		Exclude: []string{"setAByPK"},
	}
	_, err := bench.NewDriver(cfg, newLoad(t, "json")).Run(context.Background())

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *VerifyError, got %v", err)
	}
	var opErr *bench.OpError
	if !errors.As(err, &opErr) || opErr.Op != "getAByPK" {
		t.Errorf("Expected failure in getAByPK, got %v", err)
	}
}

func TestPatterns(t *testing.T) {
	if got := varchar(25, 3); got != "zab" {
		t.Errorf("Expected zab, got %s", got)
	}
	if got := varbinary(255, 2); got[0] != 255 || got[1] != 0 {
		t.Errorf("Expected [255 0], got %v", got)
	}
	if aidOf(5, 2) != 1 || aidOf(4, 2) != 2 {
		t.Errorf("Unexpected relation mapping")
	}
}
