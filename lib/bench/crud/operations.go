package crud

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/model"
)

// operations returns the operations of the load in execution order.
// A operations iterate over the ids 1..countA, B operations over 1..countB.
func operations(l *loadImpl, opts Options) []bench.Operation {
	ops := []bench.Operation{
		bench.NewOperation("insA", l.insA),
		bench.NewOperation("insB", l.insB),
		bench.NewOperation("setAByPK", l.setAByPK),
		bench.NewOperation("setBByPK", l.setBByPK),
		bench.NewOperation("getAByPK", l.getAByPK),
		bench.NewOperation("getBByPK", l.getBByPK),
	}

	for _, length := range lengths(opts.MaxVarbinaryBytes) {
		length := length
		ops = append(ops,
			bench.NewOperation(fmt.Sprintf("setVarbin%d", length), func(ctx context.Context, _, nB int) error {
				return l.updateBs(ctx, nB, func(b *model.B) { b.CVarbinary = varbinary(b.ID, length) })
			}),
			bench.NewOperation(fmt.Sprintf("getVarbin%d", length), func(ctx context.Context, _, nB int) error {
				return l.verifyBs(ctx, nB, func(b *model.B) error {
					if want := varbinary(b.ID, length); !bytes.Equal(b.CVarbinary, want) {
						return &VerifyError{Entity: "B", ID: b.ID, Field: "cvarbinary", Want: want, Got: b.CVarbinary}
					}
					return nil
				})
			}),
		)
	}
	if opts.MaxVarbinaryBytes > 0 {
		ops = append(ops, bench.NewOperation("clearVarbin", func(ctx context.Context, _, nB int) error {
			return l.updateBs(ctx, nB, func(b *model.B) { b.CVarbinary = nil })
		}))
	}

	for _, length := range lengths(opts.MaxVarcharChars) {
		length := length
		ops = append(ops,
			bench.NewOperation(fmt.Sprintf("setVarchar%d", length), func(ctx context.Context, _, nB int) error {
				return l.updateBs(ctx, nB, func(b *model.B) { b.CVarchar = varchar(b.ID, length) })
			}),
			bench.NewOperation(fmt.Sprintf("getVarchar%d", length), func(ctx context.Context, _, nB int) error {
				return l.verifyBs(ctx, nB, func(b *model.B) error {
					if want := varchar(b.ID, length); b.CVarchar != want {
						return &VerifyError{Entity: "B", ID: b.ID, Field: "cvarchar", Want: want, Got: b.CVarchar}
					}
					return nil
				})
			}),
		)
	}
	if opts.MaxVarcharChars > 0 {
		ops = append(ops, bench.NewOperation("clearVarchar", func(ctx context.Context, _, nB int) error {
			return l.updateBs(ctx, nB, func(b *model.B) { b.CVarchar = "" })
		}))
	}

	return append(ops,
		bench.NewOperation("setBToA", l.setBToA),
		bench.NewOperation("navBToA", l.navBToA),
		bench.NewOperation("navAToB", l.navAToB),
		bench.NewOperation("nullBToA", func(ctx context.Context, _, nB int) error {
			return l.updateBs(ctx, nB, func(b *model.B) { b.AID = 0 })
		}),
		bench.NewOperation("delBByPK", l.delBByPK),
		bench.NewOperation("delAByPK", l.delAByPK),
		bench.NewOperation("reinsA", l.insA),
		bench.NewOperation("reinsB", l.insB),
		bench.NewOperation("delAllB", func(_ context.Context, _, nB int) error {
			return l.deleteAll(model.KindB, nB)
		}),
		bench.NewOperation("delAllA", func(_ context.Context, nA, _ int) error {
			return l.deleteAll(model.KindA, nA)
		}),
	)
}

// lengths returns 1, 10, 100, ... up to limit
func lengths(limit int) []int {
	var ls []int
	for l := 1; l <= limit; l *= 10 {
		ls = append(ls, l)
	}
	return ls
}

// --------------------------------------------------------------------------
// Attribute patterns
// --------------------------------------------------------------------------

func setAttrsA(a *model.A, v int32) {
	a.CInt, a.CLong, a.CFloat, a.CDouble = v, int64(v), float32(v), float64(v)
}

func setAttrsB(b *model.B, v int32) {
	b.CInt, b.CLong, b.CFloat, b.CDouble = v, int64(v), float32(v), float64(v)
}

func verifyAttrs(entity string, id, cint int32, clong int64, cfloat float32, cdouble float64, v int32) error {
	switch {
	case cint != v:
		return &VerifyError{Entity: entity, ID: id, Field: "cint", Want: v, Got: cint}
	case clong != int64(v):
		return &VerifyError{Entity: entity, ID: id, Field: "clong", Want: int64(v), Got: clong}
	case cfloat != float32(v):
		return &VerifyError{Entity: entity, ID: id, Field: "cfloat", Want: float32(v), Got: cfloat}
	case cdouble != float64(v):
		return &VerifyError{Entity: entity, ID: id, Field: "cdouble", Want: float64(v), Got: cdouble}
	}
	return nil
}

func varbinary(id int32, length int) []byte {
	b := make([]byte, length)
	for j := range b {
		b[j] = byte(int(id) + j)
	}
	return b
}

func varchar(id int32, length int) string {
	b := make([]byte, length)
	for j := range b {
		b[j] = byte('a' + (int(id)+j)%26)
	}
	return string(b)
}

// aidOf is the A a B is related to by setBToA
func aidOf(bid int32, nA int) int32 {
	return int32((int(bid)-1)%nA + 1)
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

func (l *loadImpl) insA(ctx context.Context, nA, _ int) error {
	for id := int32(1); int(id) <= nA; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		a := &model.A{ID: id}
		setAttrsA(a, id)
		if err := l.session.InsertA(a); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) insB(ctx context.Context, _, nB int) error {
	for id := int32(1); int(id) <= nB; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		b := &model.B{ID: id}
		setAttrsB(b, id)
		if err := l.session.InsertB(b); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) findA(id int32) (*model.A, error) {
	a, ok, err := l.session.FindA(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("A %d: %w", id, model.ErrNotFound)
	}
	return a, nil
}

func (l *loadImpl) findB(id int32) (*model.B, error) {
	b, ok, err := l.session.FindB(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("B %d: %w", id, model.ErrNotFound)
	}
	return b, nil
}

func (l *loadImpl) setAByPK(ctx context.Context, nA, _ int) error {
	for id := int32(1); int(id) <= nA; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		a, err := l.findA(id)
		if err != nil {
			return err
		}
		setAttrsA(a, -id)
		if err := l.session.UpdateA(a); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) setBByPK(ctx context.Context, _, nB int) error {
	return l.updateBs(ctx, nB, func(b *model.B) { setAttrsB(b, -b.ID) })
}

func (l *loadImpl) getAByPK(ctx context.Context, nA, _ int) error {
	for id := int32(1); int(id) <= nA; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		a, err := l.findA(id)
		if err != nil {
			return err
		}
		if err := verifyAttrs("A", a.ID, a.CInt, a.CLong, a.CFloat, a.CDouble, -id); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) getBByPK(ctx context.Context, _, nB int) error {
	return l.verifyBs(ctx, nB, func(b *model.B) error {
		return verifyAttrs("B", b.ID, b.CInt, b.CLong, b.CFloat, b.CDouble, -b.ID)
	})
}

func (l *loadImpl) setBToA(ctx context.Context, nA, nB int) error {
	return l.updateBs(ctx, nB, func(b *model.B) { b.AID = aidOf(b.ID, nA) })
}

// navBToA loads the A of every B
func (l *loadImpl) navBToA(ctx context.Context, nA, nB int) error {
	return l.verifyBs(ctx, nB, func(b *model.B) error {
		if want := aidOf(b.ID, nA); b.AID != want {
			return &VerifyError{Entity: "B", ID: b.ID, Field: "aid", Want: want, Got: b.AID}
		}
		a, err := l.findA(b.AID)
		if err != nil {
			return err
		}
		return verifyAttrs("A", a.ID, a.CInt, a.CLong, a.CFloat, a.CDouble, -a.ID)
	})
}

// navAToB loads the Bs of every A through the index
func (l *loadImpl) navAToB(ctx context.Context, nA, nB int) error {
	total := 0
	for aid := int32(1); int(aid) <= nA; aid++ {
		if err := checkCtx(ctx, aid); err != nil {
			return err
		}
		ids, err := l.session.FindBsByA(aid)
		if err != nil {
			return err
		}
		for _, bid := range ids {
			b, err := l.findB(bid)
			if err != nil {
				return err
			}
			if b.AID != aid {
				return &VerifyError{Entity: "B", ID: bid, Field: "aid", Want: aid, Got: b.AID}
			}
		}
		total += len(ids)
	}
	if total != nB {
		return &VerifyError{Entity: "B", Field: "count via A", Want: nB, Got: total}
	}
	return nil
}

func (l *loadImpl) delAByPK(ctx context.Context, nA, _ int) error {
	for id := int32(1); int(id) <= nA; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		if err := l.session.DeleteA(id); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) delBByPK(ctx context.Context, _, nB int) error {
	for id := int32(1); int(id) <= nB; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		if err := l.session.DeleteB(id); err != nil {
			return err
		}
	}
	return nil
}

func (l *loadImpl) deleteAll(kind model.Kind, want int) error {
	n, err := l.session.DeleteAll(kind)
	if err != nil {
		return err
	}
	if n != want {
		return &VerifyError{Entity: kind.String(), Field: "deleted", Want: want, Got: n}
	}
	return nil
}

// updateBs loads every B, applies set and writes it back
func (l *loadImpl) updateBs(ctx context.Context, nB int, set func(b *model.B)) error {
	for id := int32(1); int(id) <= nB; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		b, err := l.findB(id)
		if err != nil {
			return err
		}
		set(b)
		if err := l.session.UpdateB(b); err != nil {
			return err
		}
	}
	return nil
}

// verifyBs loads every B and checks it
func (l *loadImpl) verifyBs(ctx context.Context, nB int, verify func(b *model.B) error) error {
	for id := int32(1); int(id) <= nB; id++ {
		if err := checkCtx(ctx, id); err != nil {
			return err
		}
		b, err := l.findB(id)
		if err != nil {
			return err
		}
		if err := verify(b); err != nil {
			return err
		}
	}
	return nil
}

// checkCtx checks for cancellation every 1024 ids
func checkCtx(ctx context.Context, id int32) error {
	if id&1023 == 0 {
		return ctx.Err()
	}
	return nil
}
