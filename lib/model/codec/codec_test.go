package codec

import (
	"bytes"
	"github.com/ValentinKolb/crund/lib/model"
	"testing"
)

func testEntities() ([]model.A, []model.B) {
	as := []model.A{
		{},
		{ID: 1, CInt: 1, CLong: 1, CFloat: 1, CDouble: 1},
		{ID: 7, CInt: -7, CLong: -7 << 40, CFloat: -7.5, CDouble: -7.25},
	}
	bs := []model.B{
		{ID: 1, CInt: 1, CLong: 1, CFloat: 1, CDouble: 1, AID: 1},
		{ID: 2, AID: 0, CVarbinary: []byte{2, 3, 4}, CVarchar: "cde"},
		{ID: 3, CVarbinary: make([]byte, 1000), CVarchar: string(bytes.Repeat([]byte("x"), 1000))},
	}
	return as, bs
}

func TestCodecs(t *testing.T) {
	as, bs := testEntities()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", name, err)
			}
			if c.Name() != name {
				t.Errorf("Expected name %q, got %q", name, c.Name())
			}

			for _, a := range as {
				data, err := c.MarshalA(&a)
				if err != nil {
					t.Fatalf("MarshalA failed: %v", err)
				}
				var got model.A
				if err := c.UnmarshalA(data, &got); err != nil {
					t.Fatalf("UnmarshalA failed: %v", err)
				}
				if got != a {
					t.Errorf("Expected %+v, got %+v", a, got)
				}
			}

			for _, b := range bs {
				data, err := c.MarshalB(&b)
				if err != nil {
					t.Fatalf("MarshalB failed: %v", err)
				}
				got := model.B{CVarchar: "stale"}
				if err := c.UnmarshalB(data, &got); err != nil {
					t.Fatalf("UnmarshalB failed: %v", err)
				}
				if got.ID != b.ID || got.CInt != b.CInt || got.CLong != b.CLong || got.CFloat != b.CFloat ||
					got.CDouble != b.CDouble || got.AID != b.AID || got.CVarchar != b.CVarchar ||
					!bytes.Equal(got.CVarbinary, b.CVarbinary) {
					t.Errorf("Expected %+v, got %+v", b, got)
				}
			}
		})
	}
}

func TestNullVarbinary(t *testing.T) {
	for _, name := range []string{"binary", "avro"} {
		c, _ := New(name)
		var got model.B
		data, _ := c.MarshalB(&model.B{ID: 1, CVarbinary: []byte{}})
		if err := c.UnmarshalB(data, &got); err != nil {
			t.Fatalf("%s: UnmarshalB failed: %v", name, err)
		}
		if got.CVarbinary == nil {
			t.Errorf("%s: Expected empty varbinary to stay non-nil", name)
		}

		data, _ = c.MarshalB(&model.B{ID: 1})
		if err := c.UnmarshalB(data, &got); err != nil {
			t.Fatalf("%s: UnmarshalB failed: %v", name, err)
		}
		if got.CVarbinary != nil {
			t.Errorf("%s: Expected nil varbinary, got %v", name, got.CVarbinary)
		}
	}
}

func TestBinaryRejectsCorruptData(t *testing.T) {
	c := NewBinaryCodec()
	var a model.A
	if err := c.UnmarshalA([]byte{1, 2, 3}, &a); err == nil {
		t.Errorf("Expected error for short A")
	}
	data, _ := c.MarshalB(&model.B{ID: 1, CVarchar: "abc"})
	var b model.B
	if err := c.UnmarshalB(data[:len(data)-1], &b); err == nil {
		t.Errorf("Expected error for truncated B")
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := New("xml"); err == nil {
		t.Errorf("Expected error for unknown codec")
	}
	if _, err := New("JSON"); err != nil {
		t.Errorf("Expected codec names to be case insensitive, got %v", err)
	}
}
