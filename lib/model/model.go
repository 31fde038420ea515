package model

import (
	"fmt"
	"strconv"
	"strings"
)

// A is the parent entity of the benchmark schema
type A struct {
	ID      int32   `json:"id"`
	CInt    int32   `json:"cint"`
	CLong   int64   `json:"clong"`
	CFloat  float32 `json:"cfloat"`
	CDouble float64 `json:"cdouble"`
}

// B is the child entity of the benchmark schema, AID references an A (0 = no relation).
// CVarbinary and CVarchar carry the variable length payload of the varbinary and varchar operations.
type B struct {
	ID         int32   `json:"id"`
	CInt       int32   `json:"cint"`
	CLong      int64   `json:"clong"`
	CFloat     float32 `json:"cfloat"`
	CDouble    float64 `json:"cdouble"`
	AID        int32   `json:"aid"`
	CVarbinary []byte  `json:"cvarbinary,omitempty"`
	CVarchar   string  `json:"cvarchar,omitempty"`
}

// Kind selects one of the entity tables
type Kind uint8

const (
	KindA Kind = iota + 1
	KindB
)

func (k Kind) String() string {
	switch k {
	case KindA:
		return "A"
	case KindB:
		return "B"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// --------------------------------------------------------------------------
// Key layout
// --------------------------------------------------------------------------

const (
	PrefixA     = "a/"
	PrefixB     = "b/"
	PrefixIndex = "i/b.aid/" // secondary index B.AID -> B.ID
)

// AKey returns the store key of an A
func AKey(id int32) string {
	return fmt.Sprintf("%s%010d", PrefixA, id)
}

// BKey returns the store key of a B
func BKey(id int32) string {
	return fmt.Sprintf("%s%010d", PrefixB, id)
}

// IndexPrefix returns the prefix of all index entries of the Bs referencing aid
func IndexPrefix(aid int32) string {
	return fmt.Sprintf("%s%010d/", PrefixIndex, aid)
}

// IndexKey returns the index entry for the relation bid -> aid
func IndexKey(aid, bid int32) string {
	return fmt.Sprintf("%s%010d", IndexPrefix(aid), bid)
}

// parseIndexKey extracts the B id from an index key
func parseIndexKey(key string) (int32, error) {
	i := strings.LastIndexByte(key, '/')
	if i < 0 {
		return 0, fmt.Errorf("invalid index key %q", key)
	}
	id, err := strconv.ParseInt(key[i+1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index key %q: %w", key, err)
	}
	return int32(id), nil
}

func prefixOf(kind Kind) string {
	if kind == KindA {
		return PrefixA
	}
	return PrefixB
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// ICodec converts entities to the bytes stored as values.
// Implementations live in the codec package.
type ICodec interface {
	// Name returns the name the codec is selected by
	Name() string
	MarshalA(a *A) ([]byte, error)
	UnmarshalA(data []byte, a *A) error
	MarshalB(b *B) ([]byte, error)
	UnmarshalB(data []byte, b *B) error
}
