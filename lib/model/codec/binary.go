package codec

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/crund/lib/model"
	"math"
)

// NewBinaryCodec creates a codec with a fixed big endian layout:
//
//	A: id int32, cint int32, clong int64, cfloat float32, cdouble float64 (28 bytes)
//	B: the A layout, aid int32, varbinary length int32 (-1 = null), varbinary,
//	   varchar length int32, varchar
func NewBinaryCodec() model.ICodec {
	return &binaryCodecImpl{}
}

type binaryCodecImpl struct{}

const (
	sizeA     = 4 + 4 + 8 + 4 + 8
	sizeBBase = sizeA + 4 + 4 + 4
)

// --------------------------------------------------------------------------
// Interface Methods (docu see model.ICodec)
// --------------------------------------------------------------------------

func (binaryCodecImpl) Name() string { return "binary" }

func (binaryCodecImpl) MarshalA(a *model.A) ([]byte, error) {
	result := make([]byte, sizeA)
	putNumbers(result, a.ID, a.CInt, a.CLong, a.CFloat, a.CDouble)
	return result, nil
}

func (binaryCodecImpl) UnmarshalA(data []byte, a *model.A) error {
	if len(data) != sizeA {
		return fmt.Errorf("invalid A length %d, expected %d", len(data), sizeA)
	}
	a.ID, a.CInt, a.CLong, a.CFloat, a.CDouble = readNumbers(data)
	return nil
}

func (binaryCodecImpl) MarshalB(b *model.B) ([]byte, error) {
	result := make([]byte, sizeBBase+len(b.CVarbinary)+len(b.CVarchar))
	putNumbers(result, b.ID, b.CInt, b.CLong, b.CFloat, b.CDouble)

	pos := sizeA
	binary.BigEndian.PutUint32(result[pos:], uint32(b.AID))
	pos += 4

	if b.CVarbinary == nil {
		binary.BigEndian.PutUint32(result[pos:], math.MaxUint32) // -1
	} else {
		binary.BigEndian.PutUint32(result[pos:], uint32(len(b.CVarbinary)))
	}
	pos += 4
	pos += copy(result[pos:], b.CVarbinary)

	binary.BigEndian.PutUint32(result[pos:], uint32(len(b.CVarchar)))
	pos += 4
	copy(result[pos:], b.CVarchar)
	return result, nil
}

func (binaryCodecImpl) UnmarshalB(data []byte, b *model.B) error {
	if len(data) < sizeBBase {
		return fmt.Errorf("data too short for B: %d bytes", len(data))
	}
	*b = model.B{}
	b.ID, b.CInt, b.CLong, b.CFloat, b.CDouble = readNumbers(data)

	pos := sizeA
	b.AID = int32(binary.BigEndian.Uint32(data[pos:]))
	pos += 4

	if n := int32(binary.BigEndian.Uint32(data[pos:])); n >= 0 {
		pos += 4
		if len(data) < pos+int(n)+4 {
			return fmt.Errorf("data too short for varbinary of length %d", n)
		}
		b.CVarbinary = make([]byte, n)
		pos += copy(b.CVarbinary, data[pos:pos+int(n)])
	} else {
		pos += 4
	}

	n := int(binary.BigEndian.Uint32(data[pos:]))
	pos += 4
	if len(data) != pos+n {
		return fmt.Errorf("invalid varchar length %d for %d remaining bytes", n, len(data)-pos)
	}
	b.CVarchar = string(data[pos:])
	return nil
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func putNumbers(dst []byte, id, cint int32, clong int64, cfloat float32, cdouble float64) {
	binary.BigEndian.PutUint32(dst[0:], uint32(id))
	binary.BigEndian.PutUint32(dst[4:], uint32(cint))
	binary.BigEndian.PutUint64(dst[8:], uint64(clong))
	binary.BigEndian.PutUint32(dst[16:], math.Float32bits(cfloat))
	binary.BigEndian.PutUint64(dst[20:], math.Float64bits(cdouble))
}

func readNumbers(src []byte) (id, cint int32, clong int64, cfloat float32, cdouble float64) {
	id = int32(binary.BigEndian.Uint32(src[0:]))
	cint = int32(binary.BigEndian.Uint32(src[4:]))
	clong = int64(binary.BigEndian.Uint64(src[8:]))
	cfloat = math.Float32frombits(binary.BigEndian.Uint32(src[16:]))
	cdouble = math.Float64frombits(binary.BigEndian.Uint64(src[20:]))
	return
}
