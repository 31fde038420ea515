package codec

import (
	"github.com/ValentinKolb/crund/lib/model"
	"github.com/hamba/avro"
)

var (
	schemaA = avro.MustParse(`{
    "type": "record",
    "name": "A",
    "namespace": "crund.model",
    "fields": [
      {"name": "id", "type": "int"},
      {"name": "cint", "type": "int"},
      {"name": "clong", "type": "long"},
      {"name": "cfloat", "type": "float"},
      {"name": "cdouble", "type": "double"}
    ]
  }`)

	schemaB = avro.MustParse(`{
    "type": "record",
    "name": "B",
    "namespace": "crund.model",
    "fields": [
      {"name": "id", "type": "int"},
      {"name": "cint", "type": "int"},
      {"name": "clong", "type": "long"},
      {"name": "cfloat", "type": "float"},
      {"name": "cdouble", "type": "double"},
      {"name": "aid", "type": "int"},
      {"name": "cvarbinary", "type": "bytes"},
      {"name": "cvarbinary_null", "type": "boolean"},
      {"name": "cvarchar", "type": "string"}
    ]
  }`)
)

type avroA struct {
	ID      int32   `avro:"id"`
	CInt    int32   `avro:"cint"`
	CLong   int64   `avro:"clong"`
	CFloat  float32 `avro:"cfloat"`
	CDouble float64 `avro:"cdouble"`
}

type avroB struct {
	ID            int32   `avro:"id"`
	CInt          int32   `avro:"cint"`
	CLong         int64   `avro:"clong"`
	CFloat        float32 `avro:"cfloat"`
	CDouble       float64 `avro:"cdouble"`
	AID           int32   `avro:"aid"`
	CVarbinary    []byte  `avro:"cvarbinary"`
	VarbinaryNull bool    `avro:"cvarbinary_null"`
	CVarchar      string  `avro:"cvarchar"`
}

// NewAvroCodec creates a codec encoding entities with fixed avro record schemas
func NewAvroCodec() model.ICodec {
	return &avroCodecImpl{}
}

type avroCodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see model.ICodec)
// --------------------------------------------------------------------------

func (avroCodecImpl) Name() string { return "avro" }

func (avroCodecImpl) MarshalA(a *model.A) ([]byte, error) {
	return avro.Marshal(schemaA, avroA(*a))
}

func (avroCodecImpl) UnmarshalA(data []byte, a *model.A) error {
	var v avroA
	if err := avro.Unmarshal(schemaA, data, &v); err != nil {
		return err
	}
	*a = model.A(v)
	return nil
}

func (avroCodecImpl) MarshalB(b *model.B) ([]byte, error) {
	return avro.Marshal(schemaB, avroB{
		ID:            b.ID,
		CInt:          b.CInt,
		CLong:         b.CLong,
		CFloat:        b.CFloat,
		CDouble:       b.CDouble,
		AID:           b.AID,
		CVarbinary:    b.CVarbinary,
		VarbinaryNull: b.CVarbinary == nil,
		CVarchar:      b.CVarchar,
	})
}

func (avroCodecImpl) UnmarshalB(data []byte, b *model.B) error {
	var v avroB
	if err := avro.Unmarshal(schemaB, data, &v); err != nil {
		return err
	}
	*b = model.B{
		ID:       v.ID,
		CInt:     v.CInt,
		CLong:    v.CLong,
		CFloat:   v.CFloat,
		CDouble:  v.CDouble,
		AID:      v.AID,
		CVarchar: v.CVarchar,
	}
	if !v.VarbinaryNull {
		b.CVarbinary = v.CVarbinary
		if b.CVarbinary == nil {
			b.CVarbinary = []byte{}
		}
	}
	return nil
}
