package codec

import (
	"bytes"
	"encoding/gob"
	"github.com/ValentinKolb/crund/lib/model"
)

// NewGOBCodec creates a codec using Go's gob format.
// Every value is a self-contained gob stream, so each carries its type description.
func NewGOBCodec() model.ICodec {
	return &gobCodecImpl{}
}

type gobCodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see model.ICodec)
// --------------------------------------------------------------------------

func (gobCodecImpl) Name() string { return "gob" }

func (gobCodecImpl) MarshalA(a *model.A) ([]byte, error) {
	return gobEncode(a)
}

func (gobCodecImpl) UnmarshalA(data []byte, a *model.A) error {
	*a = model.A{}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(a)
}

func (gobCodecImpl) MarshalB(b *model.B) ([]byte, error) {
	return gobEncode(b)
}

func (gobCodecImpl) UnmarshalB(data []byte, b *model.B) error {
	*b = model.B{}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(b)
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
