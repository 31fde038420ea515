package codec

import (
	"encoding/json"
	"github.com/ValentinKolb/crund/lib/model"
)

// NewJSONCodec creates a codec storing entities as JSON documents
func NewJSONCodec() model.ICodec {
	return &jsonCodecImpl{}
}

type jsonCodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see model.ICodec)
// --------------------------------------------------------------------------

func (jsonCodecImpl) Name() string { return "json" }

func (jsonCodecImpl) MarshalA(a *model.A) ([]byte, error) {
	return json.Marshal(a)
}

func (jsonCodecImpl) UnmarshalA(data []byte, a *model.A) error {
	*a = model.A{}
	return json.Unmarshal(data, a)
}

func (jsonCodecImpl) MarshalB(b *model.B) ([]byte, error) {
	return json.Marshal(b)
}

func (jsonCodecImpl) UnmarshalB(data []byte, b *model.B) error {
	*b = model.B{}
	return json.Unmarshal(data, b)
}
