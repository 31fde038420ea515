package codec

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/model"
	"sort"
	"strings"
)

var codecs = map[string]func() model.ICodec{
	"json":   NewJSONCodec,
	"gob":    NewGOBCodec,
	"binary": NewBinaryCodec,
	"avro":   NewAvroCodec,
}

// New returns the codec with the given name
func New(name string) (model.ICodec, error) {
	create, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return create(), nil
}

// Names returns the names of all codecs in alphabetical order
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
