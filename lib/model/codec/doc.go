// Package codec contains the model.ICodec implementations selectable with --codec.
//
//   - json: encoding/json documents, readable in the store but the largest values.
//   - gob: encoding/gob streams. Every value repeats the type description.
//   - binary: a hand-written fixed layout, the smallest and fastest encoding.
//   - avro: hamba/avro records with fixed schemas.
//
// The json and gob codecs do not distinguish a nil from an empty varbinary.
// All codecs are stateless and safe for concurrent use.
package codec
