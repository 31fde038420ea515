// Package serializer turns common.Message values into bytes and back for the crund
// RPC layer. Client and server must use the same serializer, selected by name with
// New (binary, json, gob).
//
// binary is a hand-written layout: a flag byte records which fields are present,
// strings and byte slices are length prefixed, commit batches and scan results are
// counted lists. It keeps nil and empty values apart and is the default.
//
// json and gob wrap the encoders of the standard library. Both drop empty byte
// slices, so a Set of an empty value arrives as nil; the rpc client restores it.
// In the benchmarks of this package gob is the slowest and largest of the three.
//
// All serializers are safe for concurrent use.
//
//	s, err := serializer.New("binary")
//	data, err := s.Serialize(msg)
//	var reply common.Message
//	err = s.Deserialize(data, &reply)
package serializer
