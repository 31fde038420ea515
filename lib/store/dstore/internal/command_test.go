package internal

import (
	"github.com/ValentinKolb/crund/lib/store"
	"reflect"
	"testing"
)

func TestCommandSerialization(t *testing.T) {
	cmd := Command{Ops: []store.Op{
		{Type: store.OpSet, Key: "a/0000000001", Value: []byte("value")},
		{Type: store.OpSetIfUnset, Key: "l/lock", Value: []byte{}},
		{Type: store.OpDelete, Key: "b/0000000002"},
	}}

	data := cmd.Serialize()
	if len(data) != cmd.SizeBytes() {
		t.Errorf("Expected %d bytes, got %d", cmd.SizeBytes(), len(data))
	}

	var decoded Command
	if err := decoded.Deserialize(data); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if len(decoded.Ops) != 3 {
		t.Fatalf("Expected 3 ops, got %d", len(decoded.Ops))
	}
	if !reflect.DeepEqual(decoded.Ops[0], cmd.Ops[0]) {
		t.Errorf("Expected %v, got %v", cmd.Ops[0], decoded.Ops[0])
	}
	if decoded.Ops[2].Type != store.OpDelete || decoded.Ops[2].Key != "b/0000000002" || len(decoded.Ops[2].Value) != 0 {
		t.Errorf("Unexpected delete op %v", decoded.Ops[2])
	}
}

func TestCommandDeserializeInvalid(t *testing.T) {
	valid := (&Command{Ops: []store.Op{{Type: store.OpSet, Key: "k", Value: []byte("v")}}}).Serialize()

	tests := map[string][]byte{
		"empty":     {},
		"version":   append([]byte{9}, valid[1:]...),
		"truncated": valid[:len(valid)-1],
		"trailing":  append(append([]byte{}, valid...), 0),
		"count":     {commandVersion, 0, 0, 0, 5},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var cmd Command
			if err := cmd.Deserialize(data); err == nil {
				t.Errorf("Expected error for %s command", name)
			}
		})
	}
}
