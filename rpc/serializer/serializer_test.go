package serializer

import (
	"bytes"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Get request
		{
			MsgType: common.MsgTGet,
			Key:     "test-key",
		},

		// Get response
		{
			MsgType: common.MsgTGet,
			Value:   []byte("test-value"),
			Ok:      true,
		},

		// Commit request
		{
			MsgType: common.MsgTCommit,
			Ops: []store.Op{
				{Type: store.OpSet, Key: "a/1", Value: []byte("one")},
				{Type: store.OpSetIfUnset, Key: "l/x", Value: []byte("owner")},
				{Type: store.OpDelete, Key: "a/2"},
			},
		},

		// Scan response
		{
			MsgType: common.MsgTScan,
			Keys:    []string{"a/1", "a/2"},
			Values:  [][]byte{[]byte("one"), []byte("two")},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    store.RetCUnsupportedOperation,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTLCKRelease,
			Key:     "test-lock-key",
			Value:   []byte("test-lock-value"),
			Ops:     []store.Op{{Type: store.OpSet, Key: "k", Value: []byte("v")}},
			Keys:    []string{"x", "y", "z"},
			Values:  [][]byte{[]byte("1")},
			Ok:      true,
			Code:    store.RetCInvalidOperation,
			Err:     "lock owned by someone else",
			Meta:    []byte(`{"keys":3}`),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage tests that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTHas, Key: "k"})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := common.Message{Value: []byte("stale"), Ok: true, Err: "stale"}
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if result.Value != nil || result.Ok || result.Err != "" {
				t.Errorf("Expected a clean message, got %+v", result)
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTLCKRelease; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestResponseErr tests that return codes survive the trip through a response
func TestResponseErr(t *testing.T) {
	serializer := NewBinarySerializer()

	resp := common.NewCommitResponse(store.NewError(store.RetCUnsupportedOperation, "no scan"))
	data, err := serializer.Serialize(*resp)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	var result common.Message
	if err := serializer.Deserialize(data, &result); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}

	respErr := result.ResponseErr()
	if store.ErrorCode(respErr) != store.RetCUnsupportedOperation {
		t.Errorf("Expected code %s, got %s", store.RetCUnsupportedOperation, store.ErrorCode(respErr))
	}
	if common.NewCommitResponse(nil).ResponseErr() != nil {
		t.Errorf("Expected no error for a successful response")
	}
	if store.ErrorCode(common.NewErrorResponse(0, "boom").ResponseErr()) != store.RetCInternalError {
		t.Errorf("Expected an error without code to be an internal error")
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty slices but not nil",
			msg: common.Message{
				MsgType: common.MsgTCommit,
				Value:   []byte{},
				Ops:     []store.Op{},
				Keys:    []string{},
				Values:  [][]byte{},
				Meta:    []byte{},
			},
		},
		{
			name: "Ops with nil and empty values",
			msg: common.Message{
				MsgType: common.MsgTCommit,
				Ops: []store.Op{
					{Type: store.OpSet, Key: "empty", Value: []byte{}},
					{Type: store.OpDelete, Key: "deleted"},
					{Type: store.OpSet, Key: "", Value: []byte("empty key")},
				},
			},
		},
		{
			name: "Scan values with nil and empty entries",
			msg: common.Message{
				MsgType: common.MsgTScan,
				Keys:    []string{"a", "b", "c"},
				Values:  [][]byte{nil, {}, []byte("c")},
			},
		},
		{
			name: "Message with empty strings but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTHas,
				Ok:      true,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// nil and empty slices have to be kept apart, DeepEqual does that
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestBinarySize tests that the binary format stays compact
func TestBinarySize(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(*common.NewGetRequest("key"))
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	expected := []byte{byte(common.MsgTGet), 0, 1, 0, 0, 0, 3, 'k', 'e', 'y'}
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected %v, got %v", expected, data)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half of the flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{3, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{3, 0, 2, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Invalid op count",
			data:        []byte{6, 0, 4, 0xff, 0xff, 0xff, 0xff}, // Claims 4 billion ops
			expectError: true,
		},
		{
			name:        "Truncated op",
			data:        []byte{6, 0, 4, 0, 0, 0, 1, 1, 0, 0, 0, 1}, // Op key data missing
			expectError: true,
		},
		{
			name:        "Missing code",
			data:        []byte{2, 0, 64, 0, 0}, // Code needs 8 bytes
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestNew tests the lookup of serializers by name
func TestNew(t *testing.T) {
	for _, name := range []string{"binary", "JSON", "gob", ""} {
		if _, err := New(name); err != nil {
			t.Errorf("Expected serializer for %q, got error %v", name, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}
