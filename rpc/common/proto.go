package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string     `json:"key,omitempty"`   // Used for: Get, Has, Scan (prefix)
	Value []byte     `json:"value,omitempty"` // Used for: Get (response), Acquire (response), Release (request)
	Ops   []store.Op `json:"ops,omitempty"`   // Used for: Commit (request)
	Keys  []string   `json:"keys,omitempty"`  // Used for: Acquire, Release (request), Scan (response)

	// Response only fields
	Values [][]byte      `json:"values,omitempty"` // Used for: Scan responses, same order as Keys
	Ok     bool          `json:"ok,omitempty"`     // Used for: Get, Has, Acquire, Release responses
	Code   store.RetCode `json:"code,omitempty"`   // Return code of Err
	Err    string        `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info (json encoded db.DatabaseInfo)
}

// ResponseErr returns the error carried by a response, nil if there is none
func (m *Message) ResponseErr() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := m.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// setErr stores err and its return code in the message
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	m.Code = store.ErrorCode(err)
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		m.Err = storeErr.Msg
	} else {
		m.Err = err.Error()
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTGet,
		Ok:      ok,
		Value:   value,
	}
	return msg.setErr(err)
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{
		MsgType: MsgTHas,
		Key:     key,
	}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTHas,
		Ok:      ok,
	}
	return msg.setErr(err)
}

// NewScanRequest creates a new Scan request for all keys with the given prefix
func NewScanRequest(prefix string) *Message {
	return &Message{
		MsgType: MsgTScan,
		Key:     prefix,
	}
}

// NewScanResponse creates a new Scan response, keys and values have the same length
func NewScanResponse(keys []string, values [][]byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTScan,
		Keys:    keys,
		Values:  values,
	}
	return msg.setErr(err)
}

// NewCommitRequest creates a new Commit request carrying the writes of a transaction
func NewCommitRequest(ops []store.Op) *Message {
	return &Message{
		MsgType: MsgTCommit,
		Ops:     ops,
	}
}

// NewCommitResponse creates a new Commit response
func NewCommitResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTCommit,
	}
	return msg.setErr(err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTInfo,
	}
}

// NewInfoResponse creates a new Info response
func NewInfoResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTInfo,
		Meta:    meta,
	}
	return msg.setErr(err)
}

// NewAcquireRequest creates a new Acquire request for all keys
func NewAcquireRequest(keys []string) *Message {
	return &Message{
		MsgType: MsgTLCKAcquire,
		Keys:    keys,
	}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, ownerID []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKAcquire,
		Ok:      ok,
		Value:   ownerID,
	}
	return msg.setErr(err)
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(keys []string, ownerID []byte) *Message {
	return &Message{
		MsgType: MsgTLCKRelease,
		Keys:    keys,
		Value:   ownerID,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKRelease,
		Ok:      ok,
	}
	return msg.setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

const (
	MsgTUnknown MessageType = iota
	MsgTSuccess
	MsgTError
	MsgTGet
	MsgTHas
	MsgTScan
	MsgTCommit
	MsgTInfo
	MsgTLCKAcquire
	MsgTLCKRelease
)

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTGet:        "get",
	MsgTHas:        "has",
	MsgTScan:       "scan",
	MsgTCommit:     "commit",
	MsgTInfo:       "info",
	MsgTLCKAcquire: "acquire",
	MsgTLCKRelease: "release",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}
