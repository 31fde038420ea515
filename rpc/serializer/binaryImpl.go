package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: 1 byte MsgType, 2 bytes flags (big endian), then every field whose flag is set,
// in the order of the flags. Byte slices and strings are prefixed with their uint32 length.
// A nil slice is never flagged, so nil and empty slices survive a round trip.
type binarySerializerImpl struct{}

// Bit flags to indicate which optional fields are present
const (
	hasKey    uint16 = 1 << 0
	hasValue  uint16 = 1 << 1
	hasOps    uint16 = 1 << 2
	hasKeys   uint16 = 1 << 3
	hasValues uint16 = 1 << 4
	hasOk     uint16 = 1 << 5
	hasCode   uint16 = 1 << 6
	hasErr    uint16 = 1 << 7
	hasMeta   uint16 = 1 << 8
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b *binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	w := &writer{buf: make([]byte, b.sizeBytes(msg)), pos: headerSize}

	// Write message type
	w.buf[0] = byte(msg.MsgType)

	var flags uint16
	if msg.Key != "" {
		flags |= hasKey
		w.putString(msg.Key)
	}
	if msg.Value != nil {
		flags |= hasValue
		w.putBytes(msg.Value)
	}
	if msg.Ops != nil {
		flags |= hasOps
		w.putUint32(uint32(len(msg.Ops)))
		for _, op := range msg.Ops {
			w.putByte(byte(op.Type))
			w.putString(op.Key)
			w.putOptionalBytes(op.Value)
		}
	}
	if msg.Keys != nil {
		flags |= hasKeys
		w.putUint32(uint32(len(msg.Keys)))
		for _, key := range msg.Keys {
			w.putString(key)
		}
	}
	if msg.Values != nil {
		flags |= hasValues
		w.putUint32(uint32(len(msg.Values)))
		for _, value := range msg.Values {
			w.putOptionalBytes(value)
		}
	}
	if msg.Ok {
		flags |= hasOk
		w.putByte(1)
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		binary.BigEndian.PutUint64(w.buf[w.pos:], uint64(msg.Code))
		w.pos += 8
	}
	if msg.Err != "" {
		flags |= hasErr
		w.putString(msg.Err)
	}
	if msg.Meta != nil {
		flags |= hasMeta
		w.putBytes(msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(w.buf[1:3], flags)

	return w.buf, nil
}

func (b *binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	r := &reader{data: data, pos: headerSize}

	if flags&hasKey != 0 {
		msg.Key = r.readString("key")
	}
	if flags&hasValue != 0 {
		msg.Value = r.readBytes("value")
	}
	if flags&hasOps != 0 {
		n := r.readCount("ops")
		msg.Ops = make([]store.Op, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			op := store.Op{Type: store.OpType(r.readByte("op type"))}
			op.Key = r.readString("op key")
			op.Value = r.readOptionalBytes("op value")
			msg.Ops = append(msg.Ops, op)
		}
	}
	if flags&hasKeys != 0 {
		n := r.readCount("keys")
		msg.Keys = make([]string, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Keys = append(msg.Keys, r.readString("keys"))
		}
	}
	if flags&hasValues != 0 {
		n := r.readCount("values")
		msg.Values = make([][]byte, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Values = append(msg.Values, r.readOptionalBytes("values"))
		}
	}
	if flags&hasOk != 0 {
		msg.Ok = r.readByte("ok flag") != 0
	}
	if flags&hasCode != 0 {
		if r.need(8, "code") {
			msg.Code = store.RetCode(binary.BigEndian.Uint64(r.data[r.pos:]))
			r.pos += 8
		}
	}
	if flags&hasErr != 0 {
		msg.Err = r.readString("error")
	}
	if flags&hasMeta != 0 {
		msg.Meta = r.readBytes("meta")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b *binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Ops != nil {
		size += 4
		for _, op := range msg.Ops {
			size += 1 + 4 + len(op.Key) + 1 // type + key + value marker
			if op.Value != nil {
				size += 4 + len(op.Value)
			}
		}
	}
	if msg.Keys != nil {
		size += 4
		for _, key := range msg.Keys {
			size += 4 + len(key)
		}
	}
	if msg.Values != nil {
		size += 4
		for _, value := range msg.Values {
			size += 1
			if value != nil {
				size += 4 + len(value)
			}
		}
	}
	if msg.Ok {
		size += 1
	}
	if msg.Code != store.RetCSuccess {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

// writer writes into a buffer of the exact message size
type writer struct {
	buf []byte
	pos int
}

func (w *writer) putByte(v byte) {
	w.buf[w.pos] = v
	w.pos++
}

func (w *writer) putUint32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

func (w *writer) putString(s string) {
	w.putUint32(uint32(len(s)))
	w.pos += copy(w.buf[w.pos:], s)
}

func (w *writer) putBytes(b []byte) {
	w.putUint32(uint32(len(b)))
	w.pos += copy(w.buf[w.pos:], b)
}

// putOptionalBytes writes a presence marker followed by the bytes if b is not nil
func (w *writer) putOptionalBytes(b []byte) {
	if b == nil {
		w.putByte(0)
		return
	}
	w.putByte(1)
	w.putBytes(b)
}

// reader reads fields and keeps the first error, later reads return zero values
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return false
	}
	return true
}

func (r *reader) readByte(field string) byte {
	if !r.need(1, field) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) readUint32(field string) uint32 {
	if !r.need(4, field+" length") {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// readCount reads an element count, every element needs at least one byte
func (r *reader) readCount(field string) int {
	n := int(r.readUint32(field))
	if r.err == nil && n > len(r.data)-r.pos {
		r.err = fmt.Errorf("data too short for %s", field)
		return 0
	}
	return n
}

func (r *reader) readBytes(field string) []byte {
	n := int(r.readUint32(field))
	if !r.need(n, field+" data") {
		return nil
	}
	v := make([]byte, n)
	r.pos += copy(v, r.data[r.pos:r.pos+n])
	return v
}

func (r *reader) readString(field string) string {
	n := int(r.readUint32(field))
	if !r.need(n, field+" data") {
		return ""
	}
	v := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return v
}

func (r *reader) readOptionalBytes(field string) []byte {
	if r.readByte(field) == 0 {
		return nil
	}
	return r.readBytes(field)
}
