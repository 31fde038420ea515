package internal

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
)

// commandVersion is the first byte of every serialized command
const commandVersion byte = 1

// Command is a single entry in the raft log: the write batch of one committed transaction.
// The state machine applies all ops of a command inside one database transaction.
type Command struct {
	Ops []store.Op
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := 1 + 4 // version + op count
	for _, op := range command.Ops {
		size += 1 + 4 + len(op.Key) + 4 + len(op.Value) // type + key len + key + value len + value
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte version,
// 4 bytes number of ops (big endian),
// per op: 1 byte type, 4 bytes key length, key, 4 bytes value length, value
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())
	result[0] = commandVersion
	binary.BigEndian.PutUint32(result[1:5], uint32(len(command.Ops)))

	pos := 5
	for _, op := range command.Ops {
		result[pos] = byte(op.Type)
		pos++
		binary.BigEndian.PutUint32(result[pos:], uint32(len(op.Key)))
		pos += 4
		pos += copy(result[pos:], op.Key)
		binary.BigEndian.PutUint32(result[pos:], uint32(len(op.Value)))
		pos += 4
		pos += copy(result[pos:], op.Value)
	}
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < 5 {
		return fmt.Errorf("data too short for command")
	}
	if data[0] != commandVersion {
		return fmt.Errorf("unsupported command version %d", data[0])
	}
	count := binary.BigEndian.Uint32(data[1:5])
	if int(count) > len(data) {
		return fmt.Errorf("invalid op count %d", count)
	}

	command.Ops = make([]store.Op, 0, count)
	pos := 5
	readBytes := func(what string) ([]byte, error) {
		if len(data) < pos+4 {
			return nil, fmt.Errorf("data too short for %s length", what)
		}
		n := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if len(data) < pos+n {
			return nil, fmt.Errorf("data too short for %s of length %d", what, n)
		}
		b := data[pos : pos+n]
		pos += n
		return b, nil
	}

	for i := uint32(0); i < count; i++ {
		if len(data) < pos+1 {
			return fmt.Errorf("data too short for op %d", i)
		}
		op := store.Op{Type: store.OpType(data[pos])}
		pos++
		key, err := readBytes("key")
		if err != nil {
			return err
		}
		value, err := readBytes("value")
		if err != nil {
			return err
		}
		op.Key = string(key)
		op.Value = make([]byte, len(value))
		copy(op.Value, value)
		command.Ops = append(command.Ops, op)
	}
	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after command", len(data)-pos)
	}
	return nil
}
