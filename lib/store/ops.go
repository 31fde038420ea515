package store

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
)

// --------------------------------------------------------------------------
// Write batches
// --------------------------------------------------------------------------

// OpType is the kind of a buffered write
type OpType uint8

const (
	OpSet OpType = iota + 1
	OpSetIfUnset
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpSet:
		return "Set"
	case OpSetIfUnset:
		return "SetIfUnset"
	case OpDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Feature returns the db feature needed to apply the op
func (t OpType) Feature() db.Feature {
	switch t {
	case OpSet:
		return db.FeatureSet
	case OpSetIfUnset:
		return db.FeatureSetIfUnset
	case OpDelete:
		return db.FeatureDelete
	default:
		return 0
	}
}

// Op is one write of a transaction. A transaction commits as an ordered batch of ops.
type Op struct {
	Type  OpType `json:"type"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Writer is the write half of a transaction
type Writer interface {
	Set(key string, value []byte) error
	SetIfUnset(key string, value []byte) error
	Delete(key string) error
}

// ApplyOps applies the ops in order and stops at the first error
func ApplyOps(w Writer, ops []Op) error {
	for _, op := range ops {
		var err error
		switch op.Type {
		case OpSet:
			err = w.Set(op.Key, op.Value)
		case OpSetIfUnset:
			err = w.SetIfUnset(op.Key, op.Value)
		case OpDelete:
			err = w.Delete(op.Key)
		default:
			return NewError(RetCInvalidOperation, fmt.Sprintf("unknown op type %d", op.Type))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
