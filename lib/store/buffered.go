package store

import "sort"

// Reader reads the committed state of a store
type Reader interface {
	Get(key string) (value []byte, loaded bool, err error)
	Has(key string) (loaded bool, err error)
	Scan(prefix string, fn func(key string, value []byte) bool) (err error)
}

// CommitFunc applies a batch of ops atomically
type CommitFunc func(ops []Op) error

// bufferedTx is a client side transaction: reads go to the committed state (merged with
// the pending writes of the transaction), writes are collected and sent as one batch on commit.
type bufferedTx struct {
	reader   Reader
	commit   CommitFunc
	writable bool
	done     bool
	ops      []Op
	latest   map[string]int // key -> index of the last op on the key
}

// NewBufferedTx creates a transaction that buffers writes until Commit.
// Used by stores whose writes have to travel as a single message (raft proposals, rpc).
func NewBufferedTx(reader Reader, writable bool, commit CommitFunc) ITx {
	return &bufferedTx{
		reader:   reader,
		commit:   commit,
		writable: writable,
		latest:   make(map[string]int),
	}
}

func (tx *bufferedTx) checkWrite() error {
	if tx.done {
		return NewError(RetCInvalidOperation, "transaction already finished")
	}
	if !tx.writable {
		return NewError(RetCInvalidOperation, "write on read-only transaction")
	}
	return nil
}

func (tx *bufferedTx) add(op Op) {
	if op.Value != nil {
		value := make([]byte, len(op.Value))
		copy(value, op.Value)
		op.Value = value
	} else if op.Type != OpDelete {
		op.Value = []byte{}
	}
	tx.latest[op.Key] = len(tx.ops)
	tx.ops = append(tx.ops, op)
}

func (tx *bufferedTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	tx.add(Op{Type: OpSet, Key: key, Value: value})
	return nil
}

func (tx *bufferedTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if i, ok := tx.latest[key]; ok {
		// a pending Set or SetIfUnset already decides the key
		if tx.ops[i].Type == OpDelete {
			tx.add(Op{Type: OpSet, Key: key, Value: value})
		}
		return nil
	}
	tx.add(Op{Type: OpSetIfUnset, Key: key, Value: value})
	return nil
}

func (tx *bufferedTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	tx.add(Op{Type: OpDelete, Key: key})
	return nil
}

// pending resolves a key against the buffered ops.
// found is false if the transaction did not write the key.
func (tx *bufferedTx) pending(key string) (value []byte, loaded bool, found bool, err error) {
	i, ok := tx.latest[key]
	if !ok {
		return nil, false, false, nil
	}
	op := tx.ops[i]
	switch op.Type {
	case OpSet:
		return op.Value, true, true, nil
	case OpDelete:
		return nil, false, true, nil
	default:
		// SetIfUnset only wins if the committed state has no value
		committed, exists, err := tx.reader.Get(key)
		if err != nil {
			return nil, false, true, err
		}
		if exists {
			return committed, true, true, nil
		}
		return op.Value, true, true, nil
	}
}

func (tx *bufferedTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, NewError(RetCInvalidOperation, "transaction already finished")
	}
	value, loaded, found, err := tx.pending(key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return tx.reader.Get(key)
	}
	if !loaded {
		return nil, false, nil
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true, nil
}

func (tx *bufferedTx) Has(key string) (bool, error) {
	if tx.done {
		return false, NewError(RetCInvalidOperation, "transaction already finished")
	}
	if i, ok := tx.latest[key]; ok {
		switch tx.ops[i].Type {
		case OpSet, OpSetIfUnset:
			return true, nil
		default:
			return false, nil
		}
	}
	return tx.reader.Has(key)
}

func (tx *bufferedTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return NewError(RetCInvalidOperation, "transaction already finished")
	}

	entries := make(map[string][]byte)
	err := tx.reader.Scan(prefix, func(key string, value []byte) bool {
		entries[key] = value
		return true
	})
	if err != nil {
		return err
	}
	for key, i := range tx.latest {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		op := tx.ops[i]
		switch op.Type {
		case OpSet:
			entries[key] = op.Value
		case OpDelete:
			delete(entries, key)
		case OpSetIfUnset:
			if _, exists := entries[key]; !exists {
				entries[key] = op.Value
			}
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := make([]byte, len(entries[k]))
		copy(value, entries[k])
		if !fn(k, value) {
			return nil
		}
	}
	return nil
}

func (tx *bufferedTx) Commit() error {
	if tx.done {
		return NewError(RetCInvalidOperation, "transaction already finished")
	}
	tx.done = true
	if !tx.writable || len(tx.ops) == 0 {
		return nil
	}
	return WrapError(tx.commit(tx.ops))
}

func (tx *bufferedTx) Rollback() error {
	tx.done = true
	tx.ops = nil
	return nil
}
