package store

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a transactional key–value store.
// All errors returned by a store and its transactions are of type *Error.
type IStore interface {
	// Begin starts a new transaction. Only writable transactions accept writes.
	Begin(writable bool) (tx ITx, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close releases the resources of the store
	Close() (err error)
}

// ITx is a transaction on a store.
// Exactly one of Commit or Rollback ends a transaction, a Rollback after a Commit is a no-op.
type ITx interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) (err error)
	// SetIfUnset inserts a key–value pair if the key does not exist.
	// No error is returned if the key already exists.
	SetIfUnset(key string, value []byte) (err error)
	// Delete deletes a key–value pair.
	Delete(key string) (err error)
	// Get return the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// Scan calls fn for all keys with the given prefix in ascending order until fn returns false.
	Scan(prefix string, fn func(key string, value []byte) bool) (err error)
	// Commit applies all writes of the transaction atomically.
	Commit() (err error)
	// Rollback discards the transaction.
	Rollback() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError converts an engine error into a *Error.
// nil stays nil and *Error values are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	switch {
	case errors.Is(err, db.ErrTxDone), errors.Is(err, db.ErrReadOnly), errors.Is(err, db.ErrClosed):
		return NewError(RetCInvalidOperation, err.Error())
	default:
		return NewError(RetCInternalError, err.Error())
	}
}

// ErrorCode returns the return code of an error, RetCSuccess for nil
// and RetCInternalError for errors that are no *Error.
func ErrorCode(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
