package bench

import "context"

// Operation is a single measured step of a load, e.g. inserting countA entities
type Operation interface {
	Name() string
	// Run executes the operation for the given scale. It runs inside a transaction
	// started with ILoad.BeginTransaction.
	Run(ctx context.Context, countA, countB int) error
}

type operationImpl struct {
	name string
	fn   func(ctx context.Context, countA, countB int) error
}

// NewOperation creates an Operation from a function
func NewOperation(name string, fn func(ctx context.Context, countA, countB int) error) Operation {
	return &operationImpl{name: name, fn: fn}
}

func (o *operationImpl) Name() string {
	return o.name
}

func (o *operationImpl) Run(ctx context.Context, countA, countB int) error {
	return o.fn(ctx, countA, countB)
}

// ILoad is a backend under test: a connection lifecycle plus the operations run against it
type ILoad interface {
	// Name identifies the load in results and metrics
	Name() string

	// InitConnection connects to the backend
	InitConnection(ctx context.Context) error
	// CloseConnection releases the connection
	CloseConnection() error

	// InitOperations returns the operations in execution order
	InitOperations() ([]Operation, error)
	// CloseOperations releases what InitOperations allocated
	CloseOperations() error

	BeginTransaction() error
	CommitTransaction() error
	RollbackTransaction() error

	// ClearPersistenceContext drops client side caches so the next operation reads the backend
	ClearPersistenceContext() error
	// ClearData removes all data written by the operations
	ClearData(ctx context.Context) error
}
