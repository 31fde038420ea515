// Package bench implements the benchmark run loop.
//
// A Driver runs every ILoad it was created with. For each load the run loop is:
//
//	for run in warmup runs + hot runs:
//	    for countA in the A range, countB in the B range:
//	        ClearData
//	        for each selected operation, in declaration order:
//	            ClearPersistenceContext (if configured)
//	            runtime.GC (if configured)
//	            BeginTransaction, Run, CommitTransaction  <- timed, heap delta recorded
//
// The A and B ranges are geometric: Start, Start*Scale, ... up to End.
//
// Any error rolls back the open transaction, releases the operations and the
// connection of the load and aborts the whole run with an *OpError naming the
// load, the operation and the scale. There is no partial recovery.
//
// Samples of warmup runs are kept in the Results but flagged, reports only use the
// hot runs. Hot samples also feed a private VictoriaMetrics set, see Driver.WriteMetrics.
package bench
