// Package source supplies the example rows a batching pipeline consumes.
//
// Every supplier hands out Rows, a lazily evaluated sequence that can be
// traversed any number of times; each traversal is an independent pass over
// the underlying supply. TSV reads tab-separated files, Slice serves rows
// already in memory, and RowSharded splits another source across workers.
package source

import (
	"iter"

	"github.com/Noofbiz/rowbatch/batch"
)

// Rows is a restartable, lazily evaluated sequence of example rows. Ranging
// over it pulls rows one at a time; stopping early abandons the pass with
// nothing left running.
type Rows = iter.Seq2[batch.Row, error]

// DataSource supplies one independent row stream per phase. Streams for
// phases a source has no data for are empty, not nil.
type DataSource interface {
	Train() Rows
	Eval() Rows
	Test() Rows
}

// ShardedDataSource is a DataSource whose training stream is already
// partitioned across workers. TrainUnsharded exposes the full stream, which
// setup passes need regardless of sharding.
type ShardedDataSource interface {
	DataSource
	TrainUnsharded() Rows
}

// Empty returns a stream with no rows.
func Empty() Rows {
	return func(yield func(batch.Row, error) bool) {}
}
