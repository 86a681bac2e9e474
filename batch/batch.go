// Package batch groups flat streams of example rows into fixed-size,
// column-oriented batches.
//
// Rows enter as field-name to value maps and leave as Columns, where every
// field holds one ordered slice of per-row values. Two grouping strategies
// are provided: Plain keeps source order, Pooling loads a larger pool so it
// can sort rows by length and shuffle batch order without unbounded memory.
// Both are lazy. Rows are pulled from the input only as each group fills,
// and abandoning a traversal stops the pulling.
package batch

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/pkg/errors"
)

// Phase selects which row stream and batch size a pipeline pass uses.
type Phase int

const (
	// Train is the only phase with epoch bounding and pass-spanning epochs.
	Train Phase = iota
	// Eval streams are traversed once per evaluation.
	Eval
	// Test streams are traversed once per final measurement.
	Test
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Train:
		return "train"
	case Eval:
		return "eval"
	case Test:
		return "test"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Row is a single example: field name to raw or converted value. Rows are
// read, never mutated, once handed to a batcher, so the same slice of rows
// can back any number of traversals. Field sets need not agree across rows.
type Row map[string]any

// Columns is one batch in column-oriented form: field name to the ordered
// per-row values. A nil entry marks a row that did not carry the field.
type Columns map[string][]any

// ZipRows converts a batch of rows to columnar form. The field set is the
// union over all rows, and every column has exactly len(rows) entries, with
// nil standing in where a row lacked the field.
func ZipRows(rows []Row) Columns {
	fields := make(map[string]struct{})
	for _, row := range rows {
		for name := range row {
			fields[name] = struct{}{}
		}
	}
	cols := make(Columns, len(fields))
	for name := range fields {
		col := make([]any, len(rows))
		for i, row := range rows {
			col[i] = row[name]
		}
		cols[name] = col
	}
	return cols
}

// SortKeyFunc extracts the scalar that orders rows within a group, largest
// first. Pipelines resolve it from the sort field's tensorizer.
type SortKeyFunc func(Row) float64

// Batcher turns a flat row sequence into a lazy sequence of columnar
// batches. Implementations hold no per-stream state, so one Batcher can
// serve every phase of a pipeline at once.
type Batcher interface {
	// Batchify groups rows into batches sized for phase. A non-nil sortKey
	// orders rows inside each group by the key, descending. An error from
	// the input ends the output with that error.
	Batchify(rows iter.Seq2[Row, error], sortKey SortKeyFunc, phase Phase) iter.Seq2[Columns, error]
}

// Config carries the per-phase batch sizes shared by every batcher.
type Config struct {
	// TrainBatchSize is the rows per training batch.
	TrainBatchSize int
	// EvalBatchSize is the rows per evaluation batch.
	EvalBatchSize int
	// TestBatchSize is the rows per test batch.
	TestBatchSize int
	// PoolNumBatches is how many batches' worth of rows a Pooling batcher
	// loads per pool. Plain ignores it. Values below 1 are treated as 1,
	// which degrades pooling to per-batch shuffling.
	PoolNumBatches int
}

// DefaultConfig returns the stock configuration: 16 rows per batch in every
// phase and pools of 10000 batches.
func DefaultConfig() Config {
	return Config{
		TrainBatchSize: 16,
		EvalBatchSize:  16,
		TestBatchSize:  16,
		PoolNumBatches: 10000,
	}
}

func (c Config) sizes() (map[Phase]int, error) {
	sizes := map[Phase]int{
		Train: c.TrainBatchSize,
		Eval:  c.EvalBatchSize,
		Test:  c.TestBatchSize,
	}
	for phase, size := range sizes {
		if size <= 0 {
			return nil, errors.Errorf("%s batch size must be positive, got %d", phase, size)
		}
	}
	return sizes, nil
}

// groups yields non-overlapping row groups of up to size rows, preserving
// input order. The final group holds the remainder. An input error ends the
// sequence with that error and no group.
func groups(rows iter.Seq2[Row, error], size int) iter.Seq2[[]Row, error] {
	return func(yield func([]Row, error) bool) {
		group := make([]Row, 0, size)
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			group = append(group, row)
			if len(group) == size {
				if !yield(group, nil) {
					return
				}
				group = make([]Row, 0, size)
			}
		}
		if len(group) > 0 {
			yield(group, nil)
		}
	}
}

// sortGroup orders rows by key, largest first. The sort is stable, so rows
// with equal keys keep their relative source order.
func sortGroup(group []Row, sortKey SortKeyFunc) {
	if sortKey == nil {
		return
	}
	slices.SortStableFunc(group, func(a, b Row) int {
		return cmp.Compare(sortKey(b), sortKey(a))
	})
}
