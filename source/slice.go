package source

import "github.com/Noofbiz/rowbatch/batch"

// Slice serves rows straight from memory. It is the simplest DataSource,
// used for small in-process datasets and as the backing for cached rows.
type Slice struct {
	TrainRows []batch.Row
	EvalRows  []batch.Row
	TestRows  []batch.Row
}

var _ DataSource = (*Slice)(nil)

// FromRows builds a Slice source over the given phase slices. Nil slices
// give empty streams.
func FromRows(train, eval, test []batch.Row) *Slice {
	return &Slice{TrainRows: train, EvalRows: eval, TestRows: test}
}

// Train implements DataSource.
func (s *Slice) Train() Rows { return FromSlice(s.TrainRows) }

// Eval implements DataSource.
func (s *Slice) Eval() Rows { return FromSlice(s.EvalRows) }

// Test implements DataSource.
func (s *Slice) Test() Rows { return FromSlice(s.TestRows) }

// FromSlice adapts an already realized row slice into a stream. The slice
// is not copied; traversals read it in place.
func FromSlice(rows []batch.Row) Rows {
	return func(yield func(batch.Row, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Collect drains a stream into a slice. It is the inverse of FromSlice and
// fails with the stream's error if one cuts the pass short.
func Collect(rows Rows) ([]batch.Row, error) {
	var out []batch.Row
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
