// Package tensorize converts batched example rows into the per-field
// tensors a training loop consumes.
//
// A Tensorizer owns one output field. Its Numberize method runs per row,
// before batching, turning raw values into numeric form; its Tensorize
// method runs per batch on the field's column. Optional capabilities are
// expressed as extra interfaces: Sorter for fields that can drive length
// bucketing, Initializer for fields that build state from the training
// distribution first, and BatchTensorizer for metric fields that summarize
// the whole batch instead of one column.
//
// A nil value in a column marks a row that did not carry the field.
// Tensorizers substitute their own neutral value for nil rather than
// failing, so ragged field sets flow through the pipeline.
package tensorize

import (
	"iter"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// TensorBatch is one finished batch: output field name to tensor. A batch
// produced from a tensorizer set carries exactly that set's field names.
type TensorBatch map[string]*tensors.Tensor

// Tensorizer converts one field of raw examples into tensors.
type Tensorizer interface {
	// Numberize converts a single row's field to its numeric form. The
	// result must stay valid indefinitely; pipelines cache it and reuse it
	// across traversals.
	Numberize(row batch.Row) (any, error)
	// Tensorize converts one batch's column of numberized values, nil
	// entries included, into a tensor.
	Tensorize(column []any) (*tensors.Tensor, error)
}

// Sorter is implemented by tensorizers whose field can order rows for
// length bucketing. SortValue reads the per-row scalar out of a numberized
// value; it must tolerate nil.
type Sorter interface {
	SortValue(value any) float64
}

// BatchTensorizer is implemented by metric tensorizers that need the whole
// columnar batch. When present it is used instead of Tensorize.
type BatchTensorizer interface {
	TensorizeBatch(cols batch.Columns) (*tensors.Tensor, error)
}

// Initializer is implemented by tensorizers that accumulate state, such as
// vocabularies or normalization statistics, before any batching begins.
// Observe sees every training row exactly once; Finish seals the state.
type Initializer interface {
	Observe(row batch.Row) error
	Finish() error
}

// Initialize runs the one-time setup pass: a single traversal of rows,
// fanned out to every tensorizer that implements Initializer. Tensorizers
// without initialization needs cost nothing here, and when none need it the
// rows are never read.
func Initialize(ts map[string]Tensorizer, rows iter.Seq2[batch.Row, error]) error {
	inits := make(map[string]Initializer)
	for name, t := range ts {
		if init, ok := t.(Initializer); ok {
			inits[name] = init
		}
	}
	if len(inits) == 0 {
		return nil
	}
	for row, err := range rows {
		if err != nil {
			return errors.Wrap(err, "reading initialization rows")
		}
		for name, init := range inits {
			if err := init.Observe(row); err != nil {
				return errors.Wrapf(err, "initializing field %q", name)
			}
		}
	}
	for name, init := range inits {
		if err := init.Finish(); err != nil {
			return errors.Wrapf(err, "finishing field %q", name)
		}
	}
	return nil
}

// PadAndTensorize lazily finishes columnar batches into tensor batches.
// Ordinary tensorizers see their own column; BatchTensorizers see the whole
// batch. Input rows are only read, so cached numberized values survive any
// number of passes through here.
func PadAndTensorize(ts map[string]Tensorizer, batches iter.Seq2[batch.Columns, error]) iter.Seq2[TensorBatch, error] {
	return func(yield func(TensorBatch, error) bool) {
		for cols, err := range batches {
			if err != nil {
				yield(nil, err)
				return
			}
			out := make(TensorBatch, len(ts))
			for name, t := range ts {
				var tensor *tensors.Tensor
				var terr error
				if bt, ok := t.(BatchTensorizer); ok {
					tensor, terr = bt.TensorizeBatch(cols)
				} else {
					tensor, terr = t.Tensorize(cols[name])
				}
				if terr != nil {
					yield(nil, errors.Wrapf(terr, "tensorizing field %q", name))
					return
				}
				out[name] = tensor
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
