package rowbatch

import (
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
	"github.com/Noofbiz/rowbatch/tensorize"
)

// TrainerDataset adapts one phase of a pipeline to gomlx's train.Dataset,
// so a training loop can pull tensor batches directly. Fields are split
// into model inputs and labels by name; the slices fix the tensor order the
// model sees.
//
// One traversal of the phase backs each Yield run: Yield reports io.EOF
// when the traversal ends, and Reset arms the next traversal. With an epoch
// size set on the pipeline, that makes Yield-until-EOF exactly one training
// epoch.
type TrainerDataset struct {
	data   *Data
	phase  batch.Phase
	inputs []string
	labels []string

	next func() (tensorize.TensorBatch, error, bool)
	stop func()
}

var _ train.Dataset = (*TrainerDataset)(nil)

// TrainerDataset returns the train.Dataset view of one phase. Every named
// field must have a tensorizer.
func (d *Data) TrainerDataset(phase batch.Phase, inputFields, labelFields []string) (*TrainerDataset, error) {
	for _, name := range slices.Concat(inputFields, labelFields) {
		if _, ok := d.tensorizers[name]; !ok {
			return nil, errors.Errorf("field %q has no tensorizer", name)
		}
	}
	return &TrainerDataset{
		data:   d,
		phase:  phase,
		inputs: slices.Clone(inputFields),
		labels: slices.Clone(labelFields),
	}, nil
}

// Name implements train.Dataset.
func (t *TrainerDataset) Name() string {
	return fmt.Sprintf("rowbatch %s", t.phase)
}

// Reset implements train.Dataset. The traversal in flight, finished or
// not, is released and the next Yield starts a new one.
func (t *TrainerDataset) Reset() {
	if t.stop != nil {
		t.stop()
	}
	t.next, t.stop = nil, nil
}

// Yield implements train.Dataset, returning the next batch's input and
// label tensors in the configured field order. After the traversal ends it
// keeps returning io.EOF until Reset.
func (t *TrainerDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if t.next == nil {
		t.next, t.stop = iter.Pull2(t.data.Batches(t.phase))
	}
	tb, berr, ok := t.next()
	if !ok {
		return nil, nil, nil, io.EOF
	}
	if berr != nil {
		return nil, nil, nil, berr
	}
	inputs = make([]*tensors.Tensor, len(t.inputs))
	for i, name := range t.inputs {
		inputs[i] = tb[name]
	}
	labels = make([]*tensors.Tensor, len(t.labels))
	for i, name := range t.labels {
		labels[i] = tb[name]
	}
	return nil, inputs, labels, nil
}
