package tensorize

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// Label maps a categorical string field to a class index. The class
// inventory is collected from the training stream during initialization, in
// first-seen order, and is closed afterwards: a label outside it fails
// numberization instead of being folded into some catch-all class.
//
// The zero value with a Field name is ready to use.
type Label struct {
	// Field names the raw field to read.
	Field string

	classes map[string]int32
	names   []string
}

var (
	_ Tensorizer  = (*Label)(nil)
	_ Initializer = (*Label)(nil)
)

// Observe implements Initializer, admitting the row's label to the class
// inventory.
func (l *Label) Observe(row batch.Row) error {
	v, ok := row[l.Field]
	if !ok || v == nil {
		return nil
	}
	name, err := toString(v)
	if err != nil {
		return errors.Wrapf(err, "field %q", l.Field)
	}
	if l.classes == nil {
		l.classes = make(map[string]int32)
	}
	if _, seen := l.classes[name]; !seen {
		l.classes[name] = int32(len(l.names))
		l.names = append(l.names, name)
	}
	return nil
}

// Finish implements Initializer. A label field nothing in the training
// stream carries is a configuration mistake, caught here.
func (l *Label) Finish() error {
	if len(l.names) == 0 {
		return errors.Errorf("no classes of field %q in the training stream", l.Field)
	}
	return nil
}

// Classes returns the class names in index order. Models size their output
// layer from this.
func (l *Label) Classes() []string {
	return slices.Clone(l.names)
}

// Numberize implements Tensorizer. Unknown classes are an error; a missing
// field stays absent and tensorizes to class 0.
func (l *Label) Numberize(row batch.Row) (any, error) {
	v, ok := row[l.Field]
	if !ok || v == nil {
		return nil, nil
	}
	name, err := toString(v)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", l.Field)
	}
	idx, known := l.classes[name]
	if !known {
		return nil, errors.Errorf("field %q: unknown class %q", l.Field, name)
	}
	return idx, nil
}

// Tensorize implements Tensorizer, producing a vector of one class index
// per row.
func (l *Label) Tensorize(column []any) (*tensors.Tensor, error) {
	out, err := l.indices(column)
	if err != nil {
		return nil, err
	}
	return tensors.FromAnyValue(out), nil
}

func (l *Label) indices(column []any) ([]int32, error) {
	out := make([]int32, len(column))
	for i, v := range column {
		if v == nil {
			continue
		}
		idx, ok := v.(int32)
		if !ok {
			return nil, errors.Errorf("field %q: row %d holds %T, want int32", l.Field, i, v)
		}
		out[i] = idx
	}
	return out, nil
}
