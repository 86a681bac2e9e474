package tensorize

import (
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/Noofbiz/rowbatch/batch"
)

// Float converts a numeric field to a float32 feature. Sources may deliver
// the value as any Go number or as its decimal string form. With Normalize
// set, values are shifted to zero mean and unit variance using statistics
// gathered from the training stream during initialization.
//
// The zero value with a Field name is ready to use.
type Float struct {
	// Field names the raw field to read.
	Field string
	// Normalize turns on z-score normalization.
	Normalize bool

	samples   []float64
	mean, std float64
}

var (
	_ Tensorizer  = (*Float)(nil)
	_ Sorter      = (*Float)(nil)
	_ Initializer = (*Float)(nil)
)

// Observe implements Initializer. Without Normalize there is nothing to
// gather.
func (f *Float) Observe(row batch.Row) error {
	if !f.Normalize {
		return nil
	}
	v, ok := row[f.Field]
	if !ok || v == nil {
		return nil
	}
	x, err := toFloat64(v)
	if err != nil {
		return errors.Wrapf(err, "field %q", f.Field)
	}
	f.samples = append(f.samples, x)
	return nil
}

// Finish implements Initializer, sealing the normalization statistics.
func (f *Float) Finish() error {
	if !f.Normalize {
		return nil
	}
	if len(f.samples) == 0 {
		return errors.Errorf("no values of field %q in the training stream", f.Field)
	}
	f.mean, f.std = stat.MeanStdDev(f.samples, nil)
	if f.std == 0 || math.IsNaN(f.std) {
		// A constant field still normalizes; it just maps to zero.
		f.std = 1
	}
	f.samples = nil
	return nil
}

// Numberize implements Tensorizer. A missing field numberizes to zero,
// which after normalization is the training mean.
func (f *Float) Numberize(row batch.Row) (any, error) {
	v, ok := row[f.Field]
	if !ok || v == nil {
		return float32(0), nil
	}
	x, err := toFloat64(v)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", f.Field)
	}
	if f.Normalize {
		x = (x - f.mean) / f.std
	}
	return float32(x), nil
}

// SortValue implements Sorter, ordering rows by the field's value.
func (f *Float) SortValue(value any) float64 {
	x, ok := value.(float32)
	if !ok {
		return 0
	}
	return float64(x)
}

// Tensorize implements Tensorizer, producing a vector of one float32 per
// row.
func (f *Float) Tensorize(column []any) (*tensors.Tensor, error) {
	out, err := f.values(column)
	if err != nil {
		return nil, err
	}
	return tensors.FromAnyValue(out), nil
}

func (f *Float) values(column []any) ([]float32, error) {
	out := make([]float32, len(column))
	for i, v := range column {
		if v == nil {
			continue
		}
		x, ok := v.(float32)
		if !ok {
			return nil, errors.Errorf("field %q: row %d holds %T, want float32", f.Field, i, v)
		}
		out[i] = x
	}
	return out, nil
}
