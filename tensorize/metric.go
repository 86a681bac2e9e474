package tensorize

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// TokenCount reports the total token count across the whole batch for a
// Tokens-numberized field. It carries no per-row value of its own; training
// loops use the scalar for throughput and loss weighting.
type TokenCount struct {
	// Of names the Tokens field in the same tensorizer set to count.
	Of string
}

var (
	_ Tensorizer      = (*TokenCount)(nil)
	_ BatchTensorizer = (*TokenCount)(nil)
)

// Numberize implements Tensorizer. Metric fields contribute nothing per
// row.
func (c *TokenCount) Numberize(row batch.Row) (any, error) {
	return nil, nil
}

// Tensorize implements Tensorizer. It is never reached because
// TensorizeBatch takes precedence.
func (c *TokenCount) Tensorize(column []any) (*tensors.Tensor, error) {
	return nil, errors.Errorf("field %q summarizes whole batches", c.Of)
}

// TensorizeBatch implements BatchTensorizer, producing a scalar tensor.
func (c *TokenCount) TensorizeBatch(cols batch.Columns) (*tensors.Tensor, error) {
	return tensors.FromAnyValue(c.count(cols)), nil
}

func (c *TokenCount) count(cols batch.Columns) int32 {
	var n int32
	for _, v := range cols[c.Of] {
		ids, ok := v.([]int32)
		if !ok {
			continue
		}
		n += int32(len(ids))
	}
	return n
}
