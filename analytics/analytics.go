// Package analytics summarizes what a batching pipeline produces: how many
// batches came out, how full they were, and which fields the rows actually
// carried. The summary renders to PNG charts for a quick look at batch
// shape before committing to a long training run.
package analytics

import (
	"iter"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/Noofbiz/rowbatch/batch"
)

// Profile is the tally of one pass over a columnar batch stream.
type Profile struct {
	// BatchSizes holds the rows per batch, in emission order.
	BatchSizes []int
	// Rows is the total row count across all batches.
	Rows int
	// FieldRows counts, per field, the rows that actually carried a value.
	FieldRows map[string]int
	// KeySpreads holds, per batch, the gap between the largest and smallest
	// sort value inside the batch. Filled by CollectKeyed; a tight spread
	// means the sort is bucketing rows of similar size together.
	KeySpreads []float64
}

// Collect drains a columnar batch stream into a Profile. Run it on its own
// derivation; draining a stream a training loop also holds would consume
// the loop's batches.
func Collect(batches iter.Seq2[batch.Columns, error]) (*Profile, error) {
	return CollectKeyed(batches, "", nil)
}

// CollectKeyed is Collect plus a per-batch measure of how well sorted
// batching bucketed the rows: for each batch it records the spread of key
// over the named field's column.
func CollectKeyed(batches iter.Seq2[batch.Columns, error], field string, key func(any) float64) (*Profile, error) {
	p := &Profile{FieldRows: make(map[string]int)}
	for cols, err := range batches {
		if err != nil {
			return nil, errors.Wrap(err, "collecting batches")
		}
		size := 0
		for _, col := range cols {
			size = max(size, len(col))
		}
		p.BatchSizes = append(p.BatchSizes, size)
		p.Rows += size
		for name, col := range cols {
			for _, v := range col {
				if v != nil {
					p.FieldRows[name]++
				}
			}
		}
		if key != nil {
			p.KeySpreads = append(p.KeySpreads, spread(cols[field], key))
		}
	}
	return p, nil
}

// spread is the max-min gap of key over the column's present values, 0 for
// fewer than two.
func spread(col []any, key func(any) float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range col {
		if v == nil {
			continue
		}
		x := key(v)
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		n++
	}
	if n < 2 {
		return 0
	}
	return hi - lo
}

// Batches returns how many batches the pass produced.
func (p *Profile) Batches() int {
	return len(p.BatchSizes)
}

// MeanSize returns the average rows per batch, 0 for an empty profile.
func (p *Profile) MeanSize() float64 {
	if len(p.BatchSizes) == 0 {
		return 0
	}
	return stat.Mean(p.sizes(), nil)
}

// MeanKeySpread returns the average per-batch sort-value spread, 0 when
// spreads were not collected.
func (p *Profile) MeanKeySpread() float64 {
	if len(p.KeySpreads) == 0 {
		return 0
	}
	return stat.Mean(p.KeySpreads, nil)
}

func (p *Profile) sizes() []float64 {
	vals := make([]float64, len(p.BatchSizes))
	for i, n := range p.BatchSizes {
		vals[i] = float64(n)
	}
	return vals
}
