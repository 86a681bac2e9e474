package batch

import (
	"iter"
	"math/rand"
	"time"
)

// Pooling trades a bounded amount of memory for shuffled, length-bucketed
// batches. It reads PoolNumBatches batches' worth of rows at a time, then
// for each pool:
//
//  1. sorts the pool by the sort key, descending, when one is given
//  2. slices the pool into consecutive batches of the phase's size
//  3. shuffles the emission order of those batches
//
// Without a sort key, step 1 is skipped and the rows themselves are
// shuffled instead, so batches stay decorrelated from source order either
// way. The final pool may be short and is handled the same way at its
// reduced size.
type Pooling struct {
	sizes       map[Phase]int
	poolBatches int
	rng         *rand.Rand
}

var _ Batcher = (*Pooling)(nil)

// PoolingOption adjusts a Pooling batcher at construction.
type PoolingOption func(*Pooling)

// WithRand replaces the time-seeded shuffle generator, which keeps pool
// shuffling reproducible across runs.
func WithRand(rng *rand.Rand) PoolingOption {
	return func(p *Pooling) {
		p.rng = rng
	}
}

// NewPooling builds a Pooling batcher from cfg. Any batch size at or below
// zero is an error; a PoolNumBatches below 1 is coerced to 1.
func NewPooling(cfg Config, opts ...PoolingOption) (*Pooling, error) {
	sizes, err := cfg.sizes()
	if err != nil {
		return nil, err
	}
	p := &Pooling{
		sizes:       sizes,
		poolBatches: cfg.PoolNumBatches,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if p.poolBatches < 1 {
		p.poolBatches = 1
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Batchify implements Batcher. Memory stays bounded by one pool.
func (p *Pooling) Batchify(rows iter.Seq2[Row, error], sortKey SortKeyFunc, phase Phase) iter.Seq2[Columns, error] {
	size := p.sizes[phase]
	poolSize := size * p.poolBatches
	return func(yield func(Columns, error) bool) {
		for pool, err := range groups(rows, poolSize) {
			if err != nil {
				yield(nil, err)
				return
			}
			numBatches := (len(pool) + size - 1) / size
			order := make([]int, numBatches)
			for i := range order {
				order[i] = i
			}
			if sortKey != nil {
				sortGroup(pool, sortKey)
				p.rng.Shuffle(len(order), func(i, j int) {
					order[i], order[j] = order[j], order[i]
				})
			} else {
				p.rng.Shuffle(len(pool), func(i, j int) {
					pool[i], pool[j] = pool[j], pool[i]
				})
			}
			for _, b := range order {
				lo := size * b
				hi := min(size*(b+1), len(pool))
				if !yield(ZipRows(pool[lo:hi]), nil) {
					return
				}
			}
		}
	}
}
