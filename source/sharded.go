package source

import (
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// RowSharded partitions a source's training stream across worldSize workers
// by row position: the worker at rank keeps every row whose index modulo
// worldSize equals rank. Eval and test streams pass through whole, and the
// full training stream stays reachable through TrainUnsharded for setup
// passes that must see the global distribution.
type RowSharded struct {
	src   DataSource
	rank  int
	world int
}

var _ ShardedDataSource = (*RowSharded)(nil)

// NewRowSharded wraps src for one worker of a worldSize-worker group.
func NewRowSharded(src DataSource, rank, worldSize int) (*RowSharded, error) {
	if worldSize < 1 {
		return nil, errors.Errorf("world size must be at least 1, got %d", worldSize)
	}
	if rank < 0 || rank >= worldSize {
		return nil, errors.Errorf("rank %d outside world of %d", rank, worldSize)
	}
	return &RowSharded{src: src, rank: rank, world: worldSize}, nil
}

// Train implements DataSource with this worker's share of the rows.
func (s *RowSharded) Train() Rows { return s.shard(s.src.Train()) }

// Eval implements DataSource.
func (s *RowSharded) Eval() Rows { return s.src.Eval() }

// Test implements DataSource.
func (s *RowSharded) Test() Rows { return s.src.Test() }

// TrainUnsharded implements ShardedDataSource.
func (s *RowSharded) TrainUnsharded() Rows { return s.src.Train() }

func (s *RowSharded) shard(rows Rows) Rows {
	return func(yield func(batch.Row, error) bool) {
		i := 0
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			if i%s.world == s.rank {
				if !yield(row, nil) {
					return
				}
			}
			i++
		}
	}
}
