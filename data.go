package rowbatch

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Noofbiz/rowbatch/batch"
	"github.com/Noofbiz/rowbatch/source"
	"github.com/Noofbiz/rowbatch/tensorize"
)

// Data orchestrates one batching pipeline: rows from a source, converted by
// a tensorizer set, grouped by a batcher, served phase by phase.
type Data struct {
	src         source.DataSource
	tensorizers map[string]tensorize.Tensorizer
	batcher     batch.Batcher
	sortField   string
	sortKey     batch.SortKeyFunc
	epochSize   int
	inMemory    bool
	logger      logrus.FieldLogger

	cursors map[batch.Phase]*cursor
	cache   map[batch.Phase][]batch.Row
}

// Option configures a Data pipeline at construction.
type Option func(*Data)

// WithBatcher selects the grouping strategy. The default is a Pooling
// batcher with batch.DefaultConfig.
func WithBatcher(b batch.Batcher) Option {
	return func(d *Data) { d.batcher = b }
}

// WithSortField designates the field whose tensorizer orders rows inside
// pools and batches. The field's tensorizer must implement
// tensorize.Sorter; New rejects the pipeline otherwise.
func WithSortField(name string) Option {
	return func(d *Data) { d.sortField = name }
}

// WithEpochSize fixes the number of training batches per epoch regardless
// of how many the supply holds per pass. Zero, the default, makes one full
// pass per epoch.
func WithEpochSize(n int) Option {
	return func(d *Data) { d.epochSize = n }
}

// WithInMemoryCache toggles the per-phase cache of numberized rows. It is
// on by default; turn it off when the rows outgrow memory, at the cost of
// re-reading and re-converting the source every pass.
func WithInMemoryCache(enabled bool) Option {
	return func(d *Data) { d.inMemory = enabled }
}

// WithLogger routes pipeline logging. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Data) { d.logger = l }
}

// New builds a pipeline over src and runs the tensorizers' one-time
// initialization pass. Initialization reads the full training stream, the
// unsharded one when src is sharded, so vocabularies and statistics reflect
// the global distribution no matter which worker builds them.
func New(src source.DataSource, tensorizers map[string]tensorize.Tensorizer, opts ...Option) (*Data, error) {
	if src == nil {
		return nil, errors.New("a data source is required")
	}
	if len(tensorizers) == 0 {
		return nil, errors.New("at least one tensorizer is required")
	}
	d := &Data{
		src:         src,
		tensorizers: tensorizers,
		inMemory:    true,
		logger:      discardLogger(),
		cursors:     make(map[batch.Phase]*cursor),
		cache:       make(map[batch.Phase][]batch.Row),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.batcher == nil {
		pooling, err := batch.NewPooling(batch.DefaultConfig())
		if err != nil {
			return nil, err
		}
		d.batcher = pooling
	}
	if d.epochSize < 0 {
		return nil, errors.Errorf("epoch size must not be negative, got %d", d.epochSize)
	}
	if d.sortField != "" {
		t, ok := d.tensorizers[d.sortField]
		if !ok {
			return nil, errors.Errorf("sort field %q has no tensorizer", d.sortField)
		}
		sorter, ok := t.(tensorize.Sorter)
		if !ok {
			return nil, errors.Errorf("sort field %q has a tensorizer with no sort order", d.sortField)
		}
		field := d.sortField
		d.sortKey = func(row batch.Row) float64 {
			return sorter.SortValue(row[field])
		}
	}
	if err := tensorize.Initialize(d.tensorizers, fullTrain(src)); err != nil {
		return nil, errors.Wrap(err, "initializing tensorizers")
	}
	d.logger.WithField("fields", len(d.tensorizers)).Debug("pipeline ready")
	return d, nil
}

// Tensorizers returns the pipeline's tensorizer set. Models read
// vocabulary and class sizes from it.
func (d *Data) Tensorizers() map[string]tensorize.Tensorizer {
	return d.tensorizers
}

// fullTrain picks the stream initialization must see: the global training
// rows even when the source is sharded.
func fullTrain(src source.DataSource) source.Rows {
	if sharded, ok := src.(source.ShardedDataSource); ok {
		return sharded.TrainUnsharded()
	}
	return src.Train()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
