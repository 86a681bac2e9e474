package batch

import "iter"

// Plain groups rows exactly as they arrive: consecutive groups of the
// phase's batch size, with an optional descending sort applied inside each
// group. The trailing group may be short and is emitted rather than dropped.
type Plain struct {
	sizes map[Phase]int
}

var _ Batcher = (*Plain)(nil)

// NewPlain builds a Plain batcher from cfg. Any batch size at or below zero
// is an error.
func NewPlain(cfg Config) (*Plain, error) {
	sizes, err := cfg.sizes()
	if err != nil {
		return nil, err
	}
	return &Plain{sizes: sizes}, nil
}

// Batchify implements Batcher. Memory stays bounded by one group.
func (b *Plain) Batchify(rows iter.Seq2[Row, error], sortKey SortKeyFunc, phase Phase) iter.Seq2[Columns, error] {
	size := b.sizes[phase]
	return func(yield func(Columns, error) bool) {
		for group, err := range groups(rows, size) {
			if err != nil {
				yield(nil, err)
				return
			}
			sortGroup(group, sortKey)
			if !yield(ZipRows(group), nil) {
				return
			}
		}
	}
}
