package source

import "iter"

// Restartable derives a fresh traversal from a recorded producer function
// every time it is ranged over. It exists for sequences backed by one-shot
// state, an open file or a consumed reader, where handing out a single
// stateful iterator would silently serve an exhausted stream on the second
// pass. The producer runs again, with whatever it closed over, for every
// traversal.
type Restartable[V any] struct {
	produce func() iter.Seq2[V, error]
}

// NewRestartable records produce for later traversals. The producer must
// return a sequence over fresh state each call.
func NewRestartable[V any](produce func() iter.Seq2[V, error]) *Restartable[V] {
	return &Restartable[V]{produce: produce}
}

// Seq returns the restartable sequence. Each range over it invokes the
// producer once and streams that traversal.
func (r *Restartable[V]) Seq() iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for v, err := range r.produce() {
			if !yield(v, err) {
				return
			}
		}
	}
}
