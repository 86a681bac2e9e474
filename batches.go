package rowbatch

import (
	"iter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Noofbiz/rowbatch/batch"
	"github.com/Noofbiz/rowbatch/source"
	"github.com/Noofbiz/rowbatch/tensorize"
)

// cursor is the live pull iterator over one phase's derived batch stream.
// It outlives traversals so an epoch boundary can park it mid-stream.
type cursor struct {
	next func() (tensorize.TensorBatch, error, bool)
	stop func()
}

// Batches returns the restartable tensor-batch sequence for phase. Each
// traversal counts its own batches; the underlying cursor and row cache
// carry across traversals.
//
// For Train with an epoch size set, a traversal ends after exactly that
// many batches, wrapping around to fresh passes over the supply as needed,
// and the next traversal resumes where this one stopped. All other
// traversals serve one full pass. An error from the source or a tensorizer
// ends the traversal and discards the cursor, so the next traversal starts
// a clean derivation.
func (d *Data) Batches(phase batch.Phase) iter.Seq2[tensorize.TensorBatch, error] {
	return func(yield func(tensorize.TensorBatch, error) bool) {
		served := 0
		for {
			cur, fresh, err := d.phaseCursor(phase)
			if err != nil {
				yield(nil, err)
				return
			}
			pulled := 0
			for {
				if phase == batch.Train && d.epochSize > 0 && served == d.epochSize {
					// Epoch boundary. The cursor stays parked mid-stream
					// for the next traversal.
					return
				}
				tb, terr, ok := cur.next()
				if !ok {
					break
				}
				if terr != nil {
					d.dropCursor(phase)
					yield(nil, terr)
					return
				}
				pulled++
				served++
				if !yield(tb, nil) {
					return
				}
			}
			d.dropCursor(phase)
			// A fresh derivation that served nothing means the supply is
			// empty; wrapping around again would spin forever.
			if phase != batch.Train || d.epochSize == 0 || (fresh && pulled == 0) {
				return
			}
		}
	}
}

// NumberizedRows returns the phase's converted row supply, exactly what the
// batcher consumes: the cached realization when caching is on, otherwise a
// lazy conversion pass over the source.
func (d *Data) NumberizedRows(phase batch.Phase) (source.Rows, error) {
	return d.numberized(phase)
}

// SortKey returns the row ordering derived from the configured sort field,
// or nil when no sort field is set.
func (d *Data) SortKey() batch.SortKeyFunc {
	return d.sortKey
}

func (d *Data) phaseCursor(phase batch.Phase) (cur *cursor, fresh bool, err error) {
	if c := d.cursors[phase]; c != nil {
		return c, false, nil
	}
	rows, err := d.numberized(phase)
	if err != nil {
		return nil, false, err
	}
	batches := d.batcher.Batchify(rows, d.sortKey, phase)
	next, stop := iter.Pull2(tensorize.PadAndTensorize(d.tensorizers, batches))
	c := &cursor{next: next, stop: stop}
	d.cursors[phase] = c
	d.logger.WithField("phase", phase.String()).Debug("derived batch cursor")
	return c, true, nil
}

func (d *Data) dropCursor(phase batch.Phase) {
	if c := d.cursors[phase]; c != nil {
		c.stop()
		delete(d.cursors, phase)
	}
}

// numberized returns the phase's converted rows. With caching on, the first
// call realizes and stores the whole phase; a failed realization stores
// nothing, so the next call retries from the source.
func (d *Data) numberized(phase batch.Phase) (source.Rows, error) {
	if !d.inMemory {
		return d.numberizeRows(d.phaseRows(phase)), nil
	}
	if rows, ok := d.cache[phase]; ok {
		d.logger.WithField("phase", phase.String()).Debug("serving numberized rows from cache")
		return source.FromSlice(rows), nil
	}
	rows, err := source.Collect(d.numberizeRows(d.phaseRows(phase)))
	if err != nil {
		return nil, err
	}
	d.cache[phase] = rows
	d.logger.WithFields(logrus.Fields{
		"phase": phase.String(),
		"rows":  len(rows),
	}).Debug("cached numberized rows")
	return source.FromSlice(rows), nil
}

func (d *Data) phaseRows(phase batch.Phase) source.Rows {
	switch phase {
	case batch.Train:
		return d.src.Train()
	case batch.Eval:
		return d.src.Eval()
	default:
		return d.src.Test()
	}
}

// numberizeRows lazily fans each row through every tensorizer, producing
// rows that carry exactly the tensorizer set's fields.
func (d *Data) numberizeRows(rows source.Rows) source.Rows {
	return func(yield func(batch.Row, error) bool) {
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			out := make(batch.Row, len(d.tensorizers))
			for name, t := range d.tensorizers {
				v, nerr := t.Numberize(row)
				if nerr != nil {
					yield(nil, errors.Wrapf(nerr, "numberizing field %q", name))
					return
				}
				out[name] = v
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
