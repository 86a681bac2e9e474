package tensorize

import (
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// Reserved vocabulary ids. Padding doubles as the neutral value, so a
// zeroed id slice is already fully padded.
const (
	PadID int32 = 0
	UnkID int32 = 1
)

// Tokens converts a whitespace-tokenized text field into padded id
// sequences. The vocabulary is built from the training stream during
// initialization with ids 0 and 1 reserved for padding and unknown tokens;
// tokens outside it numberize to UnkID. Within a batch every sequence is
// padded to the longest one, which is what makes length-bucketed batching
// pay off.
//
// The zero value with a Field name is ready to use.
type Tokens struct {
	// Field names the raw field to read.
	Field string
	// MaxLen truncates sequences when positive.
	MaxLen int

	vocab map[string]int32
}

var (
	_ Tensorizer  = (*Tokens)(nil)
	_ Sorter      = (*Tokens)(nil)
	_ Initializer = (*Tokens)(nil)
)

// Observe implements Initializer, admitting the row's tokens to the
// vocabulary.
func (t *Tokens) Observe(row batch.Row) error {
	v, ok := row[t.Field]
	if !ok || v == nil {
		return nil
	}
	text, err := toString(v)
	if err != nil {
		return errors.Wrapf(err, "field %q", t.Field)
	}
	if t.vocab == nil {
		t.vocab = make(map[string]int32)
	}
	for _, tok := range strings.Fields(text) {
		if _, seen := t.vocab[tok]; !seen {
			t.vocab[tok] = UnkID + 1 + int32(len(t.vocab))
		}
	}
	return nil
}

// Finish implements Initializer. An empty vocabulary is allowed; every
// token then numberizes to UnkID.
func (t *Tokens) Finish() error {
	if t.vocab == nil {
		t.vocab = make(map[string]int32)
	}
	return nil
}

// VocabSize counts the vocabulary including the two reserved ids. Models
// size their embedding table from this.
func (t *Tokens) VocabSize() int {
	return len(t.vocab) + 2
}

// Numberize implements Tensorizer, splitting on whitespace and mapping each
// token to its id. A missing field numberizes to an empty sequence.
func (t *Tokens) Numberize(row batch.Row) (any, error) {
	v, ok := row[t.Field]
	if !ok || v == nil {
		return []int32{}, nil
	}
	text, err := toString(v)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", t.Field)
	}
	toks := strings.Fields(text)
	if t.MaxLen > 0 && len(toks) > t.MaxLen {
		toks = toks[:t.MaxLen]
	}
	ids := make([]int32, len(toks))
	for i, tok := range toks {
		id, known := t.vocab[tok]
		if !known {
			id = UnkID
		}
		ids[i] = id
	}
	return ids, nil
}

// SortValue implements Sorter, ordering rows by token count so batches
// group sequences of similar length and waste little padding.
func (t *Tokens) SortValue(value any) float64 {
	ids, ok := value.([]int32)
	if !ok {
		return 0
	}
	return float64(len(ids))
}

// Tensorize implements Tensorizer, producing a rows x longest-sequence
// matrix of ids.
func (t *Tokens) Tensorize(column []any) (*tensors.Tensor, error) {
	out, err := t.pad(column)
	if err != nil {
		return nil, err
	}
	return tensors.FromAnyValue(out), nil
}

func (t *Tokens) pad(column []any) ([][]int32, error) {
	width := 0
	seqs := make([][]int32, len(column))
	for i, v := range column {
		if v == nil {
			continue
		}
		ids, ok := v.([]int32)
		if !ok {
			return nil, errors.Errorf("field %q: row %d holds %T, want []int32", t.Field, i, v)
		}
		seqs[i] = ids
		width = max(width, len(ids))
	}
	if width == 0 {
		// A batch of empty sequences still gets one pad column.
		width = 1
	}
	out := make([][]int32, len(seqs))
	for i, ids := range seqs {
		padded := make([]int32, width)
		copy(padded, ids)
		out[i] = padded
	}
	return out, nil
}
