package analytics

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

func colSeq(batches ...batch.Columns) iter.Seq2[batch.Columns, error] {
	return func(yield func(batch.Columns, error) bool) {
		for _, cols := range batches {
			if !yield(cols, nil) {
				return
			}
		}
	}
}

func sampleProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := Collect(colSeq(
		batch.Columns{
			"text":  {[]int32{2, 3}, []int32{4}},
			"score": {float32(1), nil},
		},
		batch.Columns{
			"text":  {[]int32{5}},
			"score": {float32(2)},
		},
	))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return p
}

func TestCollect_TalliesBatches(t *testing.T) {
	p := sampleProfile(t)
	if got := p.Batches(); got != 2 {
		t.Fatalf("Batches() = %d, want 2", got)
	}
	if !slices.Equal(p.BatchSizes, []int{2, 1}) {
		t.Errorf("BatchSizes = %v, want [2 1]", p.BatchSizes)
	}
	if p.Rows != 3 {
		t.Errorf("Rows = %d, want 3", p.Rows)
	}
	if p.FieldRows["text"] != 3 {
		t.Errorf("FieldRows[text] = %d, want 3", p.FieldRows["text"])
	}
	if p.FieldRows["score"] != 2 {
		t.Errorf("FieldRows[score] = %d, want 2 since one row was absent", p.FieldRows["score"])
	}
}

func TestCollect_PropagatesStreamError(t *testing.T) {
	readFail := errors.New("read failed")
	batches := func(yield func(batch.Columns, error) bool) {
		yield(nil, readFail)
	}
	if _, err := Collect(batches); !errors.Is(err, readFail) {
		t.Fatalf("Collect error = %v, want %v", err, readFail)
	}
}

func TestProfile_MeanSize(t *testing.T) {
	p := sampleProfile(t)
	if got := p.MeanSize(); got != 1.5 {
		t.Errorf("MeanSize() = %v, want 1.5", got)
	}
	empty := &Profile{}
	if got := empty.MeanSize(); got != 0 {
		t.Errorf("empty MeanSize() = %v, want 0", got)
	}
}

func TestCollectKeyed_SpreadPerBatch(t *testing.T) {
	tokenLen := func(v any) float64 {
		return float64(len(v.([]int32)))
	}
	p, err := CollectKeyed(colSeq(
		batch.Columns{"text": {[]int32{2, 3, 4}, []int32{5}, nil}},
		batch.Columns{"text": {[]int32{6}}},
	), "text", tokenLen)
	if err != nil {
		t.Fatalf("CollectKeyed failed: %v", err)
	}
	// Lengths 3 and 1 in the first batch; the nil row does not count. A
	// single present value in the second batch has no spread.
	if !slices.Equal(p.KeySpreads, []float64{2, 0}) {
		t.Errorf("KeySpreads = %v, want [2 0]", p.KeySpreads)
	}
	if got := p.MeanKeySpread(); got != 1 {
		t.Errorf("MeanKeySpread() = %v, want 1", got)
	}
	if got := sampleProfile(t).MeanKeySpread(); got != 0 {
		t.Errorf("unkeyed MeanKeySpread() = %v, want 0", got)
	}
}

func TestProfile_SavePlots(t *testing.T) {
	p := sampleProfile(t)
	dir := t.TempDir()
	histPath := filepath.Join(dir, "plots", "sizes.png")
	if err := p.SaveSizeHistogram(histPath); err != nil {
		t.Fatalf("SaveSizeHistogram failed: %v", err)
	}
	info, err := os.Stat(histPath)
	if err != nil {
		t.Fatalf("histogram not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("histogram file is empty")
	}
	timelinePath := filepath.Join(dir, "timeline.png")
	if err := p.SaveSizeTimeline(timelinePath); err != nil {
		t.Fatalf("SaveSizeTimeline failed: %v", err)
	}
	if _, err := os.Stat(timelinePath); err != nil {
		t.Fatalf("timeline not written: %v", err)
	}
}

func TestProfile_SaveRejectsEmptyProfile(t *testing.T) {
	empty := &Profile{}
	if err := empty.SaveSizeHistogram(filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("saved a histogram with no batches")
	}
	if err := empty.SaveSizeTimeline(filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("saved a timeline with no batches")
	}
}
