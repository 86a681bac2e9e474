package tensorize

import (
	"math"
	"testing"

	"github.com/Noofbiz/rowbatch/batch"
)

func numberizeFloat(t *testing.T, f *Float, row batch.Row) float32 {
	t.Helper()
	v, err := f.Numberize(row)
	if err != nil {
		t.Fatalf("Numberize(%v) failed: %v", row, err)
	}
	x, ok := v.(float32)
	if !ok {
		t.Fatalf("Numberize(%v) = %T, want float32", row, v)
	}
	return x
}

func TestFloat_NumberizeAcceptsNumbersAndStrings(t *testing.T) {
	f := &Float{Field: "score"}
	for _, tc := range []struct {
		raw  any
		want float32
	}{
		{"3.5", 3.5},
		{" 2 ", 2},
		{float64(1.25), 1.25},
		{float32(0.5), 0.5},
		{int(7), 7},
		{int64(-3), -3},
	} {
		if got := numberizeFloat(t, f, batch.Row{"score": tc.raw}); got != tc.want {
			t.Errorf("Numberize(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
	if _, err := f.Numberize(batch.Row{"score": "not a number"}); err == nil {
		t.Error("Numberize accepted unparseable text")
	}
}

func TestFloat_MissingFieldIsZero(t *testing.T) {
	f := &Float{Field: "score"}
	if got := numberizeFloat(t, f, batch.Row{"other": "1"}); got != 0 {
		t.Errorf("missing field numberized to %v, want 0", got)
	}
}

func TestFloat_NormalizeUsesTrainingStatistics(t *testing.T) {
	f := &Float{Field: "score", Normalize: true}
	for _, raw := range []string{"2", "4", "6"} {
		if err := f.Observe(batch.Row{"score": raw}); err != nil {
			t.Fatalf("Observe(%q) failed: %v", raw, err)
		}
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	// Mean 4, sample standard deviation 2.
	if got := numberizeFloat(t, f, batch.Row{"score": "4"}); got != 0 {
		t.Errorf("mean value normalized to %v, want 0", got)
	}
	if got := numberizeFloat(t, f, batch.Row{"score": "6"}); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("mean+stddev normalized to %v, want 1", got)
	}
}

func TestFloat_ConstantFieldNormalizesToZero(t *testing.T) {
	f := &Float{Field: "score", Normalize: true}
	for i := 0; i < 3; i++ {
		if err := f.Observe(batch.Row{"score": "5"}); err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if got := numberizeFloat(t, f, batch.Row{"score": "5"}); got != 0 {
		t.Errorf("constant field normalized to %v, want 0", got)
	}
}

func TestFloat_FinishWithoutValuesFails(t *testing.T) {
	f := &Float{Field: "score", Normalize: true}
	if err := f.Finish(); err == nil {
		t.Fatal("Finish accepted an empty training stream for a normalized field")
	}
}

func TestFloat_SortValue(t *testing.T) {
	f := &Float{Field: "score"}
	if got := f.SortValue(float32(2.5)); got != 2.5 {
		t.Errorf("SortValue(2.5) = %v", got)
	}
	if got := f.SortValue(nil); got != 0 {
		t.Errorf("SortValue(nil) = %v, want 0", got)
	}
}

func TestFloat_ColumnValues(t *testing.T) {
	f := &Float{Field: "score"}
	got, err := f.values([]any{float32(1), nil, float32(3)})
	if err != nil {
		t.Fatalf("values failed: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 0 || got[2] != 3 {
		t.Errorf("values = %v, want [1 0 3]", got)
	}
	if _, err := f.values([]any{"raw"}); err == nil {
		t.Error("values accepted a non-numberized entry")
	}
}
