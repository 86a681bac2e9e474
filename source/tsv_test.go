package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", path, err)
	}
}

func TestTSV_ReadsPhaseFiles(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.tsv")
	evalPath := filepath.Join(dir, "eval.tsv")
	writeTSV(t, trainPath,
		"hello world\tpos",
		"bad film\tneg",
		"fine\tpos",
	)
	writeTSV(t, evalPath,
		"great\tpos",
	)
	src, err := NewTSV(TSVConfig{
		Fields:    []string{"text", "label"},
		TrainPath: trainPath,
		EvalPath:  evalPath,
	})
	if err != nil {
		t.Fatalf("NewTSV failed: %v", err)
	}
	train, err := Collect(src.Train())
	if err != nil {
		t.Fatalf("collecting train failed: %v", err)
	}
	if len(train) != 3 {
		t.Fatalf("got %d train rows, want 3", len(train))
	}
	if train[0]["text"] != "hello world" || train[0]["label"] != "pos" {
		t.Errorf("first row = %v", train[0])
	}
	if train[1]["label"] != "neg" {
		t.Errorf("second row = %v", train[1])
	}
	eval, err := Collect(src.Eval())
	if err != nil {
		t.Fatalf("collecting eval failed: %v", err)
	}
	if len(eval) != 1 {
		t.Fatalf("got %d eval rows, want 1", len(eval))
	}
	test, err := Collect(src.Test())
	if err != nil {
		t.Fatalf("collecting test failed: %v", err)
	}
	if len(test) != 0 {
		t.Fatalf("pathless test phase produced %d rows", len(test))
	}
}

func TestTSV_ShortRecordLeavesFieldsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.tsv")
	writeTSV(t, path, "only text here")
	src, err := NewTSV(TSVConfig{
		Fields:    []string{"text", "label"},
		TrainPath: path,
	})
	if err != nil {
		t.Fatalf("NewTSV failed: %v", err)
	}
	rows, err := Collect(src.Train())
	if err != nil {
		t.Fatalf("collecting failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["text"] != "only text here" {
		t.Errorf("text = %v", rows[0]["text"])
	}
	if _, present := rows[0]["label"]; present {
		t.Errorf("short record still carries a label: %v", rows[0])
	}
}

func TestTSV_ExtraColumnsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.tsv")
	writeTSV(t, path, "text\tpos\tsurplus\tmore")
	src, err := NewTSV(TSVConfig{
		Fields:    []string{"text", "label"},
		TrainPath: path,
	})
	if err != nil {
		t.Fatalf("NewTSV failed: %v", err)
	}
	rows, err := Collect(src.Train())
	if err != nil {
		t.Fatalf("collecting failed: %v", err)
	}
	if len(rows[0]) != 2 {
		t.Fatalf("row = %v, want just the two named fields", rows[0])
	}
}

func TestTSV_RereadsFileEachTraversal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.tsv")
	writeTSV(t, path, "one\ta")
	src, err := NewTSV(TSVConfig{
		Fields:    []string{"text", "label"},
		TrainPath: path,
	})
	if err != nil {
		t.Fatalf("NewTSV failed: %v", err)
	}
	rows, err := Collect(src.Train())
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("first pass got %d rows, want 1", len(rows))
	}
	writeTSV(t, path, "one\ta", "two\tb")
	rows, err = Collect(src.Train())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("second pass got %d rows, want the rewritten file's 2", len(rows))
	}
}

func TestTSV_MissingFileSurfacesError(t *testing.T) {
	src, err := NewTSV(TSVConfig{
		Fields:    []string{"text"},
		TrainPath: filepath.Join(t.TempDir(), "nope.tsv"),
	})
	if err != nil {
		t.Fatalf("NewTSV failed: %v", err)
	}
	if _, err := Collect(src.Train()); err == nil {
		t.Fatal("reading a missing file succeeded")
	}
}

func TestNewTSV_Validation(t *testing.T) {
	if _, err := NewTSV(TSVConfig{}); err == nil {
		t.Error("accepted an empty field list")
	}
	if _, err := NewTSV(TSVConfig{Fields: []string{"a", ""}}); err == nil {
		t.Error("accepted an empty field name")
	}
	if _, err := NewTSV(TSVConfig{Fields: []string{"a", "b", "a"}}); err == nil {
		t.Error("accepted a duplicate field name")
	}
}
