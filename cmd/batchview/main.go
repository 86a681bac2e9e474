// Command batchview drives a batching pipeline over TSV datasets from the
// command line: it builds the tensorizers, runs training or evaluation
// passes, reports throughput, and can render batch-shape plots. It is the
// quickest way to sanity-check a dataset and batching configuration before
// wiring the pipeline into a training loop.
package main

import (
	"encoding/gob"
	"flag"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Noofbiz/rowbatch"
	"github.com/Noofbiz/rowbatch/analytics"
	"github.com/Noofbiz/rowbatch/batch"
	"github.com/Noofbiz/rowbatch/source"
	"github.com/Noofbiz/rowbatch/tensorize"
)

// snapshotVersion is incremented when the on-disk row snapshot format
// changes.
const snapshotVersion = 1

// rowSnapshot is the gob layout of a parsed-row snapshot: every phase's
// rows plus enough metadata to refuse a snapshot built with a different
// schema.
type rowSnapshot struct {
	Version   int
	Fields    []string
	CreatedAt int64
	Train     []batch.Row
	Eval      []batch.Row
	Test      []batch.Row
}

func init() {
	// Row values inside a snapshot are the raw TSV strings.
	gob.Register("")
}

func main() {
	trainPath := flag.String("train", "", "path to the training TSV file")
	evalPath := flag.String("eval", "", "path to the evaluation TSV file")
	testPath := flag.String("test", "", "path to the test TSV file")
	fieldsFlag := flag.String("fields", "", "comma-separated column names for the TSV schema, left to right")
	tokensFlag := flag.String("tokens", "", "comma-separated text fields to tokenize into padded id sequences")
	labelFlag := flag.String("label", "", "categorical label field")
	floatsFlag := flag.String("floats", "", "comma-separated numeric fields")
	normalize := flag.Bool("normalize", false, "z-score normalize numeric fields with training statistics")
	sortField := flag.String("sort-field", "", "field whose tensorizer orders rows for length bucketing")
	phaseFlag := flag.String("phase", "train", "phase to run: train, eval or test")
	epochs := flag.Int("epochs", 1, "number of traversals to run over the chosen phase")
	epochSize := flag.Int("epoch-size", 0, "fixed number of training batches per epoch (0 = one full pass)")
	trainBatch := flag.Int("train-batch", 16, "rows per training batch")
	evalBatch := flag.Int("eval-batch", 16, "rows per evaluation batch")
	testBatch := flag.Int("test-batch", 16, "rows per test batch")
	poolBatches := flag.Int("pool-batches", 128, "batches per shuffle pool for pooled batching")
	plain := flag.Bool("plain", false, "plain in-order batching instead of pooled shuffling")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for pool shuffling")
	cache := flag.Bool("cache", true, "cache numberized rows in memory between passes")
	rank := flag.Int("rank", 0, "this worker's rank for row sharding")
	worldSize := flag.Int("world-size", 1, "number of workers sharing the training stream")
	snapshotPath := flag.String("snapshot", "", "path to a gob snapshot of parsed rows: loaded when present, written otherwise")
	snapshotForce := flag.Bool("snapshot-force", false, "reparse the TSV files and overwrite the snapshot even if one exists")
	plotDir := flag.String("plot-dir", "", "directory for batch-shape PNG plots (none when empty)")
	progress := flag.Int("progress", 100, "log progress every N batches (0 = off)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	fields := splitList(*fieldsFlag)
	if len(fields) == 0 {
		log.Fatal("-fields is required")
	}
	if *trainPath == "" && *evalPath == "" && *testPath == "" {
		log.Fatal("at least one of -train, -eval or -test is required")
	}

	var src source.DataSource
	tsv, err := source.NewTSV(source.TSVConfig{
		Fields:    fields,
		TrainPath: *trainPath,
		EvalPath:  *evalPath,
		TestPath:  *testPath,
	})
	if err != nil {
		log.Fatalf("building tsv source: %v", err)
	}
	src = tsv
	if *snapshotPath != "" {
		src, err = loadOrSnapshot(log, tsv, fields, *snapshotPath, *snapshotForce)
		if err != nil {
			log.Fatalf("row snapshot: %v", err)
		}
	}
	if *worldSize > 1 {
		src, err = source.NewRowSharded(src, *rank, *worldSize)
		if err != nil {
			log.Fatalf("sharding source: %v", err)
		}
	}

	tensorizers := buildTensorizers(*tokensFlag, *labelFlag, *floatsFlag, *normalize)
	if len(tensorizers) == 0 {
		log.Fatal("no tensorizers configured; set -tokens, -label or -floats")
	}

	cfg := batch.Config{
		TrainBatchSize: *trainBatch,
		EvalBatchSize:  *evalBatch,
		TestBatchSize:  *testBatch,
		PoolNumBatches: *poolBatches,
	}
	var batcher batch.Batcher
	if *plain {
		batcher, err = batch.NewPlain(cfg)
	} else {
		batcher, err = batch.NewPooling(cfg, batch.WithRand(rand.New(rand.NewSource(*seed))))
	}
	if err != nil {
		log.Fatalf("building batcher: %v", err)
	}

	opts := []rowbatch.Option{
		rowbatch.WithBatcher(batcher),
		rowbatch.WithLogger(log),
		rowbatch.WithEpochSize(*epochSize),
		rowbatch.WithInMemoryCache(*cache),
	}
	if *sortField != "" {
		opts = append(opts, rowbatch.WithSortField(*sortField))
	}
	start := time.Now()
	data, err := rowbatch.New(src, tensorizers, opts...)
	if err != nil {
		log.Fatalf("building pipeline: %v", err)
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("pipeline initialized")

	phase, err := parsePhase(*phaseFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	total := 0
	for epoch := 1; epoch <= *epochs; epoch++ {
		passStart := time.Now()
		served := 0
		for _, err := range data.Batches(phase) {
			if err != nil {
				log.Fatalf("epoch %d: %v", epoch, err)
			}
			served++
			if *progress > 0 && served%*progress == 0 {
				log.WithFields(logrus.Fields{
					"epoch":   epoch,
					"batches": served,
					"elapsed": time.Since(passStart).Round(time.Millisecond),
				}).Info("progress")
			}
		}
		elapsed := time.Since(passStart)
		rate := float64(served) / elapsed.Seconds()
		log.WithFields(logrus.Fields{
			"phase":       phase.String(),
			"epoch":       epoch,
			"batches":     served,
			"elapsed":     elapsed.Round(time.Millisecond),
			"batches/sec": int(rate),
		}).Info("pass complete")
		total += served
	}
	log.WithFields(logrus.Fields{
		"epochs":  *epochs,
		"batches": total,
	}).Info("done")

	if *plotDir != "" {
		if err := writePlots(log, data, batcher, phase, *sortField, *plotDir); err != nil {
			log.Fatalf("writing plots: %v", err)
		}
	}
}

// buildTensorizers assembles the tensorizer set from the role flags. Output
// fields keep their raw field names; a whole-batch token count rides along
// with the first tokenized field.
func buildTensorizers(tokens, label, floats string, normalize bool) map[string]tensorize.Tensorizer {
	ts := make(map[string]tensorize.Tensorizer)
	tokenFields := splitList(tokens)
	for _, name := range tokenFields {
		ts[name] = &tensorize.Tokens{Field: name}
	}
	if len(tokenFields) > 0 {
		ts["ntokens"] = &tensorize.TokenCount{Of: tokenFields[0]}
	}
	if label != "" {
		ts[label] = &tensorize.Label{Field: label}
	}
	for _, name := range splitList(floats) {
		ts[name] = &tensorize.Float{Field: name, Normalize: normalize}
	}
	return ts
}

// writePlots profiles one extra derivation of the phase and renders the
// batch-shape charts. The profiling pass is independent of the cursors the
// main loop used.
func writePlots(log *logrus.Logger, data *rowbatch.Data, batcher batch.Batcher, phase batch.Phase, sortField, dir string) error {
	rows, err := data.NumberizedRows(phase)
	if err != nil {
		return err
	}
	batches := batcher.Batchify(rows, data.SortKey(), phase)
	var profile *analytics.Profile
	if sorter, ok := data.Tensorizers()[sortField].(tensorize.Sorter); ok {
		profile, err = analytics.CollectKeyed(batches, sortField, sorter.SortValue)
	} else {
		profile, err = analytics.Collect(batches)
	}
	if err != nil {
		return err
	}
	fields := logrus.Fields{
		"batches":   profile.Batches(),
		"rows":      profile.Rows,
		"mean size": profile.MeanSize(),
	}
	if len(profile.KeySpreads) > 0 {
		fields["mean key spread"] = profile.MeanKeySpread()
	}
	log.WithFields(fields).Info("profiled batches")
	if err := profile.SaveSizeHistogram(filepath.Join(dir, "size_hist.png")); err != nil {
		return err
	}
	return profile.SaveSizeTimeline(filepath.Join(dir, "size_timeline.png"))
}

// loadOrSnapshot serves rows from the snapshot at path when it matches the
// schema, and otherwise drains the TSV source once, writes a fresh
// snapshot, and serves the drained rows.
func loadOrSnapshot(log *logrus.Logger, src source.DataSource, fields []string, path string, force bool) (source.DataSource, error) {
	if !force {
		snap, err := readSnapshot(path, fields)
		switch {
		case err == nil:
			log.WithFields(logrus.Fields{
				"path":  path,
				"train": len(snap.Train),
				"eval":  len(snap.Eval),
				"test":  len(snap.Test),
			}).Info("loaded row snapshot")
			return source.FromRows(snap.Train, snap.Eval, snap.Test), nil
		case os.IsNotExist(errors.Cause(err)):
			// First run; build it below.
		default:
			log.Warnf("rebuilding row snapshot: %v", err)
		}
	}

	train, err := source.Collect(src.Train())
	if err != nil {
		return nil, errors.Wrap(err, "reading train rows")
	}
	eval, err := source.Collect(src.Eval())
	if err != nil {
		return nil, errors.Wrap(err, "reading eval rows")
	}
	test, err := source.Collect(src.Test())
	if err != nil {
		return nil, errors.Wrap(err, "reading test rows")
	}
	snap := &rowSnapshot{
		Version:   snapshotVersion,
		Fields:    fields,
		CreatedAt: time.Now().Unix(),
		Train:     train,
		Eval:      eval,
		Test:      test,
	}
	if err := writeSnapshot(path, snap); err != nil {
		return nil, err
	}
	log.WithField("path", path).Info("wrote row snapshot")
	return source.FromRows(train, eval, test), nil
}

func readSnapshot(path string, fields []string) (*rowSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening snapshot %s", path)
	}
	defer f.Close()

	var snap rowSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, errors.Wrapf(err, "decoding snapshot %s", path)
	}
	if snap.Version != snapshotVersion {
		return nil, errors.Errorf("snapshot version mismatch: snapshot=%d expected=%d", snap.Version, snapshotVersion)
	}
	if strings.Join(snap.Fields, "\t") != strings.Join(fields, "\t") {
		return nil, errors.Errorf("snapshot schema mismatch: snapshot=%v expected=%v", snap.Fields, fields)
	}
	return &snap, nil
}

// writeSnapshot writes the snapshot atomically: encode to a temp file in
// the target directory, then rename over the target path.
func writeSnapshot(path string, snap *rowSnapshot) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "mkdir %s", dir)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.Wrap(err, "creating temp snapshot")
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "syncing snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing snapshot")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming snapshot into place")
	}
	return nil
}

func parsePhase(s string) (batch.Phase, error) {
	switch strings.ToLower(s) {
	case "train":
		return batch.Train, nil
	case "eval":
		return batch.Eval, nil
	case "test":
		return batch.Test, nil
	}
	return 0, errors.Errorf("unknown phase %q, want train, eval or test", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
