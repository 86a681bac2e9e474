package source

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/Noofbiz/rowbatch/batch"
)

// TSVConfig describes a set of tab-separated files, one per phase, with
// field names assigned to columns left to right. There is no header line;
// the schema is the config. Phases without a path get empty streams.
type TSVConfig struct {
	// Fields names the columns positionally. A record with fewer columns
	// than fields leaves the trailing fields absent from the row.
	Fields    []string
	TrainPath string
	EvalPath  string
	TestPath  string
}

// TSV reads example rows from tab-separated files, one row per record, with
// every value delivered as a string. Files are opened lazily and re-read on
// every traversal, so the streams stay valid across any number of passes.
type TSV struct {
	cfg TSVConfig
}

var _ DataSource = (*TSV)(nil)

// NewTSV validates cfg and builds the source. Paths are not touched until a
// stream is traversed.
func NewTSV(cfg TSVConfig) (*TSV, error) {
	if len(cfg.Fields) == 0 {
		return nil, errors.New("tsv source needs at least one field")
	}
	seen := make(map[string]struct{}, len(cfg.Fields))
	for _, name := range cfg.Fields {
		if name == "" {
			return nil, errors.New("tsv field names must be non-empty")
		}
		if _, dup := seen[name]; dup {
			return nil, errors.Errorf("duplicate tsv field %q", name)
		}
		seen[name] = struct{}{}
	}
	return &TSV{cfg: cfg}, nil
}

// Train implements DataSource.
func (s *TSV) Train() Rows { return s.fileRows(s.cfg.TrainPath) }

// Eval implements DataSource.
func (s *TSV) Eval() Rows { return s.fileRows(s.cfg.EvalPath) }

// Test implements DataSource.
func (s *TSV) Test() Rows { return s.fileRows(s.cfg.TestPath) }

func (s *TSV) fileRows(path string) Rows {
	if path == "" {
		return Empty()
	}
	return NewRestartable(func() Rows {
		return s.readFile(path)
	}).Seq()
}

func (s *TSV) readFile(path string) Rows {
	return func(yield func(batch.Row, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, errors.Wrapf(err, "opening %s", path))
			return
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.Comma = '\t'
		r.LazyQuotes = true
		// Records may be ragged; short rows just leave fields absent.
		r.FieldsPerRecord = -1
		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, errors.Wrapf(err, "reading %s", path))
				return
			}
			row := make(batch.Row, len(s.cfg.Fields))
			for i, name := range s.cfg.Fields {
				if i < len(record) {
					row[name] = record[i]
				}
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
