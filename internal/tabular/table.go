package tabular

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies a supported table file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its table format by extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("tabular: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(name))
	}
}

// Options configures Open.
type Options struct {
	Encoding  string // CSV text encoding label
	Delimiter rune   // CSV delimiter, default ','
	Sheet     string // XLSX sheet name, default first sheet
}

// Row maps a header name to the cell value in that column.
type Row map[string]string

// Table is a fully materialized table with a header row.
type Table struct {
	Source string
	Sheet  string // worksheet read, XLSX only
	Header []string
	Rows   []Row
	Lines  []int // source row number of each entry in Rows; the header is row 1

	index map[string]string // normalized header -> header
}

// NewTable builds a Table from a header and raw records. Records shorter than
// the header are padded with empty cells; extra cells are dropped. Rows whose
// cells are all blank are skipped.
func NewTable(source string, header []string, records [][]string) *Table {
	t := &Table{Source: source, index: make(map[string]string, len(header))}
	for _, h := range header {
		h = strings.TrimSpace(h)
		t.Header = append(t.Header, h)
		if _, dup := t.index[normalize(h)]; !dup {
			t.index[normalize(h)] = h
		}
	}

	for n, rec := range records {
		row := make(Row, len(t.Header))
		blank := true
		for i, h := range t.Header {
			var v string
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			if v != "" {
				blank = false
			}
			if _, set := row[h]; !set {
				row[h] = v
			}
		}
		if !blank {
			t.Rows = append(t.Rows, row)
			t.Lines = append(t.Lines, n+2)
		}
	}
	return t
}

// Line returns the source row number of Rows[i].
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Column resolves the first of the candidate names present in the header.
// Matching ignores case, spaces, underscores, hyphens, dots and percent
// signs, so "Link Section" and "link_section" name the same column.
func (t *Table) Column(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if h, ok := t.index[normalize(c)]; ok {
			return h, true
		}
	}
	return "", false
}

// Require resolves every named column. Each entry lists acceptable aliases
// with the canonical name first; the canonical names of unresolved columns
// are reported together in a MissingColumnsError.
func (t *Table) Require(cols ...[]string) (map[string]string, error) {
	resolved := make(map[string]string, len(cols))
	var missing []string
	for _, aliases := range cols {
		if len(aliases) == 0 {
			continue
		}
		h, ok := t.Column(aliases...)
		if !ok {
			missing = append(missing, aliases[0])
			continue
		}
		resolved[aliases[0]] = h
	}
	if len(missing) > 0 {
		return resolved, &MissingColumnsError{Source: t.Source, Columns: missing}
	}
	return resolved, nil
}

// Open reads a CSV or XLSX file into a Table, choosing the format by the
// path's extension. The first row is the header. Read and parse failures are
// returned as *ReadError.
func Open(ctx context.Context, path string, opts Options) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return OpenFormat(ctx, path, filepath.Base(path), format, opts)
}

// OpenNamed reads a table whose format comes from name rather than path,
// e.g. an upload spooled to a temporary file. name becomes the table source.
func OpenNamed(ctx context.Context, path, name string, opts Options) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	return OpenFormat(ctx, path, name, format, opts)
}

// OpenFormat reads path as the given format. The first record is the
// header.
func OpenFormat(ctx context.Context, path, source string, format Format, opts Options) (*Table, error) {
	var (
		records [][]string
		sheet   string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, sheet, err = readSheet(ctx, path, opts.Sheet)
	case FormatCSV:
		records, err = readCSVFile(ctx, path, CSVOptions{Delimiter: opts.Delimiter, Encoding: opts.Encoding})
	default:
		return nil, eris.Errorf("tabular: unsupported format %q", format)
	}
	if err != nil {
		return nil, &ReadError{Path: source, Sheet: sheet, Err: err}
	}
	if len(records) == 0 {
		return nil, &ReadError{Path: source, Sheet: sheet, Err: eris.New("tabular: file has no header row")}
	}

	t := NewTable(source, records[0], records[1:])
	t.Sheet = sheet
	return t, nil
}

func readCSVFile(ctx context.Context, path string, opts CSVOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(ctx, f, opts)
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '%', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MissingColumnsError reports required columns absent from a table.
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Columns, ", "))
}

// ReadError reports a table file that could not be read or parsed. Sheet
// names the worksheet involved, when there is one.
type ReadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *ReadError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("read %s, sheet %q: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
