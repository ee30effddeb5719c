// Package tabular reads and writes the CSV and XLSX tables the calculators consume.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter rune   // default ','
	Encoding  string // WHATWG label, e.g. "windows-1252"; empty means UTF-8
	Strict    bool   // reject stray quotes in unquoted cells
}

// ReadCSV reads every record from r with cells trimmed. Records may differ
// in length. ctx is checked between records.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	src, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = !opts.Strict
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: read cancelled")
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, cell := range rec {
			rec[i] = strings.TrimSpace(cell)
		}
		records = append(records, rec)
	}
}

// decodeReader wraps r so that it yields UTF-8. A leading byte order mark is
// dropped, which spreadsheet exports commonly prepend.
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return transform.NewReader(r, unicode.BOMOverride(transform.Nop)), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported encoding %q", label)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// WriteCSV writes a header followed by rows. Missing trailing cells are
// written as empty strings.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, row := range rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
