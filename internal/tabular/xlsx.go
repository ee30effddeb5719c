package tabular

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readSheet returns the rows of one worksheet and the name of the sheet
// read. An empty sheet selects the first worksheet; otherwise names match
// exactly, then ignoring case. Cells render as they display, so numeric
// cells with a general format come back in their shortest decimal form.
func readSheet(ctx context.Context, path, sheet string) ([][]string, string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, sheet, eris.Wrap(err, "xlsx: open workbook")
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return nil, sheet, err
	}

	records := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		if err := ctx.Err(); err != nil {
			return nil, s.Name, eris.Wrap(err, "xlsx: read cancelled")
		}
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.String())
		}
		records = append(records, cells)
	}
	return records, s.Name, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	if name == "" {
		return f.Sheets[0], nil
	}
	if s, ok := f.Sheet[name]; ok {
		return s, nil
	}

	names := make([]string, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return nil, eris.Errorf("xlsx: sheet %q not found (workbook has %s)", name, strings.Join(names, ", "))
}
