package psv

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pavement-cli/internal/tabular"
)

// ResultColumns is the header of the results table.
var ResultColumns = []string{
	"Link Section",
	"AADT_HGVS",
	"Design Period",
	"Total Projected AADT HGVs",
	"Lane 1",
	"Lane 2",
	"Lane 3",
	"Lane 4",
	"Lane 1 Details",
	"Lane 2 Details",
	"Lane 3 Details",
	"Lane 4 Details",
	"PSV Lane 1",
	"PSV Lane 2",
	"PSV Lane 3",
	"PSV Lane 4",
}

// Record renders a result as a row under ResultColumns.
func (r Result) Record() []string {
	row := make([]string, 0, len(ResultColumns))
	row = append(row,
		r.LinkSection,
		strconv.Itoa(r.AADTHGV),
		strconv.Itoa(r.DesignPeriod),
		strconv.Itoa(r.ProjectedAADTHGV),
	)
	for _, p := range r.Lanes.Percent {
		row = append(row, strconv.Itoa(p))
	}
	for _, v := range r.Lanes.Volume {
		row = append(row, strconv.Itoa(v))
	}
	for _, l := range r.PSV {
		row = append(row, l.String())
	}
	return row
}

// Records renders results in order.
func Records(results []Result) [][]string {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = r.Record()
	}
	return rows
}

// WriteResults writes results as CSV with a ResultColumns header.
func WriteResults(w io.Writer, results []Result) error {
	return eris.Wrap(tabular.WriteCSV(w, ResultColumns, Records(results)), "psv: write results")
}

// ReadResults parses a results CSV written by WriteResults.
func ReadResults(r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "psv: read results")
	}
	if len(records) == 0 {
		return nil, eris.New("psv: results file is empty")
	}

	header := records[0]
	if len(header) != len(ResultColumns) {
		return nil, eris.Errorf("psv: results header has %d columns, want %d", len(header), len(ResultColumns))
	}
	for i, h := range header {
		if h != ResultColumns[i] {
			return nil, eris.Errorf("psv: results column %d is %q, want %q", i+1, h, ResultColumns[i])
		}
	}

	results := make([]Result, 0, len(records)-1)
	for n, rec := range records[1:] {
		res, err := parseRecord(rec)
		if err != nil {
			return nil, eris.Wrapf(err, "psv: results row %d", n+2)
		}
		results = append(results, res)
	}
	return results, nil
}

func parseRecord(rec []string) (Result, error) {
	ints := make([]int, 0, 3+2*MaxLanes)
	for i := 1; i < 4+2*MaxLanes; i++ {
		v, err := strconv.Atoi(rec[i])
		if err != nil {
			return Result{}, eris.Wrapf(err, "column %q", ResultColumns[i])
		}
		ints = append(ints, v)
	}

	res := Result{
		LinkSection:      rec[0],
		AADTHGV:          ints[0],
		DesignPeriod:     ints[1],
		ProjectedAADTHGV: ints[2],
	}
	for i := range MaxLanes {
		res.Lanes.Percent[i] = ints[3+i]
		res.Lanes.Volume[i] = ints[3+MaxLanes+i]
		res.PSV[i] = ParseLookup(rec[4+2*MaxLanes+i])
	}
	return res, nil
}
