package psv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pavement-cli/internal/tabular"
)

// Column aliases, canonical name first. Matching is case and punctuation
// insensitive (see tabular.Table.Column).
var (
	colLinkSection  = []string{"link_section", "link", "section"}
	colAADT         = []string{"aadt"}
	colHGVPercent   = []string{"hgv_percent", "hgv", "hgvs", "per_hgvs", "hgv_pct"}
	colSurveyYear   = []string{"survey_year", "year"}
	colLaneCount    = []string{"lane_count", "lanes", "number_of_lanes"}
	colSiteCategory = []string{"site_category", "site_cat"}
	colDesignLevel  = []string{"design_input_level", "il", "level", "input_level"}
	colVolume       = []string{"volume", "band", "traffic", "lane_volume"}
	colPSV          = []string{"psv", "required_psv"}
)

// RowError describes one invalid cell in an input table. Row is the
// spreadsheet row number, counting the header as row 1.
type RowError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %s (got %q)", e.Row, e.Column, e.Reason, e.Value)
}

// ValidationError collects every invalid cell found in a table.
type ValidationError struct {
	Source string
	Rows   []RowError
}

const maxReportedRows = 10

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d invalid value(s)", e.Source, len(e.Rows))
	for i, r := range e.Rows {
		if i == maxReportedRows {
			fmt.Fprintf(&b, "; and %d more", len(e.Rows)-maxReportedRows)
			break
		}
		b.WriteString("; ")
		b.WriteString(r.Error())
	}
	return b.String()
}

// LoadSegments converts a table into segments. The aadt, hgv_percent,
// survey_year and lane_count columns are always required; site_category and
// design_input_level are required when withKeys is set. Numbers may carry
// thousands separators. Rows with a lane count below 1 or negative AADT,
// HGV share or year are rejected.
func LoadSegments(t *tabular.Table, withKeys bool) ([]Segment, error) {
	required := [][]string{colAADT, colHGVPercent, colSurveyYear, colLaneCount}
	if withKeys {
		required = append(required, colSiteCategory, colDesignLevel)
	}
	cols, err := t.Require(required...)
	if err != nil {
		return nil, err
	}
	linkCol, hasLink := t.Column(colLinkSection...)
	siteCol, hasSite := t.Column(colSiteCategory...)
	levelCol, hasLevel := t.Column(colDesignLevel...)

	verr := &ValidationError{Source: t.Source}
	segs := make([]Segment, 0, len(t.Rows))

	for i, row := range t.Rows {
		rowNum := t.Line(i)
		p := rowParser{row: row, rowNum: rowNum, verr: verr}

		seg := Segment{
			AADT:       p.float(cols[colAADT[0]]),
			HGVPercent: p.float(cols[colHGVPercent[0]]),
			SurveyYear: p.int(cols[colSurveyYear[0]]),
			LaneCount:  p.int(cols[colLaneCount[0]]),
		}
		if hasLink {
			seg.LinkSection = row[linkCol]
		}
		if seg.LinkSection == "" {
			seg.LinkSection = fmt.Sprintf("Row %d", rowNum)
		}
		if hasSite {
			seg.SiteCategory = row[siteCol]
		}
		if hasLevel {
			seg.DesignLevel = row[levelCol]
		}

		p.check(seg.AADT >= 0, cols[colAADT[0]], "must not be negative")
		p.check(seg.HGVPercent >= 0, cols[colHGVPercent[0]], "must not be negative")
		p.check(seg.SurveyYear >= 0, cols[colSurveyYear[0]], "must not be negative")
		p.check(seg.LaneCount >= 1, cols[colLaneCount[0]], "must be at least 1")

		segs = append(segs, seg)
	}

	if len(verr.Rows) > 0 {
		return nil, verr
	}
	if len(segs) == 0 {
		return nil, eris.Errorf("psv: %s has no data rows", t.Source)
	}
	return segs, nil
}

// Validate applies the range checks LoadSegments applies to a table row.
func (s Segment) Validate() error {
	p := rowParser{
		row: tabular.Row{
			"aadt":        strconv.FormatFloat(s.AADT, 'f', -1, 64),
			"hgv_percent": strconv.FormatFloat(s.HGVPercent, 'f', -1, 64),
			"survey_year": strconv.Itoa(s.SurveyYear),
			"lane_count":  strconv.Itoa(s.LaneCount),
		},
		rowNum: 1,
		verr:   &ValidationError{Source: s.LinkSection},
	}
	p.check(s.AADT >= 0, "aadt", "must not be negative")
	p.check(s.HGVPercent >= 0, "hgv_percent", "must not be negative")
	p.check(s.SurveyYear >= 0, "survey_year", "must not be negative")
	p.check(s.LaneCount >= 1, "lane_count", "must be at least 1")
	if len(p.verr.Rows) > 0 {
		return p.verr
	}
	return nil
}

type rowParser struct {
	row    tabular.Row
	rowNum int
	verr   *ValidationError
	failed map[string]bool
}

func (p *rowParser) fail(col, reason string) {
	if p.failed == nil {
		p.failed = make(map[string]bool)
	}
	if p.failed[col] {
		return
	}
	p.failed[col] = true
	p.verr.Rows = append(p.verr.Rows, RowError{Row: p.rowNum, Column: col, Value: p.row[col], Reason: reason})
}

func (p *rowParser) check(ok bool, col, reason string) {
	if !ok {
		p.fail(col, reason)
	}
}

func (p *rowParser) float(col string) float64 {
	v, err := ParseNumber(p.row[col])
	if err != nil {
		p.fail(col, "not a number")
		return 0
	}
	return v
}

func (p *rowParser) int(col string) int {
	v, err := ParseNumber(p.row[col])
	if err != nil {
		p.fail(col, "not a number")
		return 0
	}
	if v != math.Trunc(v) {
		p.fail(col, "not a whole number")
		return 0
	}
	return int(v)
}

// ParseNumber parses a decimal cell, ignoring thousands separators and a
// trailing percent sign.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, eris.New("psv: empty number")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "psv: parse number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("psv: number %q is not finite", s)
	}
	return v, nil
}

// LoadReference builds a reference table from either of two layouts:
//
//   - long: site_category, design_input_level, volume, psv. The volume cell
//     holds a band ("0-5000", "25000+") or a single volume.
//   - wide: site_category, design_input_level, then one column per band
//     whose header is the band and whose cells are the PSV.
//
// Blank cells and cells reading NA or "-" are treated as no requirement.
func LoadReference(t *tabular.Table) (*ReferenceTable, error) {
	cols, err := t.Require(colSiteCategory, colDesignLevel)
	if err != nil {
		return nil, err
	}
	siteCol := cols[colSiteCategory[0]]
	levelCol := cols[colDesignLevel[0]]

	volCol, hasVol := t.Column(colVolume...)
	psvCol, hasPSV := t.Column(colPSV...)

	verr := &ValidationError{Source: t.Source}
	var entries []Entry

	switch {
	case hasVol && hasPSV:
		for i, row := range t.Rows {
			if blankPSV(row[psvCol]) {
				continue
			}
			band, err := ParseBand(row[volCol])
			if err != nil {
				verr.Rows = append(verr.Rows, RowError{Row: t.Line(i), Column: volCol, Value: row[volCol], Reason: "not a traffic band"})
				continue
			}
			entries = append(entries, Entry{
				SiteCategory: row[siteCol],
				Level:        row[levelCol],
				Band:         band,
				PSV:          row[psvCol],
			})
		}

	case hasVol != hasPSV:
		missing := colPSV[0]
		if hasPSV {
			missing = colVolume[0]
		}
		return nil, &tabular.MissingColumnsError{Source: t.Source, Columns: []string{missing}}

	default:
		type bandCol struct {
			header string
			band   Band
		}
		var bandCols []bandCol
		for _, h := range t.Header {
			if h == siteCol || h == levelCol {
				continue
			}
			if b, err := ParseBand(h); err == nil {
				bandCols = append(bandCols, bandCol{header: h, band: b})
			}
		}
		if len(bandCols) == 0 {
			return nil, &tabular.MissingColumnsError{Source: t.Source, Columns: []string{colVolume[0], colPSV[0]}}
		}
		for _, row := range t.Rows {
			for _, bc := range bandCols {
				if blankPSV(row[bc.header]) {
					continue
				}
				entries = append(entries, Entry{
					SiteCategory: row[siteCol],
					Level:        row[levelCol],
					Band:         bc.band,
					PSV:          row[bc.header],
				})
			}
		}
	}

	if len(verr.Rows) > 0 {
		return nil, verr
	}
	if len(entries) == 0 {
		return nil, eris.Errorf("psv: %s has no reference entries", t.Source)
	}
	ref, err := NewReferenceTable(entries)
	if err != nil {
		return nil, eris.Wrapf(err, "psv: load %s", t.Source)
	}
	return ref, nil
}

func blankPSV(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NA", "N/A", "-":
		return true
	}
	return false
}
