// Package tracs finds failing lengths in TRACS road condition surveys.
package tracs

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/tabular"
)

var (
	colLinkSection   = []string{"link_section", "link", "section"}
	colLane          = []string{"lane", "xsp"}
	colChainageStart = []string{"chainage_start", "start_chainage", "from"}
	colChainageEnd   = []string{"chainage_end", "end_chainage", "to"}
	colRutting       = []string{"rutting", "rut_depth", "rut"}
	colTexture       = []string{"texture", "sensor_measured_texture_depth", "smtd"}
)

// Section is one surveyed length of a lane.
type Section struct {
	LinkSection   string  `json:"link_section"`
	Lane          string  `json:"lane"`
	ChainageStart float64 `json:"chainage_start"`
	ChainageEnd   float64 `json:"chainage_end"`
	Rutting       float64 `json:"rutting"` // mm
	Texture       float64 `json:"texture"` // mm
}

// Criteria are the failure thresholds. A section fails when its rutting is
// strictly above MaxRutting and its texture strictly below MinTexture.
type Criteria struct {
	MaxRutting float64 `json:"max_rutting"`
	MinTexture float64 `json:"min_texture"`
}

// DefaultCriteria returns 10 mm rutting and 0.8 mm texture.
func DefaultCriteria() Criteria {
	return Criteria{MaxRutting: 10, MinTexture: 0.8}
}

// Fails reports whether s meets both failure conditions.
func (c Criteria) Fails(s Section) bool {
	return s.Rutting > c.MaxRutting && s.Texture < c.MinTexture
}

// Load converts a survey table into sections. Every column is required.
// Numeric cells that cannot be parsed are reported together as a
// *psv.ValidationError.
func Load(t *tabular.Table) ([]Section, error) {
	cols, err := t.Require(colLinkSection, colLane, colChainageStart, colChainageEnd, colRutting, colTexture)
	if err != nil {
		return nil, err
	}

	verr := &psv.ValidationError{Source: t.Source}
	num := func(i int, row tabular.Row, canonical string) float64 {
		col := cols[canonical]
		v, err := psv.ParseNumber(row[col])
		if err != nil {
			verr.Rows = append(verr.Rows, psv.RowError{Row: t.Line(i), Column: col, Value: row[col], Reason: "not a number"})
			return 0
		}
		return v
	}

	sections := make([]Section, 0, len(t.Rows))
	for i, row := range t.Rows {
		sections = append(sections, Section{
			LinkSection:   row[cols[colLinkSection[0]]],
			Lane:          row[cols[colLane[0]]],
			ChainageStart: num(i, row, colChainageStart[0]),
			ChainageEnd:   num(i, row, colChainageEnd[0]),
			Rutting:       num(i, row, colRutting[0]),
			Texture:       num(i, row, colTexture[0]),
		})
	}
	if len(verr.Rows) > 0 {
		return nil, verr
	}
	return sections, nil
}

// FindFailing returns the sections of link that fail c, in survey order.
// Link sections match ignoring case and surrounding space. An empty link
// searches every section.
func FindFailing(sections []Section, link string, c Criteria) []Section {
	link = strings.TrimSpace(link)
	var out []Section
	for _, s := range sections {
		if link != "" && !strings.EqualFold(strings.TrimSpace(s.LinkSection), link) {
			continue
		}
		if c.Fails(s) {
			out = append(out, s)
		}
	}
	zap.L().Debug("tracs: filtered sections",
		zap.String("link_section", link),
		zap.Int("surveyed", len(sections)),
		zap.Int("failing", len(out)),
	)
	return out
}

// Columns is the header of the failing sections table.
var Columns = []string{"link_section", "lane", "chainage_start", "chainage_end", "rutting", "texture"}

// Record renders a section as a row under Columns.
func (s Section) Record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{s.LinkSection, s.Lane, f(s.ChainageStart), f(s.ChainageEnd), f(s.Rutting), f(s.Texture)}
}

// WriteCSV writes sections as CSV with a Columns header.
func WriteCSV(w io.Writer, sections []Section) error {
	rows := make([][]string, len(sections))
	for i, s := range sections {
		rows[i] = s.Record()
	}
	return eris.Wrap(tabular.WriteCSV(w, Columns, rows), "tracs: write sections")
}
