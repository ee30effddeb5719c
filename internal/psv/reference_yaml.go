package psv

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// yamlRow is one site category and design input level with its required
// PSV per traffic band, e.g.
//
//	reference:
//	  - site_category: A
//	    level: 1
//	    bands:
//	      "0-5000": 55
//	      "5001-10000": 60
type yamlRow struct {
	SiteCategory string            `yaml:"site_category"`
	Level        string            `yaml:"level"`
	Bands        map[string]string `yaml:"bands"`
}

// LoadReferenceYAML reads a reference table from a YAML file.
func LoadReferenceYAML(path string) (*ReferenceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "psv: read reference %s", path)
	}
	return ParseReferenceYAML(data)
}

// ParseReferenceYAML decodes a reference table. The document has a
// top-level "reference" key holding a list of rows.
func ParseReferenceYAML(data []byte) (*ReferenceTable, error) {
	var wrapper struct {
		Reference []yamlRow `yaml:"reference"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "psv: parse reference yaml")
	}

	var entries []Entry
	for i, row := range wrapper.Reference {
		if row.SiteCategory == "" || row.Level == "" {
			return nil, eris.Errorf("psv: reference row %d needs site_category and level", i+1)
		}
		labels := make([]string, 0, len(row.Bands))
		for label := range row.Bands {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			value := row.Bands[label]
			if blankPSV(value) {
				continue
			}
			band, err := ParseBand(label)
			if err != nil {
				return nil, eris.Wrapf(err, "psv: reference row %d", i+1)
			}
			entries = append(entries, Entry{
				SiteCategory: row.SiteCategory,
				Level:        row.Level,
				Band:         band,
				PSV:          value,
			})
		}
	}
	if len(entries) == 0 {
		return nil, eris.New("psv: reference yaml has no entries")
	}
	return NewReferenceTable(entries)
}
