package psv

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Strategy selects how a lane volume is matched against reference entries.
type Strategy string

const (
	// StrategyExact matches only entries whose band is the single volume.
	StrategyExact Strategy = "exact"
	// StrategyBand matches the entry whose band contains the volume.
	StrategyBand Strategy = "band"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyExact:
		return StrategyExact, nil
	case StrategyBand, "":
		return StrategyBand, nil
	default:
		return "", eris.Errorf("psv: unknown lookup strategy %q (want exact or band)", s)
	}
}

// Band is an inclusive range of daily lane volumes.
type Band struct {
	Lo int `json:"lo" yaml:"lo"`
	Hi int `json:"hi" yaml:"hi"`
}

// ParseBand parses "lo-hi", a single volume "n", or an open top band "n+".
func ParseBand(s string) (Band, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Band{}, eris.New("psv: empty band")
	}

	if strings.HasSuffix(s, "+") {
		lo, err := parseVolume(strings.TrimSuffix(s, "+"))
		if err != nil {
			return Band{}, eris.Wrapf(err, "psv: parse band %q", s)
		}
		return Band{Lo: lo, Hi: math.MaxInt}, nil
	}

	// A leading '-' would be a sign, not a separator.
	if i := strings.Index(s[1:], "-"); i >= 0 {
		lo, err := parseVolume(s[:i+1])
		if err != nil {
			return Band{}, eris.Wrapf(err, "psv: parse band %q", s)
		}
		hi, err := parseVolume(s[i+2:])
		if err != nil {
			return Band{}, eris.Wrapf(err, "psv: parse band %q", s)
		}
		if hi < lo {
			return Band{}, eris.Errorf("psv: band %q has upper bound below lower bound", s)
		}
		return Band{Lo: lo, Hi: hi}, nil
	}

	v, err := parseVolume(s)
	if err != nil {
		return Band{}, eris.Wrapf(err, "psv: parse band %q", s)
	}
	return Band{Lo: v, Hi: v}, nil
}

func parseVolume(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, eris.Errorf("volume %q is not a whole number", s)
	}
	return int(f), nil
}

// Contains reports whether v lies within the band.
func (b Band) Contains(v int) bool { return v >= b.Lo && v <= b.Hi }

// Point reports whether the band is a single volume.
func (b Band) Point() bool { return b.Lo == b.Hi }

func (b Band) String() string {
	switch {
	case b.Point():
		return strconv.Itoa(b.Lo)
	case b.Hi == math.MaxInt:
		return strconv.Itoa(b.Lo) + "+"
	default:
		return fmt.Sprintf("%d-%d", b.Lo, b.Hi)
	}
}

// overlaps reports whether the bands share more than a single endpoint.
// Adjacent bands written as "0-5000" and "5000-10000" do not overlap.
func (b Band) overlaps(o Band) bool {
	if b == o {
		return true
	}
	return b.Lo < o.Hi && o.Lo < b.Hi
}

// Entry is one required PSV for a site category, design input level and
// traffic band.
type Entry struct {
	SiteCategory string `json:"site_category" yaml:"site_category"`
	Level        string `json:"level" yaml:"level"`
	Band         Band   `json:"band" yaml:"band"`
	PSV          string `json:"psv" yaml:"psv"`
}

type refKey struct {
	site  string
	level string
}

// ReferenceTable is an immutable index of PSV entries. It is safe for
// concurrent lookups.
type ReferenceTable struct {
	entries []Entry
	bands   map[refKey][]indexedEntry // sorted by Band.Lo
}

type indexedEntry struct {
	Entry
	seq int // position in load order
}

// NewReferenceTable indexes entries. Keys are normalized with NormalizeKey.
// Two entries for the same site category and level whose bands overlap are
// rejected; bands may share an endpoint, in which case the entry loaded
// first wins for that volume.
func NewReferenceTable(entries []Entry) (*ReferenceTable, error) {
	t := &ReferenceTable{bands: make(map[refKey][]indexedEntry)}

	for i, e := range entries {
		e.SiteCategory = NormalizeKey(e.SiteCategory)
		e.Level = NormalizeKey(e.Level)
		e.PSV = strings.TrimSpace(e.PSV)
		k := refKey{site: e.SiteCategory, level: e.Level}

		for _, prev := range t.bands[k] {
			if prev.Band.overlaps(e.Band) {
				return nil, eris.Errorf("psv: reference entries for site category %q level %q overlap: %s and %s",
					e.SiteCategory, e.Level, prev.Band, e.Band)
			}
		}
		t.bands[k] = append(t.bands[k], indexedEntry{Entry: e, seq: i})
		t.entries = append(t.entries, e)
	}

	for k := range t.bands {
		sort.SliceStable(t.bands[k], func(i, j int) bool { return t.bands[k][i].Band.Lo < t.bands[k][j].Band.Lo })
	}
	return t, nil
}

// Len returns the number of entries.
func (t *ReferenceTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in load order.
func (t *ReferenceTable) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup finds the required PSV for a lane. Volumes of 0 or less are
// NotApplicable and never consult the table. A miss is NoMatch, not an error.
func (t *ReferenceTable) Lookup(strategy Strategy, siteCategory, level string, volume int) Lookup {
	if volume <= 0 {
		return Lookup{Status: NotApplicable}
	}
	if t == nil {
		return Lookup{Status: NoMatch}
	}

	k := refKey{site: NormalizeKey(siteCategory), level: NormalizeKey(level)}
	var match *indexedEntry
	for i, e := range t.bands[k] {
		if e.Band.Lo > volume {
			break
		}
		if strategy == StrategyExact && !e.Band.Point() {
			continue
		}
		if e.Band.Contains(volume) && (match == nil || e.seq < match.seq) {
			match = &t.bands[k][i]
		}
	}
	if match == nil {
		return Lookup{Status: NoMatch}
	}
	return Lookup{Status: Found, Value: match.PSV}
}

// NormalizeKey canonicalizes a lookup key: surrounding space is dropped,
// letters are upper-cased and numeric keys lose insignificant digits, so
// "1", "1.0" and " 1 " are the same design input level.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.ToUpper(s)
}

// Status classifies a PSV lookup outcome.
type Status int

const (
	// NotApplicable means the lane carries no traffic, so no lookup ran.
	NotApplicable Status = iota
	// NoMatch means the table has no entry for the key.
	NoMatch
	// Found means Value holds the required PSV.
	Found
)

const (
	notApplicableText = "NA"
	noMatchText       = "NO MATCH"
)

// Lookup is the PSV requirement for one lane.
type Lookup struct {
	Status Status
	Value  string
}

// String renders the lookup as it appears in result tables.
func (l Lookup) String() string {
	switch l.Status {
	case Found:
		return l.Value
	case NoMatch:
		return noMatchText
	default:
		return notApplicableText
	}
}

// ParseLookup reverses Lookup.String.
func ParseLookup(s string) Lookup {
	switch strings.TrimSpace(s) {
	case "", notApplicableText:
		return Lookup{Status: NotApplicable}
	case noMatchText:
		return Lookup{Status: NoMatch}
	default:
		return Lookup{Status: Found, Value: strings.TrimSpace(s)}
	}
}

// MarshalText implements encoding.TextMarshaler so lookups serialize as
// their table form in JSON.
func (l Lookup) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lookup) UnmarshalText(b []byte) error {
	*l = ParseLookup(string(b))
	return nil
}
