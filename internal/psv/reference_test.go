package psv

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReference(t *testing.T) *ReferenceTable {
	t.Helper()
	ref, err := NewReferenceTable([]Entry{
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 0, Hi: 5000}, PSV: "55"},
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 5001, Hi: 10000}, PSV: "60"},
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 10001, Hi: math.MaxInt}, PSV: "65"},
		{SiteCategory: "A", Level: "2", Band: Band{Lo: 0, Hi: 5000}, PSV: "50"},
		{SiteCategory: "B", Level: "1", Band: Band{Lo: 1521, Hi: 1521}, PSV: "68+"},
	})
	require.NoError(t, err)
	return ref
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("exact")
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, s)

	s, err = ParseStrategy(" BAND ")
	require.NoError(t, err)
	assert.Equal(t, StrategyBand, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyBand, s)

	_, err = ParseStrategy("nearest")
	assert.Error(t, err)
}

func TestParseBand(t *testing.T) {
	tests := []struct {
		in      string
		want    Band
		wantErr bool
	}{
		{in: "0-5000", want: Band{Lo: 0, Hi: 5000}},
		{in: " 5001 - 10000 ", want: Band{Lo: 5001, Hi: 10000}},
		{in: "1,000-2,000", want: Band{Lo: 1000, Hi: 2000}},
		{in: "1521", want: Band{Lo: 1521, Hi: 1521}},
		{in: "25000+", want: Band{Lo: 25000, Hi: math.MaxInt}},
		{in: "", wantErr: true},
		{in: "SiteCategory", wantErr: true},
		{in: "10-5", wantErr: true},
		{in: "1.5-3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBand_String(t *testing.T) {
	assert.Equal(t, "0-5000", Band{Lo: 0, Hi: 5000}.String())
	assert.Equal(t, "1521", Band{Lo: 1521, Hi: 1521}.String())
	assert.Equal(t, "25000+", Band{Lo: 25000, Hi: math.MaxInt}.String())
}

func TestNewReferenceTable_RejectsOverlap(t *testing.T) {
	_, err := NewReferenceTable([]Entry{
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 0, Hi: 5000}, PSV: "55"},
		{SiteCategory: "a", Level: "1.0", Band: Band{Lo: 4999, Hi: 6000}, PSV: "60"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")

	_, err = NewReferenceTable([]Entry{
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 5000, Hi: 5000}, PSV: "55"},
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 5000, Hi: 5000}, PSV: "60"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")

	// Same bands under different keys are fine.
	_, err = NewReferenceTable([]Entry{
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 0, Hi: 5000}, PSV: "55"},
		{SiteCategory: "A", Level: "2", Band: Band{Lo: 0, Hi: 5000}, PSV: "60"},
	})
	assert.NoError(t, err)
}

func TestLookup_Band(t *testing.T) {
	ref := testReference(t)

	tests := []struct {
		name   string
		site   string
		level  string
		volume int
		want   Lookup
	}{
		{"lower edge", "A", "1", 1, Lookup{Status: Found, Value: "55"}},
		{"band upper edge inclusive", "A", "1", 5000, Lookup{Status: Found, Value: "55"}},
		{"next band", "A", "1", 5001, Lookup{Status: Found, Value: "60"}},
		{"open top band", "A", "1", 250000, Lookup{Status: Found, Value: "65"}},
		{"normalized keys", " a ", "1.0", 2000, Lookup{Status: Found, Value: "55"}},
		{"other level", "A", "2", 2000, Lookup{Status: Found, Value: "50"}},
		{"beyond last band", "A", "2", 6000, Lookup{Status: NoMatch}},
		{"unknown site", "Z", "1", 2000, Lookup{Status: NoMatch}},
		{"point band matches", "B", "1", 1521, Lookup{Status: Found, Value: "68+"}},
		{"zero volume skips lookup", "A", "1", 0, Lookup{Status: NotApplicable}},
		{"negative volume skips lookup", "A", "1", -4, Lookup{Status: NotApplicable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ref.Lookup(StrategyBand, tt.site, tt.level, tt.volume))
		})
	}
}

func TestLookup_Exact(t *testing.T) {
	ref := testReference(t)

	assert.Equal(t, Lookup{Status: Found, Value: "68+"}, ref.Lookup(StrategyExact, "B", "1", 1521))
	assert.Equal(t, Lookup{Status: NoMatch}, ref.Lookup(StrategyExact, "B", "1", 1522))
	// Range entries never satisfy a point lookup.
	assert.Equal(t, Lookup{Status: NoMatch}, ref.Lookup(StrategyExact, "A", "1", 2000))
	assert.Equal(t, Lookup{Status: NotApplicable}, ref.Lookup(StrategyExact, "B", "1", 0))
}

func TestLookup_Idempotent(t *testing.T) {
	ref := testReference(t)
	for _, s := range []Strategy{StrategyBand, StrategyExact} {
		first := ref.Lookup(s, "A", "1", 4200)
		second := ref.Lookup(s, "A", "1", 4200)
		assert.Equal(t, first, second)
	}
}

func TestLookup_ConcurrentReads(t *testing.T) {
	ref := testReference(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := 1; v < 12000; v += 97 {
				got := ref.Lookup(StrategyBand, "A", "1", v+i)
				assert.Equal(t, Found, got.Status)
			}
		}()
	}
	wg.Wait()
}

func TestLookup_NilTable(t *testing.T) {
	var ref *ReferenceTable
	assert.Equal(t, Lookup{Status: NoMatch}, ref.Lookup(StrategyBand, "A", "1", 100))
	assert.Equal(t, Lookup{Status: NotApplicable}, ref.Lookup(StrategyBand, "A", "1", 0))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "1", NormalizeKey("1"))
	assert.Equal(t, "1", NormalizeKey(" 1.0 "))
	assert.Equal(t, "1.5", NormalizeKey("1.50"))
	assert.Equal(t, "G1", NormalizeKey("g1"))
	assert.Equal(t, "", NormalizeKey("  "))
}

func TestLookup_StringRoundTrip(t *testing.T) {
	for _, l := range []Lookup{
		{Status: Found, Value: "60"},
		{Status: NoMatch},
		{Status: NotApplicable},
	} {
		assert.Equal(t, l, ParseLookup(l.String()))
	}
	assert.Equal(t, "NA", Lookup{}.String())
	assert.Equal(t, "NO MATCH", Lookup{Status: NoMatch}.String())
}

func TestLookup_JSON(t *testing.T) {
	data, err := json.Marshal([]Lookup{{Status: Found, Value: "55"}, {Status: NoMatch}, {}})
	require.NoError(t, err)
	assert.JSONEq(t, `["55","NO MATCH","NA"]`, string(data))

	var back []Lookup
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Lookup{Status: Found, Value: "55"}, back[0])
	assert.Equal(t, NoMatch, back[1].Status)
}

func TestReferenceTable_Entries(t *testing.T) {
	ref := testReference(t)
	assert.Equal(t, 5, ref.Len())
	entries := ref.Entries()
	entries[0].PSV = "changed"
	assert.Equal(t, "55", ref.Entries()[0].PSV)
}

func TestLookup_SharedEndpointFirstLoadedWins(t *testing.T) {
	ref, err := NewReferenceTable([]Entry{
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 0, Hi: 5000}, PSV: "55"},
		{SiteCategory: "A", Level: "1", Band: Band{Lo: 5000, Hi: 10000}, PSV: "60"},
		{SiteCategory: "B", Level: "1", Band: Band{Lo: 5000, Hi: 10000}, PSV: "65"},
		{SiteCategory: "B", Level: "1", Band: Band{Lo: 0, Hi: 5000}, PSV: "60"},
	})
	require.NoError(t, err)

	assert.Equal(t, "55", ref.Lookup(StrategyBand, "A", "1", 5000).String())
	assert.Equal(t, "60", ref.Lookup(StrategyBand, "A", "1", 5001).String())
	assert.Equal(t, "65", ref.Lookup(StrategyBand, "B", "1", 5000).String())
	assert.Equal(t, "60", ref.Lookup(StrategyBand, "B", "1", 4999).String())
}
