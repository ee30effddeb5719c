package psv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDesignPeriod(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	tests := []struct {
		name       string
		surveyYear int
		want       int
	}{
		{name: "unknown year", surveyYear: 0, want: 0},
		{name: "recent survey", surveyYear: 2020, want: 25},
		{name: "survey in design year", surveyYear: 2025, want: 20},
		{name: "survey at horizon", surveyYear: 2045, want: 0},
		{name: "survey past horizon stays negative", surveyYear: 2050, want: -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.DesignPeriod(tt.surveyYear))
		})
	}
}

func TestDesignPeriod_ZeroIgnoresParams(t *testing.T) {
	t.Parallel()
	for _, p := range []Params{
		DefaultParams(),
		{CurrentYear: 1990, DesignLifeYears: 40},
		{CurrentYear: 3000, DesignLifeYears: 0},
	} {
		assert.Equal(t, 0, p.DesignPeriod(0))
	}
}

func TestDesignPeriod_Configurable(t *testing.T) {
	t.Parallel()
	p := Params{CurrentYear: 2030, DesignLifeYears: 10}
	assert.Equal(t, 20, p.DesignPeriod(2020))
}

func TestAADTHGV(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	tests := []struct {
		name       string
		aadt       float64
		hgvPercent float64
		want       int
	}{
		{name: "above floor", aadt: 10000, hgvPercent: 15, want: 1500},
		{name: "at floor", aadt: 10000, hgvPercent: 11, want: 1100},
		{name: "below floor uses floor", aadt: 10000, hgvPercent: 5, want: 1100},
		{name: "zero share uses floor", aadt: 10000, hgvPercent: 0, want: 1100},
		{name: "fractional share", aadt: 12345, hgvPercent: 12.5, want: 1543},
		{name: "floor then round", aadt: 25, hgvPercent: 10, want: 3},
		{name: "half rounds to even", aadt: 12.5, hgvPercent: 20, want: 2},
		{name: "zero traffic", aadt: 0, hgvPercent: 20, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundInt(p.AADTHGV(tt.aadt, tt.hgvPercent)))
		})
	}
}

func TestAADTHGV_FloorIgnoresActualShare(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	for _, pct := range []float64{0, 0.5, 3, 7.25, 10.99} {
		assert.Equal(t, p.AADTHGV(40000, 0), p.AADTHGV(40000, pct), "share %v", pct)
	}
}

func TestAADTHGV_ConfigurableFloor(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.HGVFloorPercent = 8
	assert.InDelta(t, 900.0, p.AADTHGV(10000, 9), 1e-9)
	assert.InDelta(t, 800.0, p.AADTHGV(10000, 5), 1e-9)
}

func TestProject(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	assert.Equal(t, 1500, p.Project(1500, 0))
	assert.Equal(t, 1619, p.Project(1500, 5))
	assert.Equal(t, 2198, p.Project(1500, 25))
	assert.Equal(t, 27150, p.Project(20000, 20))

	p.GrowthRate = 0
	assert.Equal(t, 1500, p.Project(1500, 25))
}

func TestRoundInt_HalfToEven(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, roundInt(0.5))
	assert.Equal(t, 2, roundInt(1.5))
	assert.Equal(t, 2, roundInt(2.5))
	assert.Equal(t, 86, roundInt(85.6))
	assert.Equal(t, -2, roundInt(-2.5))
}
