// Package psv projects heavy goods vehicle traffic for a road segment, splits
// it across lanes and looks up the required Polished Stone Value per lane.
package psv

import "math"

// Params holds the projection constants.
type Params struct {
	CurrentYear     int
	DesignLifeYears int
	GrowthRate      float64 // per year, 0.0154 = 1.54%
	HGVFloorPercent float64 // minimum HGV share applied to AADT
}

// DefaultParams returns the constants in use for the 2025 design year.
func DefaultParams() Params {
	return Params{
		CurrentYear:     2025,
		DesignLifeYears: 20,
		GrowthRate:      0.0154,
		HGVFloorPercent: 11,
	}
}

// DesignPeriod returns the years between the survey and the end of the
// design life. A survey year of 0 means unknown and yields 0. Negative
// periods (surveys dated past the design horizon) are returned unchanged.
func (p Params) DesignPeriod(surveyYear int) int {
	if surveyYear == 0 {
		return 0
	}
	return (p.CurrentYear + p.DesignLifeYears) - surveyYear
}

// AADTHGV returns the unrounded daily HGV flow. HGV shares below the floor
// are raised to the floor.
func (p Params) AADTHGV(aadt, hgvPercent float64) float64 {
	if hgvPercent >= p.HGVFloorPercent {
		return hgvPercent * (aadt / 100)
	}
	return (p.HGVFloorPercent * aadt) / 100
}

// Project compounds aadtHGV by the growth rate over designPeriod years and
// rounds the result.
func (p Params) Project(aadtHGV float64, designPeriod int) int {
	return roundInt(aadtHGV * math.Pow(1+p.GrowthRate, float64(designPeriod)))
}

// roundInt rounds half to even.
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
