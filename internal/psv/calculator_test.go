package psv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleSegment() Segment {
	return Segment{
		LinkSection:  "A1/010",
		AADT:         10000,
		HGVPercent:   15,
		SurveyYear:   2020,
		LaneCount:    2,
		SiteCategory: "A",
		DesignLevel:  "1",
	}
}

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithReference(testReference(t), StrategyBand))

	res := calc.Compute(exampleSegment())

	assert.Equal(t, "A1/010", res.LinkSection)
	assert.Equal(t, 1500, res.AADTHGV)
	assert.Equal(t, 25, res.DesignPeriod)
	assert.Equal(t, 2198, res.ProjectedAADTHGV)
	assert.Equal(t, [MaxLanes]int{92, 8, 0, 0}, res.Lanes.Percent)
	assert.Equal(t, [MaxLanes]int{2022, 176, 0, 0}, res.Lanes.Volume)
	assert.Equal(t, [MaxLanes]Lookup{
		{Status: Found, Value: "55"},
		{Status: Found, Value: "55"},
		{Status: NotApplicable},
		{Status: NotApplicable},
	}, res.PSV)
}

func TestCalculator_Compute_ShortDesignLife(t *testing.T) {
	p := DefaultParams()
	p.DesignLifeYears = 0
	calc := NewCalculator(p)

	res := calc.Compute(exampleSegment())

	assert.Equal(t, 5, res.DesignPeriod)
	assert.Equal(t, 1619, res.ProjectedAADTHGV)
	assert.Equal(t, [MaxLanes]int{94, 6, 0, 0}, res.Lanes.Percent)
	assert.Equal(t, [MaxLanes]int{1522, 97, 0, 0}, res.Lanes.Volume)
}

func TestCalculator_Compute_NoReference(t *testing.T) {
	calc := NewCalculator(DefaultParams())
	res := calc.Compute(exampleSegment())
	for _, l := range res.PSV {
		assert.Equal(t, NotApplicable, l.Status)
		assert.Equal(t, "NA", l.String())
	}
}

func TestCalculator_Compute_UnknownSurveyYear(t *testing.T) {
	calc := NewCalculator(DefaultParams())
	seg := exampleSegment()
	seg.SurveyYear = 0

	res := calc.Compute(seg)
	assert.Equal(t, 0, res.DesignPeriod)
	assert.Equal(t, 1500, res.ProjectedAADTHGV)
}

func TestCalculator_Compute_NoMatch(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithReference(testReference(t), StrategyBand))
	seg := exampleSegment()
	seg.SiteCategory = "Q"

	res := calc.Compute(seg)
	assert.Equal(t, NoMatch, res.PSV[0].Status)
	assert.Equal(t, NoMatch, res.PSV[1].Status)
	assert.Equal(t, NotApplicable, res.PSV[2].Status)
}

func TestCalculator_Compute_ExactStrategy(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithReference(testReference(t), StrategyExact))
	seg := exampleSegment()
	seg.SiteCategory = "B"
	seg.SurveyYear = 2040 // dp 5, lane 1 carries 1522

	res := calc.Compute(seg)
	assert.Equal(t, 1522, res.Lanes.Volume[0])
	assert.Equal(t, NoMatch, res.PSV[0].Status)

	// 8090 * 20% = 1618 with no projection, lane 1 carries 1521.
	seg.SurveyYear = 0
	seg.AADT = 8090
	seg.HGVPercent = 20
	res = calc.Compute(seg)
	assert.Equal(t, 1521, res.Lanes.Volume[0])
	assert.Equal(t, Lookup{Status: Found, Value: "68+"}, res.PSV[0])
	assert.Equal(t, NoMatch, res.PSV[1].Status)
}

func TestCalculator_Compute_Deterministic(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithReference(testReference(t), StrategyBand))
	assert.Equal(t, calc.Compute(exampleSegment()), calc.Compute(exampleSegment()))
}

func TestCalculator_ComputeAll_PreservesOrder(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithReference(testReference(t), StrategyBand), WithConcurrency(8))

	segs := make([]Segment, 200)
	for i := range segs {
		segs[i] = Segment{
			LinkSection:  fmt.Sprintf("S%03d", i),
			AADT:         float64(1000 + i*250),
			HGVPercent:   12,
			SurveyYear:   2018,
			LaneCount:    1 + i%4,
			SiteCategory: "A",
			DesignLevel:  "1",
		}
	}

	results, err := calc.ComputeAll(context.Background(), segs)
	require.NoError(t, err)
	require.Len(t, results, len(segs))
	for i, res := range results {
		assert.Equal(t, segs[i].LinkSection, res.LinkSection)
		assert.Equal(t, calc.Compute(segs[i]), res)
	}
}

func TestCalculator_ComputeAll_Empty(t *testing.T) {
	calc := NewCalculator(DefaultParams())
	results, err := calc.ComputeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCalculator_ComputeAll_Cancelled(t *testing.T) {
	calc := NewCalculator(DefaultParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.ComputeAll(ctx, []Segment{exampleSegment(), exampleSegment()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithConcurrency_IgnoresNonPositive(t *testing.T) {
	calc := NewCalculator(DefaultParams(), WithConcurrency(0))
	assert.Equal(t, 1, calc.concurrency)
	calc = NewCalculator(DefaultParams(), WithConcurrency(6))
	assert.Equal(t, 6, calc.concurrency)
}
