package psv

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithReference sets the PSV reference table and how lane volumes are
// matched against it. Without a table every lane PSV is NotApplicable.
func WithReference(t *ReferenceTable, s Strategy) Option {
	return func(c *Calculator) {
		c.ref = t
		c.strategy = s
	}
}

// WithConcurrency bounds how many segments ComputeAll evaluates at once.
func WithConcurrency(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Calculator computes lane traffic and PSV requirements. It holds no
// mutable state and may be shared across goroutines.
type Calculator struct {
	params      Params
	ref         *ReferenceTable
	strategy    Strategy
	concurrency int
}

// NewCalculator creates a Calculator with the given projection constants.
func NewCalculator(p Params, opts ...Option) *Calculator {
	c := &Calculator{params: p, strategy: StrategyBand, concurrency: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params returns the projection constants in use.
func (c *Calculator) Params() Params { return c.params }

// Compute evaluates one segment.
func (c *Calculator) Compute(seg Segment) Result {
	dp := c.params.DesignPeriod(seg.SurveyYear)
	hgv := c.params.AADTHGV(seg.AADT, seg.HGVPercent)
	projected := c.params.Project(hgv, dp)

	res := Result{
		LinkSection:      seg.LinkSection,
		AADTHGV:          roundInt(hgv),
		DesignPeriod:     dp,
		ProjectedAADTHGV: projected,
		Lanes:            SplitLanes(projected, seg.LaneCount),
	}

	if c.ref == nil {
		return res
	}
	for i, vol := range res.Lanes.Volume {
		res.PSV[i] = c.ref.Lookup(c.strategy, seg.SiteCategory, seg.DesignLevel, vol)
	}
	return res
}

// ComputeAll evaluates segments concurrently and returns one Result per
// Segment in input order. It fails only if ctx is cancelled.
func (c *Calculator) ComputeAll(ctx context.Context, segs []Segment) ([]Result, error) {
	results := make([]Result, len(segs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, seg := range segs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Compute(seg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "psv: compute segments")
	}

	zap.L().Debug("psv: computed segments",
		zap.Int("segments", len(segs)),
		zap.Int("concurrency", c.concurrency),
		zap.Bool("reference", c.ref != nil),
		zap.String("strategy", string(c.strategy)),
	)
	return results, nil
}
