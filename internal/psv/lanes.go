package psv

// MaxLanes is the number of lanes a split reports.
const MaxLanes = 4

// LaneSplit is the distribution of projected HGV traffic across lanes.
// Lane 1 is the nearside lane.
type LaneSplit struct {
	Percent [MaxLanes]int `json:"percent"`
	Volume  [MaxLanes]int `json:"volume"`
}

// SplitLanes distributes total daily HGV flow across lanes.
//
// Single lane roads carry everything on lane 1. Two and three lane roads
// split between lanes 1 and 2, each lane's volume rounded independently.
// Roads with four or more lanes split across lanes 1 to 3: lanes 1 and 2
// are rounded and lane 3 takes the residual; lane 4 is always 0. In the
// lower two bands of the four-lane schedule the lane percentages are derived
// from separately rounded terms and need not total 100.
//
// A laneCount below 1 is treated as a single lane.
func SplitLanes(total, laneCount int) LaneSplit {
	var s LaneSplit
	t := float64(total)

	switch {
	case laneCount <= 1:
		s.Percent[0] = 100
		s.Volume[0] = total

	case laneCount <= 3:
		switch {
		case total < 5000:
			s.Percent[0] = roundInt(100 - (0.0036 * t))
		case total < 25000:
			s.Percent[0] = roundInt(89 - (0.0014 * t))
		default:
			s.Percent[0] = 54
		}
		s.Percent[1] = 100 - s.Percent[0]

		s.Volume[0] = roundInt(t * (float64(s.Percent[0]) / 100))
		s.Volume[1] = roundInt(t * (float64(s.Percent[1]) / 100))

	default:
		switch {
		case total <= 10500:
			s.Percent[0] = roundInt(100 - (0.0036 * t))
			s.Percent[1], s.Percent[2] = splitOffside(t, s.Percent[0])
		case total < 25000:
			s.Percent[0] = roundInt(75 - (0.0012 * t))
			s.Percent[1], s.Percent[2] = splitOffside(t, s.Percent[0])
		default:
			s.Percent[0], s.Percent[1], s.Percent[2] = 45, 54, 1
		}

		s.Volume[0] = roundInt(t * (float64(s.Percent[0]) / 100))
		s.Volume[1] = roundInt((t - float64(s.Volume[0])) * (float64(s.Percent[1]) / 100))
		s.Volume[2] = total - (s.Volume[0] + s.Volume[1])
	}

	return s
}

// splitOffside derives the lane 2 and lane 3 percentages from the traffic
// left over after lane 1.
func splitOffside(t float64, lane1 int) (int, int) {
	rem := t - ((t * float64(lane1)) / 100)
	lane2 := roundInt(89 - (0.0014 * rem))
	return lane2, 100 - lane2
}

// Total returns the sum of the lane volumes.
func (s LaneSplit) Total() int {
	var n int
	for _, v := range s.Volume {
		n += v
	}
	return n
}
