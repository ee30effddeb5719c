package psv

// Segment is the traffic input for one road segment or lane group.
type Segment struct {
	LinkSection  string  `json:"link_section"`
	AADT         float64 `json:"aadt"`
	HGVPercent   float64 `json:"hgv_percent"`
	SurveyYear   int     `json:"survey_year"` // 0 = unknown, no projection
	LaneCount    int     `json:"lane_count"`
	SiteCategory string  `json:"site_category"`
	DesignLevel  string  `json:"design_input_level"`
}

// Result is the computed lane traffic and PSV requirement for a Segment.
type Result struct {
	LinkSection      string           `json:"link_section"`
	AADTHGV          int              `json:"aadt_hgvs"`
	DesignPeriod     int              `json:"design_period"`
	ProjectedAADTHGV int              `json:"total_projected_aadt_hgvs"`
	Lanes            LaneSplit        `json:"lanes"`
	PSV              [MaxLanes]Lookup `json:"psv"`
}
