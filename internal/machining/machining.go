// Package machining holds the domain inputs the governance pipeline scores:
// part designs, execution contexts, and the operations combining them.
// Units: millimetres, minutes, newtons, kilowatts unless noted.
package machining

// Design captures the part/stock intent as submitted. It is persisted
// verbatim into the SPEC artifact payload.
type Design struct {
	MaterialID     string  `json:"material_id" yaml:"material_id"`
	StockLength    float64 `json:"stock_length_mm" yaml:"stock_length_mm"`
	StockWidth     float64 `json:"stock_width_mm" yaml:"stock_width_mm"`
	StockThickness float64 `json:"stock_thickness_mm" yaml:"stock_thickness_mm"`
	// TargetVolume is the material to remove, mm^3. Zero means "derive from
	// stock dimensions".
	TargetVolume float64 `json:"target_volume_mm3,omitempty" yaml:"target_volume_mm3,omitempty"`
}

// Context is the execution context for one operation: which tool on which
// machine, at which parameters. Persisted into artifact payloads and
// duplicated (ids only) into index_meta.
type Context struct {
	ToolID    string `json:"tool_id" yaml:"tool_id"`
	MachineID string `json:"machine_id" yaml:"machine_id"`
	SessionID string `json:"session_id" yaml:"session_id"`

	ToolDiameter float64 `json:"tool_diameter_mm" yaml:"tool_diameter_mm"`
	FluteCount   int     `json:"flute_count" yaml:"flute_count"`
	Stickout     float64 `json:"stickout_mm" yaml:"stickout_mm"`

	SpindleRPM float64 `json:"spindle_rpm" yaml:"spindle_rpm"`
	FeedRate   float64 `json:"feed_rate_mm_min" yaml:"feed_rate_mm_min"`
	DepthOfCut float64 `json:"depth_of_cut_mm" yaml:"depth_of_cut_mm"`
	WidthOfCut float64 `json:"width_of_cut_mm" yaml:"width_of_cut_mm"`

	MachinePowerKW float64 `json:"machine_power_kw" yaml:"machine_power_kw"`
	ClampForceN    float64 `json:"clamp_force_n" yaml:"clamp_force_n"`
}

// Operation is one machining step: a design/context pair plus an op type.
type Operation struct {
	ID      string  `json:"op_id" yaml:"op_id"`
	Type    string  `json:"type" yaml:"type"` // facing, pocket, drill, contour
	Design  Design  `json:"design" yaml:"design"`
	Context Context `json:"context" yaml:"context"`
}

// MRR returns the material removal rate in mm^3/min for the context.
func (c Context) MRR() float64 {
	return c.FeedRate * c.DepthOfCut * c.WidthOfCut
}

// ChipLoad returns feed per tooth in mm.
func (c Context) ChipLoad() float64 {
	if c.SpindleRPM <= 0 || c.FluteCount <= 0 {
		return 0
	}
	return c.FeedRate / (c.SpindleRPM * float64(c.FluteCount))
}

// SurfaceSpeed returns the cutting speed in m/min.
func (c Context) SurfaceSpeed() float64 {
	const pi = 3.141592653589793
	return pi * c.ToolDiameter * c.SpindleRPM / 1000
}
