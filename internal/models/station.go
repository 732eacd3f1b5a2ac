package models

// Station is one row of the static station reference table. Stations are
// loaded once at startup and never mutated afterwards; per-query distances
// live on stations.Ranked, not here.
type Station struct {
	StopID string   `json:"stop_id"`
	Name   string   `json:"name"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Lines  []string `json:"lines,omitempty"`
}

// AccessibilityFlags maps a station name to whether any of its equipment
// records marks it accessible.
type AccessibilityFlags map[string]bool

// Accessible reports whether the named station resolved to accessible.
// Unknown stations are not accessible.
func (f AccessibilityFlags) Accessible(name string) bool {
	return f[name]
}
