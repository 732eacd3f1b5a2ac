package models

// LowIncomeThreshold is the yearly income at or under which a trip is
// counted as a low-income trip in the statistics.
const LowIncomeThreshold = 50000.0

// Preferences are the rider preferences that influence trip shaping and
// the recorded change-set.
type Preferences struct {
	ADA     bool    `json:"ada"`
	Student bool    `json:"student"`
	Senior  bool    `json:"senior"`
	Income  float64 `json:"income"`
}

// Change-set keys recorded on a planned trip.
const (
	ChangeTransitDesert = "transit_desert"
	ChangeADA           = "ada"
	ChangeADADesert     = "ada_desert"
	ChangeStudent       = "student"
	ChangeSenior        = "senior"
	ChangeLowIncome     = "low_income"
)

// Changes is the set of modifiers applied while planning a trip. A key is
// present with value true when the corresponding adjustment happened.
type Changes map[string]bool

// Set marks a change as applied.
func (c Changes) Set(key string) {
	c[key] = true
}

// Has reports whether a change was applied.
func (c Changes) Has(key string) bool {
	return c[key]
}
