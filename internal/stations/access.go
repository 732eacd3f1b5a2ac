package stations

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/ibi-group/sAVe/internal/models"
)

// equipmentList mirrors the accessibility-equipment XML export. One station
// appears once per elevator, ramp, or escalator it has.
type equipmentList struct {
	XMLName   xml.Name    `xml:"NYCEquipments"`
	Equipment []equipment `xml:"equipment"`
}

type equipment struct {
	Station string `xml:"station"`
	ADA     string `xml:"ADA"`
}

// LoadAccessibility reads the equipment file and reduces it to a per-station
// accessibility flag. The reduction is a monotonic OR: a station counts as
// accessible as soon as any of its equipment records is marked "Y", and a
// later "N" record never clears it. This deliberately does not distinguish
// elevator from ramp from partial accessibility.
func LoadAccessibility(path string) (models.AccessibilityFlags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening accessibility file: %w", err)
	}

	var list equipmentList
	if err := xml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing accessibility file %s: %w", path, err)
	}

	flags := make(models.AccessibilityFlags, len(list.Equipment))
	for _, eq := range list.Equipment {
		if !flags[eq.Station] {
			flags[eq.Station] = eq.ADA == "Y"
		}
	}
	return flags, nil
}
