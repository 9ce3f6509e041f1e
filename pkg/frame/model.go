package frame

import "encoding/json"

// Canonical water level tokens. Anything else a frame carries is either a
// bare numeric gauge code (kept verbatim) or becomes Unknown.
const (
	WaterLevelLow     = "Low"
	WaterLevelNominal = "Nominal"
	WaterLevelHigh    = "High"
	WaterLevelUnknown = "Unknown"
)

// Reading is one normalized sensor frame. The device supplies the five
// measurement fields; EntryTimeUTC and the coordinates are stamped by the
// worker at acceptance time.
type Reading struct {
	EntryTimeUTC  string  `json:"entry_time_utc"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	TemperatureC  float64 `json:"temperature_c"`
	HumidityPct   float64 `json:"humidity_pct"`
	Light         int64   `json:"light"`
	Precipitation float64 `json:"precipitation"`
	WaterLevel    string  `json:"water_level"`
}

func (r *Reading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return data
}
