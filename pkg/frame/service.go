// Package frame turns raw sensor lines into normalized readings.
// A frame looks like `DATA,<tempC>,<humidityPct>,<light>,<precip>,<levelToken>`
// with an optional trailing `*XXXX` CRC-16 checksum.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
)

var waterLevelTokens = map[string]string{
	"low":     WaterLevelLow,
	"nominal": WaterLevelNominal,
	"high":    WaterLevelHigh,
}

// Known synonyms for the precipitation column seen across firmware revisions
// and older dashboard exports. Consulted when interpreting CSV_SCHEMA.
var precipitationAliases = map[string]string{
	"rain":          "Precipitation",
	"rainfall":      "Precipitation",
	"rainin":        "Precipitation",
	"rain_in":       "Precipitation",
	"precip":        "Precipitation",
	"precipin":      "Precipitation",
	"precip_in":     "Precipitation",
	"precipitation": "Precipitation",
}

// Use CRC16_ARC which matches the station firmware's checksum routine
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// CanonicalColumn maps schema column synonyms onto the canonical column name.
func CanonicalColumn(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := precipitationAliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// ParseLine parses one raw line into a Reading. Returns nil when the line is
// malformed and must be discarded; discards are never fatal to the caller.
//
// Temperature, humidity and light are structurally required. A blank or
// unparseable precipitation field falls back to 0.0 rather than discarding
// the line.
func ParseLine(line string, prefix string) *Reading {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	line, ok := stripChecksum(line)
	if !ok {
		return nil
	}

	if prefix != "" {
		line = strings.TrimPrefix(line, prefix)
	}

	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return nil
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return nil
	}
	humidity, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return nil
	}
	light, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return nil
	}

	precipitation := 0.0
	if v, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err == nil {
		precipitation = v
	}

	return &Reading{
		TemperatureC:  temperature,
		HumidityPct:   humidity,
		Light:         light,
		Precipitation: precipitation,
		WaterLevel:    ParseWaterLevel(fields[4]),
	}
}

// ParseWaterLevel normalizes a water level token. The fixed tokens match
// case-insensitively, bare numeric gauge codes are preserved verbatim, and
// anything else becomes Unknown.
func ParseWaterLevel(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return WaterLevelUnknown
	}
	if canonical, ok := waterLevelTokens[strings.ToLower(token)]; ok {
		return canonical
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return token
	}
	return WaterLevelUnknown
}

// stripChecksum validates and removes a trailing `*XXXX` checksum. Lines
// without one pass through untouched; a checksum that does not match the
// payload rejects the line.
func stripChecksum(line string) (string, bool) {
	idx := strings.LastIndex(line, "*")
	if idx < 0 || len(line)-idx != 5 {
		return line, true
	}
	given := line[idx+1:]
	if _, err := strconv.ParseUint(given, 16, 16); err != nil {
		return line, true
	}

	payload := line[:idx]
	calculated := fmt.Sprintf("%04X", crc16.Checksum([]byte(payload), crcTable))
	if !strings.EqualFold(given, calculated) {
		return "", false
	}
	return payload, true
}
