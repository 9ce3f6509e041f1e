package datalog

import (
	"strconv"
	"strings"

	"github.com/gulfcoastlabs/flood_station/pkg/frame"
)

// Schema is the ordered column list agreed at startup. The header row and
// every record follow this order exactly for the life of the file.
type Schema []string

// ParseSchema splits a comma-separated column list and normalizes known
// column name synonyms onto their canonical names.
func ParseSchema(columns string) Schema {
	parts := strings.Split(columns, ",")
	schema := make(Schema, 0, len(parts))
	for _, part := range parts {
		if name := frame.CanonicalColumn(part); name != "" {
			schema = append(schema, name)
		}
	}
	return schema
}

func (s Schema) HeaderRow() string {
	return strings.Join(s, ",")
}

// Record serializes a reading into one row of fields in schema order.
// Columns the reading has no value for are left empty.
func (s Schema) Record(r *frame.Reading) []string {
	fields := make([]string, len(s))
	for i, column := range s {
		fields[i] = fieldValue(column, r)
	}
	return fields
}

func fieldValue(column string, r *frame.Reading) string {
	switch column {
	case "EntryTimeUTC":
		return r.EntryTimeUTC
	case "Latitude":
		return formatFloat(r.Latitude)
	case "Longitude":
		return formatFloat(r.Longitude)
	case "Temperature":
		return formatFloat(r.TemperatureC)
	case "Humidity":
		return formatFloat(r.HumidityPct)
	case "Light":
		return strconv.FormatInt(r.Light, 10)
	case "Precipitation":
		return formatFloat(r.Precipitation)
	case "WaterLevel":
		return r.WaterLevel
	default:
		return ""
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
