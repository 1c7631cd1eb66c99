package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// ConditionFromCode maps a WMO weather code (as reported by Open-Meteo) to a Condition.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Key returns a canonical string key for the coordinate rounded to the given decimals.
func (c Coordinate) Key(decimals int) string {
	return fmt.Sprintf("%.*f,%.*f", decimals, c.Lat, decimals, c.Lon)
}

func (c Coordinate) String() string {
	return c.Key(4)
}

// Bounds is the visible map extent.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// MaxLat is the latitude limit of the web mercator world.
const MaxLat = 85.0511

// Clip intersects the bounds with the valid world extent, so every point
// inside is a coordinate forecast services accept.
func (b Bounds) Clip() Bounds {
	return Bounds{
		South: max(b.South, -MaxLat),
		West:  max(b.West, -180),
		North: min(b.North, MaxLat),
		East:  min(b.East, 180),
	}
}

// Empty reports whether the bounds enclose no area.
func (b Bounds) Empty() bool {
	return b.North <= b.South || b.East <= b.West
}

// Place is a named location, either a geocoder candidate or a saved favorite.
type Place struct {
	Name       string     `json:"name" yaml:"name"`
	Coordinate Coordinate `json:"coordinate" yaml:"coordinate"`
}

// RadarFrame is one time-stamped radar image reference.
type RadarFrame struct {
	Time int64  `json:"time"`
	Path string `json:"path"`
}

// Timestamp returns the frame time as a time.Time.
func (f RadarFrame) Timestamp() time.Time {
	return time.Unix(f.Time, 0)
}

// RadarCatalog is the frame catalog published by the radar imagery host.
type RadarCatalog struct {
	Host    string       `json:"host"`
	Past    []RadarFrame `json:"past"`
	Nowcast []RadarFrame `json:"nowcast"`
}

// Series holds parallel time-indexed arrays keyed by variable name.
type Series struct {
	Time   []time.Time
	Values map[string][]float64
}

// Value returns the i-th value of a variable and whether it exists.
func (s Series) Value(name string, i int) (float64, bool) {
	vals, ok := s.Values[name]
	if !ok || i < 0 || i >= len(vals) {
		return 0, false
	}
	return vals[i], true
}

// Len returns the number of time steps in the series.
func (s Series) Len() int {
	return len(s.Time)
}

// PointForecast is the decoded response of a point forecast query.
type PointForecast struct {
	Coordinate Coordinate
	Timezone   string
	Current    map[string]float64
	Hourly     Series
	Minutely15 Series
}

// ForecastRequest lists the variables requested per section.
type ForecastRequest struct {
	Current    []string
	Hourly     []string
	Minutely15 []string
	Days       int
}

// Forecast variable names.
const (
	VarTemperature         = "temperature_2m"
	VarApparentTemperature = "apparent_temperature"
	VarPrecipitation       = "precipitation"
	VarWindSpeed           = "windspeed_10m"
	VarWindDirection       = "winddirection_10m"
	VarWeatherCode         = "weather_code"
	VarSnowfall            = "snowfall"
)

// Address is the structured result of a reverse lookup.
type Address struct {
	DisplayName  string
	City         string
	Town         string
	Village      string
	Municipality string
	County       string
	Country      string
}

// Conditions is the current weather at a point.
type Conditions struct {
	TemperatureC float64   `json:"temperatureC"`
	ApparentC    float64   `json:"apparentC"`
	Condition    Condition `json:"condition"`
}

// CurrentConditions extracts Conditions from a forecast's current section.
func CurrentConditions(fc PointForecast) (Conditions, bool) {
	temp, ok := fc.Current[VarTemperature]
	if !ok {
		return Conditions{}, false
	}
	c := Conditions{TemperatureC: temp, ApparentC: temp, Condition: ConditionUnknown}
	if v, ok := fc.Current[VarApparentTemperature]; ok {
		c.ApparentC = v
	}
	if v, ok := fc.Current[VarWeatherCode]; ok {
		c.Condition = ConditionFromCode(int(v))
	}
	return c, true
}
