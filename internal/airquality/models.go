// Package airquality provides air quality readings, threshold alerts and
// the derived source and composition breakdowns shown on the dashboard.
package airquality

import (
	"errors"
	"strings"
	"time"
)

// Fetch errors.
var (
	ErrInvalidCity   = errors.New("city name is required")
	ErrNotConfigured = errors.New("air quality provider not configured")
	ErrNetwork       = errors.New("air quality network failure")
	ErrProvider      = errors.New("air quality provider error")
)

// Pollutant is a provider pollutant code such as "pm25" or "no2".
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantCO   Pollutant = "co"
	PollutantNO2  Pollutant = "no2"
	PollutantSO2  Pollutant = "so2"
	PollutantO3   Pollutant = "o3"
)

// Label returns the upper-cased display form of the code.
func (p Pollutant) Label() string {
	return strings.ToUpper(string(p))
}

// Status is the outcome of a fetch.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// DefaultCoordinates is used when the provider omits station geo data.
var DefaultCoordinates = Coordinates{Lat: 12.97, Lon: 77.59}

// Coordinates is a lat/lon pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Concentration is one pollutant entry as received from the provider.
// Value is nil when the provider sent no value or a non-numeric one.
type Concentration struct {
	Code  Pollutant `json:"code"`
	Value *float64  `json:"value"`
}

// Pollutants is the provider's pollutant mapping in the order it was received.
type Pollutants []Concentration

// Get returns the numeric value for a code.
func (p Pollutants) Get(code Pollutant) (float64, bool) {
	for _, c := range p {
		if c.Code == code && c.Value != nil {
			return *c.Value, true
		}
	}
	return 0, false
}

// ValueOrZero returns the numeric value for a code, or 0 when missing.
func (p Pollutants) ValueOrZero(code Pollutant) float64 {
	v, _ := p.Get(code)
	return v
}

// Observation is the data part of a successful fetch.
type Observation struct {
	CityLabel   string      `json:"cityLabel"`
	AQI         int         `json:"aqi"`
	Coordinates Coordinates `json:"coordinates"`
	Pollutants  Pollutants  `json:"pollutants"`
}

// Reading is the result of one fetch. Observation is set only when Status is
// StatusOK; Diagnostic and Err are set only when Status is StatusError.
type Reading struct {
	Status      Status       `json:"status"`
	City        string       `json:"city"`
	Diagnostic  string       `json:"diagnostic,omitempty"`
	Observation *Observation `json:"observation,omitempty"`
	FetchedAt   time.Time    `json:"fetchedAt"`
	Cached      bool         `json:"cached"`

	Err error `json:"-"`
}

// OK reports whether the reading carries an observation.
func (r *Reading) OK() bool {
	return r != nil && r.Status == StatusOK && r.Observation != nil
}

// NewOKReading creates a successful reading.
func NewOKReading(city string, obs *Observation) *Reading {
	return &Reading{
		Status:      StatusOK,
		City:        city,
		Observation: obs,
		FetchedAt:   time.Now(),
	}
}

// NewErrorReading creates a failed reading. The diagnostic is shown to users.
func NewErrorReading(city, diagnostic string, err error) *Reading {
	return &Reading{
		Status:     StatusError,
		City:       city,
		Diagnostic: diagnostic,
		FetchedAt:  time.Now(),
		Err:        err,
	}
}
