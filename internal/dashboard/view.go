package dashboard

import (
	"strconv"
	"time"

	"github.com/ecowatch/ecowatch/internal/airquality"
)

// Fact is the static tip shown under the map.
const Fact = "Indoor air pollution is often 2 to 5 times worse than outdoor. " +
	"Good ventilation is key to healthier indoor air!"

// WindMapURL is the global wind visualization embedded next to the AQI map.
const WindMapURL = "https://earth.nullschool.net/"

// View is the outcome of one render pass. Exactly one of Error and Panels
// is set.
type View struct {
	City        string    `json:"city"`
	Error       string    `json:"error,omitempty"`
	Panels      *Panels   `json:"panels,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// OK reports whether the view carries dashboard panels.
func (v *View) OK() bool {
	return v != nil && v.Panels != nil
}

// Panels holds everything derived from a successful reading.
type Panels struct {
	CityLabel    string                      `json:"cityLabel"`
	AQI          int                         `json:"aqi"`
	Band         airquality.Band             `json:"band"`
	Coordinates  airquality.Coordinates      `json:"coordinates"`
	Pollutants   []PollutantCard             `json:"pollutants"`
	Alerts       []string                    `json:"alerts"`
	Notification *Notification               `json:"notification,omitempty"`
	SourceMix    airquality.SourceMix        `json:"sourceMix"`
	Fingerprint  []airquality.FingerprintBar `json:"fingerprint"`
	Trend        []airquality.TrendPoint     `json:"trend"`
	MapURL       string                      `json:"mapUrl"`
	Fact         string                      `json:"fact"`
	Cached       bool                        `json:"cached"`
	FetchedAt    time.Time                   `json:"fetchedAt"`
}

// PollutantCard is one entry of the live pollutant grid, in provider order.
type PollutantCard struct {
	Label   string   `json:"label"`
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
}

// Notification reports what happened to the alert email of a render pass.
type Notification struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Recipient string `json:"recipient,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MapURL returns the embeddable WAQI map centered on c.
func MapURL(c airquality.Coordinates) string {
	return "https://waqi.info/map/?latlng=" +
		strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Lon, 'f', -1, 64) + "&zoom=10"
}

func pollutantCards(pollutants airquality.Pollutants) []PollutantCard {
	cards := make([]PollutantCard, 0, len(pollutants))
	for _, c := range pollutants {
		display := "N/A"
		if c.Value != nil {
			display = strconv.FormatFloat(*c.Value, 'f', -1, 64) + " µg/m³"
		}
		cards = append(cards, PollutantCard{
			Label:   c.Code.Label(),
			Value:   c.Value,
			Display: display,
		})
	}
	return cards
}
