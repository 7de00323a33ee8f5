package airquality

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// SourceCategory is an estimated pollution source.
type SourceCategory string

const (
	SourceIndustrial   SourceCategory = "Industrial (SO2)"
	SourceVehicular    SourceCategory = "Vehicular (NO2)"
	SourceCombustion   SourceCategory = "Combustion (CO)"
	SourceParticulates SourceCategory = "Particulates (PM2.5)"
)

// SourceShare is one slice of the source mix.
type SourceShare struct {
	Category SourceCategory `json:"category"`
	Percent  float64        `json:"percent"`
}

// SourceMix is the four-category source estimate. Shares are always in the
// order Industrial, Vehicular, Combustion, Particulates and sum to 100.
type SourceMix [4]SourceShare

// Percents returns the shares as a plain slice in category order.
func (m SourceMix) Percents() []float64 {
	out := make([]float64, len(m))
	for i, s := range m {
		out[i] = s.Percent
	}
	return out
}

// sourceInputs pairs each category with the pollutant it is derived from.
var sourceInputs = [4]struct {
	category  SourceCategory
	pollutant Pollutant
}{
	{SourceIndustrial, PollutantSO2},
	{SourceVehicular, PollutantNO2},
	{SourceCombustion, PollutantCO},
	{SourceParticulates, PollutantPM25},
}

// EstimateSourceMix scales the so2, no2, co and pm25 readings into
// percentage shares. Missing values count as zero; when all four are zero
// the result is an equal split.
func EstimateSourceMix(pollutants Pollutants) SourceMix {
	var raw [4]float64
	var peak float64
	for i, in := range sourceInputs {
		v := pollutants.ValueOrZero(in.pollutant)
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case math.IsInf(v, 1):
			v = math.MaxFloat64
		}
		raw[i] = v
		peak = math.Max(peak, v)
	}

	// Scaled by the largest value so the sum cannot overflow.
	var sum float64
	if peak > 0 {
		for i := range raw {
			raw[i] /= peak
			sum += raw[i]
		}
	}

	var mix SourceMix
	for i, in := range sourceInputs {
		mix[i].Category = in.category
		if sum == 0 {
			mix[i].Percent = 25
			continue
		}
		mix[i].Percent = raw[i] / sum * 100
	}
	return mix
}

// FingerprintPollutants is the fixed set plotted in the composition chart.
var FingerprintPollutants = []Pollutant{
	PollutantPM25, PollutantPM10, PollutantCO, PollutantNO2, PollutantSO2, PollutantO3,
}

// FingerprintBar is one bar of the composition fingerprint.
type FingerprintBar struct {
	Pollutant     string  `json:"pollutant"`
	Concentration float64 `json:"concentration"`
}

// Fingerprint returns the composition chart data for the six tracked
// pollutants, with missing values as zero.
func Fingerprint(pollutants Pollutants) []FingerprintBar {
	bars := make([]FingerprintBar, 0, len(FingerprintPollutants))
	for _, p := range FingerprintPollutants {
		bars = append(bars, FingerprintBar{
			Pollutant:     p.Label(),
			Concentration: pollutants.ValueOrZero(p),
		})
	}
	return bars
}

// Band is the AQI severity band used to color the headline.
type Band struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Beacon bool   `json:"beacon"`
}

// BandFor returns the severity band of an AQI value.
func BandFor(aqi int) Band {
	switch {
	case aqi <= 50:
		return Band{Name: "Good", Color: "#28a745"}
	case aqi <= 100:
		return Band{Name: "Moderate", Color: "#ffc107"}
	default:
		return Band{Name: "Unhealthy", Color: "#dc3545", Beacon: true}
	}
}

// TrendPoint is one day of the sample weekly trend.
type TrendPoint struct {
	Day  string `json:"day"`
	PM25 int    `json:"pm25"`
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// SampleTrend returns an illustrative PM2.5 week for a city. It is not
// measured data: values are derived from the city name so that the same
// city always shows the same chart.
func SampleTrend(city string) []TrendPoint {
	var seed uint64
	for _, r := range city {
		seed += uint64(r)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(city))
	rng := rand.New(rand.NewPCG(seed, h.Sum64()))

	value := 40 + rng.IntN(110)
	points := make([]TrendPoint, 0, len(weekdays))
	for _, day := range weekdays {
		value += rng.IntN(30) - 15
		points = append(points, TrendPoint{Day: day, PM25: value})
	}
	return points
}
