package airquality_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecowatch/ecowatch/internal/airquality"
)

func TestEstimateSourceMix(t *testing.T) {
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantSO2, Value: ptr(10)},
		{Code: airquality.PollutantNO2, Value: ptr(30)},
		{Code: airquality.PollutantCO, Value: ptr(20)},
		{Code: airquality.PollutantPM25, Value: ptr(40)},
	}

	mix := airquality.EstimateSourceMix(pollutants)

	assert.Equal(t, airquality.SourceIndustrial, mix[0].Category)
	assert.Equal(t, airquality.SourceVehicular, mix[1].Category)
	assert.Equal(t, airquality.SourceCombustion, mix[2].Category)
	assert.Equal(t, airquality.SourceParticulates, mix[3].Category)
	assert.InDeltaSlice(t, []float64{10, 30, 20, 40}, mix.Percents(), 1e-9)
}

func TestEstimateSourceMix_SumsToHundred(t *testing.T) {
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantSO2, Value: ptr(3.3)},
		{Code: airquality.PollutantNO2, Value: ptr(17.1)},
		{Code: airquality.PollutantPM25, Value: ptr(152)},
	}

	var sum float64
	for _, p := range airquality.EstimateSourceMix(pollutants).Percents() {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 100, sum, 1e-9)
}

func TestEstimateSourceMix_HugeValues(t *testing.T) {
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantSO2, Value: ptr(1e308)},
		{Code: airquality.PollutantNO2, Value: ptr(1e308)},
		{Code: airquality.PollutantCO, Value: ptr(math.MaxFloat64)},
		{Code: airquality.PollutantPM25, Value: ptr(1)},
	}

	percents := airquality.EstimateSourceMix(pollutants).Percents()

	var sum float64
	for _, p := range percents {
		sum += p
	}
	assert.InDelta(t, 100, sum, 1e-9)
	assert.InDelta(t, percents[0], percents[1], 1e-9)
	assert.Greater(t, percents[2], percents[0])
	assert.InDelta(t, 0, percents[3], 1e-9)
}

func TestEstimateSourceMix_KeepsInputOrder(t *testing.T) {
	tests := []struct {
		name          string
		so2, no2      float64
		co, pm25      float64
		higher, lower int
	}{
		{"so2 over no2", 40, 10, 0, 0, 0, 1},
		{"no2 over so2", 5, 60, 20, 15, 1, 0},
		{"pm25 dominates", 1, 2, 3, 500, 3, 2},
		{"co over pm25", 0.1, 0.2, 9, 0.5, 2, 3},
		{"fractional", 0.003, 0.002, 0.001, 0.004, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mix := airquality.EstimateSourceMix(airquality.Pollutants{
				{Code: airquality.PollutantSO2, Value: ptr(tt.so2)},
				{Code: airquality.PollutantNO2, Value: ptr(tt.no2)},
				{Code: airquality.PollutantCO, Value: ptr(tt.co)},
				{Code: airquality.PollutantPM25, Value: ptr(tt.pm25)},
			})
			percents := mix.Percents()
			assert.GreaterOrEqual(t, percents[tt.higher], percents[tt.lower])

			var sum float64
			for _, p := range percents {
				sum += p
			}
			assert.InDelta(t, 100, sum, 1e-9)
		})
	}
}

func TestEstimateSourceMix_EqualSplitWhenEmpty(t *testing.T) {
	tests := []struct {
		name       string
		pollutants airquality.Pollutants
	}{
		{"nil", nil},
		{"zeros", airquality.Pollutants{
			{Code: airquality.PollutantSO2, Value: ptr(0)},
			{Code: airquality.PollutantNO2, Value: ptr(0)},
		}},
		{"unrelated only", airquality.Pollutants{{Code: airquality.PollutantO3, Value: ptr(80)}}},
		{"negative clamped", airquality.Pollutants{{Code: airquality.PollutantCO, Value: ptr(-4)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mix := airquality.EstimateSourceMix(tt.pollutants)
			assert.Equal(t, []float64{25, 25, 25, 25}, mix.Percents())
		})
	}
}

func TestFingerprint(t *testing.T) {
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantNO2, Value: ptr(17)},
		{Code: airquality.PollutantPM25, Value: ptr(152)},
	}

	bars := airquality.Fingerprint(pollutants)
	require.Len(t, bars, 6)

	assert.Equal(t, airquality.FingerprintBar{Pollutant: "PM25", Concentration: 152}, bars[0])
	assert.Equal(t, airquality.FingerprintBar{Pollutant: "PM10", Concentration: 0}, bars[1])
	assert.Equal(t, airquality.FingerprintBar{Pollutant: "NO2", Concentration: 17}, bars[3])
	assert.Equal(t, "O3", bars[5].Pollutant)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		aqi    int
		name   string
		color  string
		beacon bool
	}{
		{0, "Good", "#28a745", false},
		{50, "Good", "#28a745", false},
		{51, "Moderate", "#ffc107", false},
		{100, "Moderate", "#ffc107", false},
		{101, "Unhealthy", "#dc3545", true},
		{420, "Unhealthy", "#dc3545", true},
	}

	for _, tt := range tests {
		band := airquality.BandFor(tt.aqi)
		assert.Equal(t, tt.name, band.Name, "aqi %d", tt.aqi)
		assert.Equal(t, tt.color, band.Color, "aqi %d", tt.aqi)
		assert.Equal(t, tt.beacon, band.Beacon, "aqi %d", tt.aqi)
	}
}

func TestSampleTrend(t *testing.T) {
	trend := airquality.SampleTrend("Bangalore")
	require.Len(t, trend, 7)

	assert.Equal(t, "Mon", trend[0].Day)
	assert.Equal(t, "Sun", trend[6].Day)
	assert.Equal(t, trend, airquality.SampleTrend("Bangalore"), "same city gives same trend")

	for i := 1; i < len(trend); i++ {
		step := trend[i].PM25 - trend[i-1].PM25
		assert.GreaterOrEqual(t, step, -15)
		assert.Less(t, step, 15)
	}
}
