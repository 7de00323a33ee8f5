package airquality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecowatch/ecowatch/internal/airquality"
)

func TestEvaluateAlerts(t *testing.T) {
	tests := []struct {
		name       string
		pollutants airquality.Pollutants
		expected   []string
	}{
		{
			name:       "no pollutants",
			pollutants: nil,
			expected:   []string{},
		},
		{
			name: "all below thresholds",
			pollutants: airquality.Pollutants{
				{Code: airquality.PollutantPM25, Value: ptr(10)},
				{Code: airquality.PollutantNO2, Value: ptr(40)},
			},
			expected: []string{},
		},
		{
			name: "equal to threshold does not alert",
			pollutants: airquality.Pollutants{
				{Code: airquality.PollutantPM25, Value: ptr(25)},
			},
			expected: []string{},
		},
		{
			name: "exceedances keep provider order",
			pollutants: airquality.Pollutants{
				{Code: airquality.PollutantSO2, Value: ptr(21.5)},
				{Code: airquality.PollutantPM10, Value: ptr(30)},
				{Code: airquality.PollutantPM25, Value: ptr(152)},
			},
			expected: []string{
				"SO2 is 21.5 µg/m³ (exceeds 20)",
				"PM25 is 152 µg/m³ (exceeds 25)",
			},
		},
		{
			name: "unknown codes and missing values are skipped",
			pollutants: airquality.Pollutants{
				{Code: "t", Value: ptr(40)},
				{Code: "h", Value: ptr(90)},
				{Code: airquality.PollutantCO, Value: nil},
				{Code: airquality.PollutantO3, Value: ptr(101)},
			},
			expected: []string{"O3 is 101 µg/m³ (exceeds 100)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := airquality.EvaluateAlerts(tt.pollutants, airquality.DefaultThresholds())
			assert.NotNil(t, alerts)
			assert.Equal(t, tt.expected, alerts)
		})
	}
}

func TestEvaluateAlerts_CustomThresholds(t *testing.T) {
	thresholds := airquality.ThresholdTable{airquality.PollutantNO2: 10}
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantNO2, Value: ptr(17)},
		{Code: airquality.PollutantPM25, Value: ptr(500)},
	}

	assert.Equal(t, []string{"NO2 is 17 µg/m³ (exceeds 10)"}, airquality.EvaluateAlerts(pollutants, thresholds))
}

func TestEvaluateAlerts_Idempotent(t *testing.T) {
	pollutants := airquality.Pollutants{
		{Code: airquality.PollutantNO2, Value: ptr(250)},
		{Code: airquality.PollutantCO, Value: nil},
		{Code: airquality.PollutantPM25, Value: ptr(152)},
		{Code: airquality.PollutantO3, Value: ptr(12)},
	}
	thresholds := airquality.DefaultThresholds()

	first := airquality.EvaluateAlerts(pollutants, thresholds)
	second := airquality.EvaluateAlerts(pollutants, thresholds)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, airquality.DefaultThresholds(), thresholds, "thresholds are not modified")
}

func TestDefaultThresholds_ReturnsCopy(t *testing.T) {
	table := airquality.DefaultThresholds()
	table[airquality.PollutantPM25] = 1000

	assert.Equal(t, 25.0, airquality.DefaultThresholds()[airquality.PollutantPM25])
	assert.Len(t, airquality.DefaultThresholds(), 6)
}
