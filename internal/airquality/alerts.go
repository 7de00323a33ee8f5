package airquality

import (
	"fmt"
	"strconv"
)

// ThresholdTable maps pollutant codes to their exceedance limit in µg/m³.
type ThresholdTable map[Pollutant]float64

var defaultThresholds = ThresholdTable{
	PollutantPM25: 25,
	PollutantPM10: 50,
	PollutantCO:   10,
	PollutantNO2:  200,
	PollutantSO2:  20,
	PollutantO3:   100,
}

// DefaultThresholds returns a copy of the built-in threshold table.
func DefaultThresholds() ThresholdTable {
	t := make(ThresholdTable, len(defaultThresholds))
	for k, v := range defaultThresholds {
		t[k] = v
	}
	return t
}

// EvaluateAlerts returns one line per pollutant whose value is strictly above
// its threshold. Lines follow the order of pollutants. Codes missing from the
// table and entries without a numeric value are skipped.
func EvaluateAlerts(pollutants Pollutants, thresholds ThresholdTable) []string {
	alerts := make([]string, 0)
	for _, c := range pollutants {
		limit, ok := thresholds[c.Code]
		if !ok || c.Value == nil {
			continue
		}
		if *c.Value > limit {
			alerts = append(alerts, FormatAlert(c.Code, *c.Value, limit))
		}
	}
	return alerts
}

// FormatAlert renders a single alert line.
func FormatAlert(code Pollutant, value, limit float64) string {
	return fmt.Sprintf("%s is %s µg/m³ (exceeds %s)", code.Label(), formatNumber(value), formatNumber(limit))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
