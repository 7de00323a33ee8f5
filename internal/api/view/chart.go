package view

import (
	"strconv"

	"github.com/ecowatch/ecowatch/internal/airquality"
)

// Chart geometry, in SVG user units.
const (
	chartWidth   = 600.0
	chartHeight  = 240.0
	labelSpace   = 24.0
	valueSpace   = 18.0
	barGapFactor = 0.25
	mixHeight    = 36.0
)

// mixColors are assigned to source categories in SourceMix order.
var mixColors = [4]string{"#6c757d", "#0077b6", "#f4a261", "#e76f51"}

// Bar is one precomputed bar of a vertical bar chart.
type Bar struct {
	Label string
	Value string
	X     float64
	Y     float64
	W     float64
	H     float64
}

// LabelX is the horizontal center of the bar.
func (b Bar) LabelX() float64 { return b.X + b.W/2 }

// MixSegment is one slice of the stacked source-mix bar.
type MixSegment struct {
	Category string
	Percent  string
	Color    string
	X        float64
	W        float64
}

type labeled struct {
	label string
	value float64
}

// barChart lays out values as bars scaled to the largest value. All-zero
// input yields zero-height bars.
func barChart(values []labeled) []Bar {
	if len(values) == 0 {
		return nil
	}
	var peak float64
	for _, v := range values {
		if v.value > peak {
			peak = v.value
		}
	}

	slot := chartWidth / float64(len(values))
	gap := slot * barGapFactor
	plot := chartHeight - labelSpace - valueSpace
	bars := make([]Bar, 0, len(values))
	for i, v := range values {
		h := 0.0
		if peak > 0 && v.value > 0 {
			h = v.value / peak * plot
		}
		bars = append(bars, Bar{
			Label: v.label,
			Value: strconv.FormatFloat(v.value, 'f', -1, 64),
			X:     float64(i)*slot + gap/2,
			Y:     chartHeight - labelSpace - h,
			W:     slot - gap,
			H:     h,
		})
	}
	return bars
}

// FingerprintChart lays out the six-pollutant composition chart.
func FingerprintChart(bars []airquality.FingerprintBar) []Bar {
	values := make([]labeled, 0, len(bars))
	for _, b := range bars {
		values = append(values, labeled{label: b.Pollutant, value: b.Concentration})
	}
	return barChart(values)
}

// TrendChart lays out the sample weekly PM2.5 chart.
func TrendChart(points []airquality.TrendPoint) []Bar {
	values := make([]labeled, 0, len(points))
	for _, p := range points {
		values = append(values, labeled{label: p.Day, value: float64(p.PM25)})
	}
	return barChart(values)
}

// MixChart lays out the source mix as one stacked bar.
func MixChart(mix airquality.SourceMix) []MixSegment {
	segments := make([]MixSegment, 0, len(mix))
	var x float64
	for i, share := range mix {
		w := share.Percent / 100 * chartWidth
		segments = append(segments, MixSegment{
			Category: string(share.Category),
			Percent:  strconv.FormatFloat(share.Percent, 'f', 1, 64) + "%",
			Color:    mixColors[i%len(mixColors)],
			X:        x,
			W:        w,
		})
		x += w
	}
	return segments
}
