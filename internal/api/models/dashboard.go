package models

// Dashboard is the JSON rendering of one render pass. Exactly one of Error
// and Reading is set.
type Dashboard struct {
	City        string            `json:"city"`
	Error       *string           `json:"error,omitempty"`
	Reading     *DashboardReading `json:"reading,omitempty"`
	GeneratedAt Timestamp         `json:"generatedAt"`
}

// DashboardReading holds the panels derived from a successful reading.
type DashboardReading struct {
	CityLabel    string             `json:"cityLabel"`
	AQI          int                `json:"aqi"`
	Band         AQIBand            `json:"band"`
	Coordinates  Point              `json:"coordinates"`
	Pollutants   []PollutantValue   `json:"pollutants"`
	Alerts       []string           `json:"alerts"`
	Notification *AlertNotification `json:"notification,omitempty"`
	SourceMix    []SourceShare      `json:"sourceMix"`
	Fingerprint  []FingerprintBar   `json:"fingerprint"`
	Trend        []TrendPoint       `json:"trend"`
	MapURL       string             `json:"mapUrl"`
	WindMapURL   string             `json:"windMapUrl"`
	Fact         string             `json:"fact"`
	Cached       bool               `json:"cached"`
	FetchedAt    Timestamp          `json:"fetchedAt"`
}

// AQIBand is the severity band of the headline AQI.
type AQIBand struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Beacon bool   `json:"beacon"`
}

// PollutantValue is one live pollutant reading. Value is null when the
// provider reported no numeric value.
type PollutantValue struct {
	Pollutant string   `json:"pollutant"`
	Value     *float64 `json:"value"`
	Display   string   `json:"display"`
}

// AlertNotification reports the outcome of the alert email.
type AlertNotification struct {
	Attempted bool    `json:"attempted"`
	Sent      bool    `json:"sent"`
	Error     *string `json:"error,omitempty"`
}

// SourceShare is one slice of the estimated source mix.
type SourceShare struct {
	Category string  `json:"category"`
	Percent  float64 `json:"percent"`
}

// FingerprintBar is one bar of the composition chart.
type FingerprintBar struct {
	Pollutant     string  `json:"pollutant"`
	Concentration float64 `json:"concentration"`
}

// TrendPoint is one day of the sample weekly trend.
type TrendPoint struct {
	Day  string `json:"day"`
	PM25 int    `json:"pm25"`
}
