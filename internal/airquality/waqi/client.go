// Package waqi provides a client for the World Air Quality Index feed API.
package waqi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ecowatch/ecowatch/internal/airquality"
	"github.com/ecowatch/ecowatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "waqi"
)

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Token is the WAQI API token. Fetches fail with ErrNotConfigured without it.
	Token string

	// HTTPClient is the HTTP client to use.
	// If nil, a single-attempt resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives health reports for the default HTTP client. Optional.
	Registry *resilience.Registry

	// Logger for circuit breaker state changes.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a WAQI API client. It implements airquality.Provider.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		breaker := resilience.DefaultBreakerConfig(ProviderName)
		breaker.Logger = cfg.Logger
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:       ProviderName,
			Timeout:    timeout,
			MaxRetries: 0,
			Breaker:    &breaker,
			Registry:   cfg.Registry,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// feedResponse is the outer envelope. Data is an object when Status is "ok"
// and a message string otherwise.
type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage `json:"aqi"`
	City struct {
		Name string          `json:"name"`
		Geo  json.RawMessage `json:"geo"`
	} `json:"city"`
	IAQI iaqiMap `json:"iaqi"`
}

// iaqiMap decodes {"pm25": {"v": 12}, ...} keeping the provider's key order.
type iaqiMap airquality.Pollutants

func (m *iaqiMap) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("iaqi: expected object, got %v", tok)
	}

	out := make(iaqiMap, 0, 8)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("iaqi: unexpected key %v", keyTok)
		}

		var entry struct {
			V json.RawMessage `json:"v"`
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("iaqi %s: %w", key, err)
		}
		// Entries that are not objects carry no value.
		if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("iaqi %s: %w", key, err)
			}
		}

		out = append(out, airquality.Concentration{
			Code:  airquality.Pollutant(key),
			Value: parseNumber(entry.V),
		})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}

// parseNumber returns nil for anything that is not a JSON number.
func parseNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// FetchObservation retrieves the current feed for a city.
// Errors are *airquality.FetchError.
func (c *Client) FetchObservation(ctx context.Context, city string) (*airquality.Observation, error) {
	if c.token == "" {
		return nil, &airquality.FetchError{
			Kind:       airquality.ErrNotConfigured,
			Diagnostic: "API token not configured.",
		}
	}

	endpoint := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, url.PathEscape(city), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, networkError(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(fmt.Errorf("fetch feed: %w", stripURL(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, networkError(fmt.Errorf("unexpected status %d from feed endpoint", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(fmt.Errorf("read feed: %w", err))
	}

	var envelope feedResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, providerError("Unexpected response from air quality provider.", fmt.Errorf("decode feed response: %w", err))
	}

	if envelope.Status != "ok" {
		var message string
		if err := json.Unmarshal(envelope.Data, &message); err != nil || message == "" {
			message = "Please check the name or your internet connection."
		}
		return nil, providerError(message, nil)
	}

	var data feedData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, providerError("Unexpected response from air quality provider.", fmt.Errorf("decode feed data: %w", err))
	}

	return toObservation(city, &data), nil
}

func toObservation(city string, d *feedData) *airquality.Observation {
	label := d.City.Name
	if label == "" {
		label = cases.Title(language.Und).String(city)
	}

	return &airquality.Observation{
		CityLabel:   label,
		AQI:         parseAQI(d.AQI),
		Coordinates: parseGeo(d.City.Geo),
		Pollutants:  airquality.Pollutants(d.IAQI),
	}
}

// parseAQI accepts a number or a numeric string; the feed sends "-" when a
// station has no current index.
func parseAQI(raw json.RawMessage) int {
	if v := parseNumber(raw); v != nil {
		return int(*v)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

func parseGeo(raw json.RawMessage) airquality.Coordinates {
	var geo []float64
	if err := json.Unmarshal(raw, &geo); err != nil || len(geo) != 2 {
		return airquality.DefaultCoordinates
	}
	return airquality.Coordinates{Lat: geo[0], Lon: geo[1]}
}

func networkError(err error) error {
	return &airquality.FetchError{
		Kind:       airquality.ErrNetwork,
		Diagnostic: "Network connection failed: " + diagnosticCause(err),
		Cause:      err,
	}
}

func providerError(diagnostic string, cause error) error {
	return &airquality.FetchError{
		Kind:       airquality.ErrProvider,
		Diagnostic: diagnostic,
		Cause:      cause,
	}
}

// stripURL drops the request URL from transport errors so the token does not
// reach logs or diagnostics.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func diagnosticCause(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "provider temporarily unavailable"
	}
	return err.Error()
}
