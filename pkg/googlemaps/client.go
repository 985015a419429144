// Package googlemaps is a small client for the Google Geocoding API.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// BaseURL is the Google Maps web services base URL.
	BaseURL = "https://maps.googleapis.com/maps/api"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// ErrNoResults is returned when the address could not be resolved.
var ErrNoResults = errors.New("googlemaps: no geocoding results")

// APIError is a non-OK status reported by the Geocoding API.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "googlemaps: " + e.Status
	}
	return fmt.Sprintf("googlemaps: %s: %s", e.Status, e.Message)
}

// Client talks to the Geocoding API with a server-side key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	debug      bool
}

// NewClient constructs a geocoding client. An empty baseURL selects BaseURL.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		debug:      os.Getenv("ENV") == "development",
	}
}

// Geocode resolves a free-form address to its best match.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.doRequest(ctx, "/geocode/json", q, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return nil, ErrNoResults
	default:
		return nil, &APIError{Status: resp.Status, Message: resp.ErrorMessage}
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	r := resp.Results[0]
	return &GeocodeResult{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		LocationType:     r.Geometry.LocationType,
	}, nil
}

// doRequest performs a GET with the given query and decodes the JSON body into result.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	reqURL := c.baseURL + endpoint + "?" + query.Encode()

	if c.debug {
		log.Debug().
			Str("endpoint", c.baseURL+endpoint).
			Str("address", query.Get("address")).
			Msg("[GOOGLEMAPS] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Msg("[GOOGLEMAPS] Incoming response")
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
