// Package geocode resolves coordinates to a place name using the
// OpenStreetMap Nominatim reverse-geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-drift/geogate/pkg/geolocation"
)

// DefaultEndpoint is the public Nominatim reverse endpoint.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/reverse"

const maxBody = 1 << 20

// ErrNoAddress is returned when Nominatim has no address for the point.
var ErrNoAddress = errors.New("geocode: no address for location")

// Place is a location together with the settlement and country containing it.
type Place struct {
	Coords  geolocation.Location `json:"coords"`
	City    string               `json:"city,omitempty"`
	Country string               `json:"country,omitempty"`
}

// Reverser is a reverse geocoder.
type Reverser interface {
	Reverse(ctx context.Context, loc geolocation.Location) (Place, error)
}

// Nominatim is a Reverser backed by a Nominatim server. Nominatim's usage
// policy requires an identifying User-Agent, so one must be configured.
type Nominatim struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

var _ Reverser = (*Nominatim)(nil)

// Option configures a Nominatim client.
type Option func(*Nominatim)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(n *Nominatim) { n.endpoint = endpoint }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Nominatim) { n.httpClient = hc }
}

// NewNominatim returns a client that identifies itself as userAgent.
func NewNominatim(userAgent string, opts ...Option) *Nominatim {
	n := &Nominatim{
		endpoint:   DefaultEndpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address *struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Hamlet  string `json:"hamlet"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse looks up the place containing loc. City falls back through town,
// village and hamlet.
func (n *Nominatim) Reverse(ctx context.Context, loc geolocation.Location) (Place, error) {
	if n.userAgent == "" {
		return Place{}, fmt.Errorf("geocode: a User-Agent is required")
	}
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return Place{}, fmt.Errorf("geocode: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("geocode: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocode: unexpected status %s", resp.Status)
	}

	var body reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("geocode: failed to decode response: %w", err)
	}
	if body.Error != "" || body.Address == nil {
		return Place{}, ErrNoAddress
	}

	a := body.Address
	return Place{
		Coords:  loc,
		City:    firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet),
		Country: a.Country,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
