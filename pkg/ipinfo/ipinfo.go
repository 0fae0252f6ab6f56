// Package ipinfo implements geolocation.Service on top of IP-based lookup
// (ipinfo.io). It needs no OS permission, so access is always granted, and
// its accuracy is whatever the IP database provides regardless of the
// accuracy requested.
package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-drift/geogate/pkg/geolocation"
)

// DefaultEndpoint is the ipinfo.io lookup for the caller's own address.
const DefaultEndpoint = "https://ipinfo.io/json"

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Response is the subset of the ipinfo.io payload geogate reads.
type Response struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	// Loc is "latitude,longitude".
	Loc string `json:"loc"`
}

// Client is an ipinfo.io backed geolocation.Service.
type Client struct {
	endpoint   string
	token      string
	userAgent  string
	httpClient *http.Client
}

var _ geolocation.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithToken sets the ipinfo.io access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserAgent sets the User-Agent header sent with lookups.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a Client.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestAccess always resolves to geolocation.AccessAllowed.
func (c *Client) RequestAccess(ctx context.Context) (geolocation.Operation[geolocation.AccessStatus], error) {
	return granted{}, nil
}

type granted struct{}

func (granted) Wait(ctx context.Context) (geolocation.AccessStatus, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return geolocation.AccessAllowed, nil
}

// NewGeolocator returns a lookup session. It holds no remote state.
func (c *Client) NewGeolocator(ctx context.Context) (geolocation.Geolocator, error) {
	return &geolocator{client: c}, nil
}

type geolocator struct {
	client *Client
}

// SetDesiredAccuracy is accepted and ignored.
func (g *geolocator) SetDesiredAccuracy(ctx context.Context, accuracy geolocation.PositionAccuracy) error {
	return nil
}

// GetGeoposition prepares the lookup request; it is sent by Wait.
func (g *geolocator) GetGeoposition(ctx context.Context) (geolocation.Operation[geolocation.Geoposition], error) {
	req, err := g.client.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &lookup{client: g.client, req: req}, nil
}

type lookup struct {
	client *Client
	req    *http.Request
}

func (l *lookup) Wait(ctx context.Context) (geolocation.Geoposition, error) {
	resp, err := l.client.do(l.req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return position(resp.Loc), nil
}

// Lookup performs a single lookup and returns the raw response.
func (c *Client) Lookup(ctx context.Context) (*Response, error) {
	req, err := c.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ipinfo: invalid endpoint: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipinfo: lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipinfo: unexpected status %s", resp.Status)
	}
	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("ipinfo: failed to decode response: %w", err)
	}
	return &out, nil
}

// position is the "lat,lon" string from a lookup. Parsing is deferred to
// Position so a malformed value fails at the position step.
type position string

func (p position) Coordinate() (geolocation.Geocoordinate, error) {
	if strings.TrimSpace(string(p)) == "" {
		return nil, fmt.Errorf("ipinfo: response has no loc field")
	}
	return p, nil
}

func (p position) Point() (geolocation.Geopoint, error) {
	return p, nil
}

func (p position) Position() (geolocation.BasicGeoposition, error) {
	return ParseLoc(string(p))
}

// ParseLoc parses an ipinfo "latitude,longitude" string.
func ParseLoc(loc string) (geolocation.BasicGeoposition, error) {
	latStr, lonStr, ok := strings.Cut(loc, ",")
	if !ok {
		return geolocation.BasicGeoposition{}, fmt.Errorf("ipinfo: malformed loc %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geolocation.BasicGeoposition{}, fmt.Errorf("ipinfo: malformed latitude in %q: %w", loc, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geolocation.BasicGeoposition{}, fmt.Errorf("ipinfo: malformed longitude in %q: %w", loc, err)
	}
	if !finite(lat) || !finite(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geolocation.BasicGeoposition{}, fmt.Errorf("ipinfo: loc %q is not a valid position", loc)
	}
	return geolocation.BasicGeoposition{Latitude: lat, Longitude: lon}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
