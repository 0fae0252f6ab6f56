// Package prayertimes fetches the daily prayer timings for a location from
// the Aladhan API and works out which prayer comes next.
package prayertimes

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

// DefaultEndpoint is the Aladhan timings endpoint for the current day.
const DefaultEndpoint = "https://api.aladhan.com/v1/timings"

// DefaultMethod is the Islamic Society of North America calculation method.
const DefaultMethod Method = 2

const maxBody = 1 << 20

// ErrNoTimings is returned when Aladhan answers without usable timings.
var ErrNoTimings = errors.New("prayertimes: no timings in response")

// Method is an Aladhan calculation method ID.
type Method int

// Valid reports whether m is in Aladhan's method ID range.
func (m Method) Valid() bool {
	return m >= 0 && m <= 99
}

// Day is one day's timings at a location.
type Day struct {
	Timings Timings `json:"timings"`
	// Timezone is the IANA zone of the location, e.g. "Africa/Cairo".
	Timezone string `json:"timezone,omitempty"`
}

// Zone returns the location's time zone, or time.Local when it is unknown.
func (d Day) Zone() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Source provides prayer timings for a location.
type Source interface {
	Timings(ctx context.Context, loc geolocation.Location) (Day, error)
}

// Client is an Aladhan backed Source.
type Client struct {
	endpoint   string
	method     Method
	userAgent  string
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithMethod overrides DefaultMethod.
func WithMethod(method Method) Option {
	return func(c *Client) { c.method = method }
}

// WithUserAgent sets the User-Agent header.
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
		method:     DefaultMethod,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type timingsResponse struct {
	Code int `json:"code"`
	Data *struct {
		Timings *Timings `json:"timings"`
		Meta    struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// Timings fetches today's timings for loc.
func (c *Client) Timings(ctx context.Context, loc geolocation.Location) (Day, error) {
	if !c.method.Valid() {
		return Day{}, fmt.Errorf("prayertimes: invalid method %d", c.method)
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Day{}, fmt.Errorf("prayertimes: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("method", strconv.Itoa(int(c.method)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Day{}, fmt.Errorf("prayertimes: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Day{}, fmt.Errorf("prayertimes: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Day{}, fmt.Errorf("prayertimes: unexpected status %s", resp.Status)
	}

	var body timingsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return Day{}, fmt.Errorf("prayertimes: failed to decode response: %w", err)
	}
	if body.Code != http.StatusOK || body.Data == nil || body.Data.Timings == nil {
		return Day{}, ErrNoTimings
	}
	day := Day{Timings: *body.Data.Timings, Timezone: body.Data.Meta.Timezone}
	if err := day.Timings.validate(); err != nil {
		return Day{}, err
	}
	return day, nil
}
