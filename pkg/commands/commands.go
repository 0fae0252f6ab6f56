// Package commands exposes the location gateway to the host over the
// "geogate/commands" method channel.
//
// The host calls one of four methods and receives either a JSON result or
// a *platform.ChannelError whose Code classifies the failure:
//
//	request_location_permission  -> "Allowed" | "Denied" | "Unspecified"
//	get_device_location          -> {"latitude": ..., "longitude": ...}
//	get_location_details         -> {"coords": {...}, "city": ..., "country": ...}
//	get_prayer_times             -> {"coords": {...}, "timings": {...}, "next": ..., "next_at": ..., "until": ..., "due": ...}
//
// Errors raised by a gateway step carry {"step": <step name>} as Details.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	gateerrors "github.com/go-drift/geogate/pkg/errors"
	"github.com/go-drift/geogate/pkg/geocode"
	"github.com/go-drift/geogate/pkg/geolocation"
	"github.com/go-drift/geogate/pkg/platform"
	"github.com/go-drift/geogate/pkg/prayertimes"
)

// ChannelName is the method channel the host invokes.
const ChannelName = "geogate/commands"

// DefaultTimeout bounds one command invocation, both waits included.
const DefaultTimeout = 60 * time.Second

// Method names accepted on ChannelName.
const (
	MethodRequestPermission = "request_location_permission"
	MethodGetLocation       = "get_device_location"
	MethodGetDetails        = "get_location_details"
	MethodGetPrayerTimes    = "get_prayer_times"
)

// ChannelError codes.
const (
	CodePermissionDenied  = "permission_denied"
	CodeDispatchFailed    = "dispatch_failed"
	CodeWaitFailed        = "wait_failed"
	CodeMalformedResponse = "malformed_response"
	CodeGeocodeFailed     = "geocode_failed"
	CodePrayerTimesFailed = "prayer_times_failed"
	CodePlatformError     = "platform_error"
	CodeInternal          = "internal_error"
)

// errNoGeocoder is returned by get_location_details when no Reverser is set.
var errNoGeocoder = errors.New("reverse geocoding is not configured")

// errNoPrayerTimes is returned by get_prayer_times when no Source is set.
var errNoPrayerTimes = errors.New("prayer times are not configured")

// Options configures a Plugin.
type Options struct {
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// Geocoder backs get_location_details. It may be nil.
	Geocoder geocode.Reverser
	// PrayerTimes backs get_prayer_times. It may be nil.
	PrayerTimes prayertimes.Source
	// Now is the clock for the next prayer. Nil means time.Now.
	Now func() time.Time
}

// Plugin serves command calls against a Gateway.
type Plugin struct {
	gateway  *geolocation.Gateway
	geocoder geocode.Reverser
	prayers  prayertimes.Source
	now      func() time.Time
	timeout  time.Duration
	channel  *platform.MethodChannel
}

// Register installs a Plugin on ChannelName. A later Register replaces it.
func Register(gw *geolocation.Gateway, opts Options) *Plugin {
	p := &Plugin{
		gateway:  gw,
		geocoder: opts.Geocoder,
		prayers:  opts.PrayerTimes,
		now:      opts.Now,
		timeout:  opts.Timeout,
		channel:  platform.NewMethodChannel(ChannelName),
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.channel.SetHandler(p.Handle)
	return p
}

// Handle serves one command. It never panics; a panic in the gateway or a
// provider is reported and returned as a CodeInternal error.
func (p *Plugin) Handle(method string, args any) (result any, err error) {
	defer gateerrors.RecoverWithCallback("commands."+method, func(r any) {
		result = nil
		err = platform.NewChannelError(CodeInternal, fmt.Sprintf("panic: %v", r))
	})

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	switch method {
	case MethodRequestPermission:
		status, err := p.gateway.RequestLocationPermission(ctx)
		if err != nil {
			return nil, toChannelError(err)
		}
		return string(status), nil

	case MethodGetLocation:
		loc, err := p.gateway.GetDeviceLocation(ctx)
		if err != nil {
			return nil, toChannelError(err)
		}
		return loc, nil

	case MethodGetDetails:
		return p.details(ctx)

	case MethodGetPrayerTimes:
		return p.prayerTimes(ctx)

	default:
		return nil, platform.ErrMethodNotFound
	}
}

func (p *Plugin) details(ctx context.Context) (any, error) {
	loc, err := p.gateway.GetDeviceLocation(ctx)
	if err != nil {
		return nil, toChannelError(err)
	}
	if p.geocoder == nil {
		return nil, platform.NewChannelError(CodeGeocodeFailed, errNoGeocoder.Error())
	}
	place, err := p.geocoder.Reverse(ctx, loc)
	if err != nil {
		gateerrors.Report(&gateerrors.GateError{
			Op:      "commands." + MethodGetDetails,
			Kind:    gateerrors.KindPlatform,
			Err:     err,
			Channel: ChannelName,
		})
		return nil, platform.NewChannelError(CodeGeocodeFailed, err.Error())
	}
	return place, nil
}

type prayerTimesResult struct {
	Coords geolocation.Location `json:"coords"`
	prayertimes.Schedule
}

func (p *Plugin) prayerTimes(ctx context.Context) (any, error) {
	loc, err := p.gateway.GetDeviceLocation(ctx)
	if err != nil {
		return nil, toChannelError(err)
	}
	if p.prayers == nil {
		return nil, platform.NewChannelError(CodePrayerTimesFailed, errNoPrayerTimes.Error())
	}
	day, err := p.prayers.Timings(ctx, loc)
	if err == nil {
		var schedule prayertimes.Schedule
		if schedule, err = prayertimes.NewSchedule(day, p.now()); err == nil {
			return prayerTimesResult{Coords: loc, Schedule: schedule}, nil
		}
	}
	gateerrors.Report(&gateerrors.GateError{
		Op:      "commands." + MethodGetPrayerTimes,
		Kind:    gateerrors.KindPlatform,
		Err:     err,
		Channel: ChannelName,
	})
	return nil, platform.NewChannelError(CodePrayerTimesFailed, err.Error())
}

// Code classifies a gateway error into a ChannelError code.
func Code(err error) string {
	if errors.Is(err, geolocation.ErrAccessDenied) {
		return CodePermissionDenied
	}
	if errors.Is(err, geolocation.ErrUnknownAccessStatus) {
		return CodeMalformedResponse
	}
	var stepErr *geolocation.StepError
	if errors.As(err, &stepErr) {
		switch stepErr.Step.Class() {
		case geolocation.ClassDispatch:
			return CodeDispatchFailed
		case geolocation.ClassWait:
			return CodeWaitFailed
		case geolocation.ClassExtraction:
			return CodeMalformedResponse
		}
	}
	return CodePlatformError
}

func toChannelError(err error) *platform.ChannelError {
	var stepErr *geolocation.StepError
	if errors.As(err, &stepErr) {
		return platform.NewChannelErrorWithDetails(Code(err), err.Error(), map[string]any{"step": stepErr.Step.String()})
	}
	return platform.NewChannelError(Code(err), err.Error())
}
