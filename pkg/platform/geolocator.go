package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/go-drift/geogate/pkg/errors"
	"github.com/go-drift/geogate/pkg/geolocation"
)

const (
	geolocationChannel = "geogate/geolocation"
	completionsChannel = "geogate/geolocation/completions"
)

// GeolocationService is a geolocation.Service implemented by the host's
// native geolocation API.
//
// Method calls on "geogate/geolocation":
//
//	requestAccess      {operation}
//	create             -> {handle}
//	setDesiredAccuracy {handle, accuracy: "high"|"default"}
//	getGeoposition     {handle, operation}
//
// requestAccess and getGeoposition complete asynchronously with an event on
// "geogate/geolocation/completions" carrying the same operation ID and either
// a result ("status" or "position") or an "error" message with an optional
// "code".
//
// Hosts must report the failure of a single request as such an event, e.g.
// {"operation": id, "error": "prompt dismissed", "code": "prompt_failed"};
// only that request fails. An error on the completions stream itself
// (HandleEventError) or the end of the stream (HandleEventDone) means no
// pending result can arrive any more, so every request still waiting fails
// with it.
type GeolocationService struct {
	channel     *MethodChannel
	completions *EventChannel
}

// Geolocation is the channel-backed platform geolocation service.
var Geolocation = &GeolocationService{
	channel:     NewMethodChannel(geolocationChannel),
	completions: NewEventChannel(completionsChannel),
}

var _ geolocation.Service = (*GeolocationService)(nil)

// RequestAccess asks the OS for location access.
func (s *GeolocationService) RequestAccess(ctx context.Context) (geolocation.Operation[geolocation.AccessStatus], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op := beginOperation(s.completions, parseAccessStatus)
	if _, err := s.channel.Invoke("requestAccess", map[string]any{"operation": op.id}); err != nil {
		op.cancel()
		return nil, err
	}
	return op, nil
}

// NewGeolocator creates a fresh native geolocator handle.
func (s *GeolocationService) NewGeolocator(ctx context.Context) (geolocation.Geolocator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.channel.Invoke("create", nil)
	if err != nil {
		return nil, err
	}
	handle := parseString(parseMap(result)["handle"])
	if handle == "" {
		return nil, &errors.ParseError{Channel: geolocationChannel, DataType: "GeolocatorHandle", Got: result}
	}
	return &channelGeolocator{service: s, handle: handle}, nil
}

type channelGeolocator struct {
	service *GeolocationService
	handle  string
}

func (g *channelGeolocator) SetDesiredAccuracy(ctx context.Context, accuracy geolocation.PositionAccuracy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.service.channel.Invoke("setDesiredAccuracy", map[string]any{
		"handle":   g.handle,
		"accuracy": accuracy.String(),
	})
	return err
}

func (g *channelGeolocator) GetGeoposition(ctx context.Context) (geolocation.Operation[geolocation.Geoposition], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op := beginOperation(g.service.completions, parseGeoposition)
	if _, err := g.service.channel.Invoke("getGeoposition", map[string]any{
		"handle":    g.handle,
		"operation": op.id,
	}); err != nil {
		op.cancel()
		return nil, err
	}
	return op, nil
}

type completion struct {
	data map[string]any
	err  error
}

// pendingOperation waits for the completion event of one native call.
type pendingOperation[T any] struct {
	id     string
	sub    *Subscription
	result chan completion
	parse  func(map[string]any) (T, error)
}

// beginOperation subscribes for the completion before the native call is
// issued, so a fast completion cannot be missed.
func beginOperation[T any](events *EventChannel, parse func(map[string]any) (T, error)) *pendingOperation[T] {
	op := &pendingOperation[T]{
		id:     uuid.NewString(),
		result: make(chan completion, 1),
		parse:  parse,
	}
	deliver := func(c completion) {
		select {
		case op.result <- c:
		default:
		}
	}
	op.sub = events.Listen(EventHandler{
		OnEvent: func(data any) {
			m := parseMap(data)
			if m == nil || parseString(m["operation"]) != op.id {
				return
			}
			deliver(completion{data: m})
		},
		OnError: func(err error) {
			deliver(completion{err: err})
		},
		OnDone: func() {
			deliver(completion{err: ErrClosed})
		},
	})
	return op
}

func (o *pendingOperation[T]) cancel() {
	o.sub.Cancel()
}

// Wait blocks until the completion event arrives or ctx ends.
func (o *pendingOperation[T]) Wait(ctx context.Context) (T, error) {
	defer o.cancel()
	var zero T
	select {
	case c := <-o.result:
		if c.err != nil {
			return zero, c.err
		}
		if msg, ok := c.data["error"]; ok && msg != nil {
			code := parseString(c.data["code"])
			if code == "" {
				code = "platform_error"
			}
			return zero, NewChannelError(code, parseString(msg))
		}
		return o.parse(c.data)
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return zero, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return zero, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
}

func parseAccessStatus(m map[string]any) (geolocation.AccessStatus, error) {
	status, ok := toInt(m["status"])
	if !ok {
		return 0, &errors.ParseError{Channel: completionsChannel, DataType: "AccessStatus", Got: m["status"]}
	}
	return geolocation.AccessStatus(status), nil
}

// parseGeoposition defers validation of the nested parts to the accessors so
// each missing level is reported by the step that needed it.
func parseGeoposition(m map[string]any) (geolocation.Geoposition, error) {
	return channelGeoposition{raw: m["position"]}, nil
}

type channelGeoposition struct{ raw any }

func (p channelGeoposition) Coordinate() (geolocation.Geocoordinate, error) {
	coord := parseMap(parseMap(p.raw)["coordinate"])
	if coord == nil {
		return nil, &errors.ParseError{Channel: completionsChannel, DataType: "Geocoordinate", Got: p.raw}
	}
	return channelCoordinate(coord), nil
}

type channelCoordinate map[string]any

func (c channelCoordinate) Point() (geolocation.Geopoint, error) {
	point := parseMap(c["point"])
	if point == nil {
		return nil, &errors.ParseError{Channel: completionsChannel, DataType: "Geopoint", Got: c["point"]}
	}
	return channelPoint(point), nil
}

type channelPoint map[string]any

func (p channelPoint) Position() (geolocation.BasicGeoposition, error) {
	pos := parseMap(p["position"])
	lat, latOK := toFloat64(pos["latitude"])
	lon, lonOK := toFloat64(pos["longitude"])
	if !latOK || !lonOK || !finite(lat) || !finite(lon) {
		return geolocation.BasicGeoposition{}, &errors.ParseError{Channel: completionsChannel, DataType: "BasicGeoposition", Got: p["position"]}
	}
	alt, _ := toFloat64(pos["altitude"])
	return geolocation.BasicGeoposition{Latitude: lat, Longitude: lon, Altitude: alt}, nil
}
