package geolocation

import (
	"context"
	"fmt"
)

// AccessStatus is the platform's recorded decision on location access.
// Values follow the platform enumeration; anything outside the three
// named constants is reported as ErrUnknownAccessStatus.
type AccessStatus int

// Platform access status values.
const (
	AccessUnspecified AccessStatus = 0
	AccessAllowed     AccessStatus = 1
	AccessDenied      AccessStatus = 2
)

func (s AccessStatus) String() string {
	switch s {
	case AccessUnspecified:
		return "unspecified"
	case AccessAllowed:
		return "allowed"
	case AccessDenied:
		return "denied"
	default:
		return fmt.Sprintf("AccessStatus(%d)", int(s))
	}
}

// PositionAccuracy is the accuracy a geolocator is asked to deliver.
type PositionAccuracy int

// Position accuracy levels.
const (
	AccuracyDefault PositionAccuracy = iota
	AccuracyHigh
)

func (a PositionAccuracy) String() string {
	if a == AccuracyHigh {
		return "high"
	}
	return "default"
}

// BasicGeoposition is the innermost latitude/longitude reading, in degrees,
// in whatever datum the platform reports.
type BasicGeoposition struct {
	Latitude  float64
	Longitude float64
	// Altitude is in meters. Carried for completeness; the gateway does not return it.
	Altitude float64
}

// Operation is an asynchronous platform call that has already been issued.
// Wait blocks until the platform completes it or ctx ends.
type Operation[T any] interface {
	Wait(ctx context.Context) (T, error)
}

// Service is the platform geolocation service.
//
// Issuing methods (RequestAccess, NewGeolocator) return an error only when the
// call could not be dispatched. Failures that happen after dispatch surface
// from Operation.Wait.
type Service interface {
	// RequestAccess asks the OS for location access. This may show a prompt.
	RequestAccess(ctx context.Context) (Operation[AccessStatus], error)

	// NewGeolocator creates a fresh geolocator handle.
	NewGeolocator(ctx context.Context) (Geolocator, error)
}

// Geolocator is a single platform location session.
type Geolocator interface {
	// SetDesiredAccuracy configures the accuracy of subsequent position requests.
	SetDesiredAccuracy(ctx context.Context, accuracy PositionAccuracy) error

	// GetGeoposition issues a one-shot position request.
	GetGeoposition(ctx context.Context) (Operation[Geoposition], error)
}

// Geoposition is a position response. Each accessor can fail independently
// when the platform response is incomplete.
type Geoposition interface {
	Coordinate() (Geocoordinate, error)
}

// Geocoordinate is the coordinate part of a Geoposition.
type Geocoordinate interface {
	Point() (Geopoint, error)
}

// Geopoint is the geographic point of a Geocoordinate.
type Geopoint interface {
	Position() (BasicGeoposition, error)
}

// NewGeoposition returns a Geoposition whose accessors always succeed with pos.
// Providers that receive a complete reading in one piece use it.
func NewGeoposition(pos BasicGeoposition) Geoposition {
	return staticPosition(pos)
}

type staticPosition BasicGeoposition

func (p staticPosition) Coordinate() (Geocoordinate, error) { return p, nil }
func (p staticPosition) Point() (Geopoint, error)           { return p, nil }
func (p staticPosition) Position() (BasicGeoposition, error) {
	return BasicGeoposition(p), nil
}
