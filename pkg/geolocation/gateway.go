// Package geolocation gates access to the device location behind the OS
// location permission.
//
// A Gateway runs a strict two-step sequence against a platform Service:
// request permission, then (only if Allowed) fetch one position on a fresh
// geolocator handle. Every failure along the way is returned as an error;
// nothing in the sequence panics on a malformed platform response.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"math"

	gateerrors "github.com/go-drift/geogate/pkg/errors"
)

// PermissionStatus is the caller-facing permission decision.
type PermissionStatus string

// Permission status values. They serialize as their literal names.
const (
	PermissionAllowed     PermissionStatus = "Allowed"
	PermissionDenied      PermissionStatus = "Denied"
	PermissionUnspecified PermissionStatus = "Unspecified"
)

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PermissionFromAccess maps a platform AccessStatus to a PermissionStatus.
func PermissionFromAccess(status AccessStatus) (PermissionStatus, error) {
	switch status {
	case AccessAllowed:
		return PermissionAllowed, nil
	case AccessDenied:
		return PermissionDenied, nil
	case AccessUnspecified:
		return PermissionUnspecified, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownAccessStatus, int(status))
	}
}

// Gateway sequences permission checks and position fetches against a
// platform Service. It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	service Service
}

// NewGateway returns a Gateway backed by service.
func NewGateway(service Service) *Gateway {
	return &Gateway{service: service}
}

// RequestLocationPermission asks the platform for location access and waits
// for its decision.
func (g *Gateway) RequestLocationPermission(ctx context.Context) (PermissionStatus, error) {
	status, err := g.requestPermission(ctx)
	if err != nil {
		report("geolocation.RequestLocationPermission", err)
		return "", err
	}
	return status, nil
}

// GetDeviceLocation returns the current device location. Permission is
// requested first; unless it is Allowed the call fails with ErrAccessDenied
// before any geolocator is created.
func (g *Gateway) GetDeviceLocation(ctx context.Context) (Location, error) {
	loc, err := g.deviceLocation(ctx)
	if err != nil {
		report("geolocation.GetDeviceLocation", err)
		return Location{}, err
	}
	return loc, nil
}

func (g *Gateway) requestPermission(ctx context.Context) (PermissionStatus, error) {
	op, err := g.service.RequestAccess(ctx)
	if err != nil {
		return "", stepError(StepRequestAccess, err)
	}
	if op == nil {
		return "", stepError(StepRequestAccess, ErrMissingValue)
	}
	status, err := op.Wait(ctx)
	if err != nil {
		return "", stepError(StepAwaitAccess, err)
	}
	return PermissionFromAccess(status)
}

func (g *Gateway) deviceLocation(ctx context.Context) (Location, error) {
	permission, err := g.requestPermission(ctx)
	if err != nil {
		return Location{}, err
	}
	if permission != PermissionAllowed {
		return Location{}, ErrAccessDenied
	}

	geolocator, err := g.service.NewGeolocator(ctx)
	if err != nil {
		return Location{}, stepError(StepCreateGeolocator, err)
	}
	if geolocator == nil {
		return Location{}, stepError(StepCreateGeolocator, ErrMissingValue)
	}
	if err := geolocator.SetDesiredAccuracy(ctx, AccuracyHigh); err != nil {
		return Location{}, stepError(StepSetAccuracy, err)
	}

	op, err := geolocator.GetGeoposition(ctx)
	if err != nil {
		return Location{}, stepError(StepRequestPosition, err)
	}
	if op == nil {
		return Location{}, stepError(StepRequestPosition, ErrMissingValue)
	}
	geoposition, err := op.Wait(ctx)
	if err != nil {
		return Location{}, stepError(StepAwaitPosition, err)
	}

	return extract(geoposition)
}

// extract walks Geoposition -> Geocoordinate -> Geopoint -> BasicGeoposition.
func extract(geoposition Geoposition) (Location, error) {
	if geoposition == nil {
		return Location{}, stepError(StepCoordinate, ErrMissingValue)
	}
	coord, err := geoposition.Coordinate()
	if err != nil {
		return Location{}, stepError(StepCoordinate, err)
	}
	if coord == nil {
		return Location{}, stepError(StepCoordinate, ErrMissingValue)
	}
	point, err := coord.Point()
	if err != nil {
		return Location{}, stepError(StepPoint, err)
	}
	if point == nil {
		return Location{}, stepError(StepPoint, ErrMissingValue)
	}
	pos, err := point.Position()
	if err != nil {
		return Location{}, stepError(StepPosition, err)
	}
	if !validPosition(pos) {
		return Location{}, stepError(StepPosition,
			fmt.Errorf("%w: latitude %v, longitude %v", ErrInvalidPosition, pos.Latitude, pos.Longitude))
	}
	return Location{Latitude: pos.Latitude, Longitude: pos.Longitude}, nil
}

func validPosition(pos BasicGeoposition) bool {
	lat, lon := pos.Latitude, pos.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func report(op string, err error) {
	gateerrors.Report(&gateerrors.GateError{
		Op:   op,
		Kind: kindOf(err),
		Err:  err,
	})
}

func kindOf(err error) gateerrors.ErrorKind {
	if errors.Is(err, ErrAccessDenied) {
		return gateerrors.KindPermission
	}
	if errors.Is(err, ErrUnknownAccessStatus) {
		return gateerrors.KindParsing
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Step.Class() == ClassExtraction {
		return gateerrors.KindParsing
	}
	return gateerrors.KindPlatform
}
