package geolocation

import "errors"

var (
	// ErrAccessDenied is returned by GetDeviceLocation when permission is
	// Denied or Unspecified. No position request is issued in that case.
	// The message is lowercase like every other Go error string; hosts that
	// show it to users capitalize it themselves.
	ErrAccessDenied = errors.New("location access denied")

	// ErrUnknownAccessStatus is returned when the platform reports an access
	// status outside Allowed, Denied and Unspecified.
	ErrUnknownAccessStatus = errors.New("unknown access status")

	// ErrMissingValue is wrapped in a StepError when the platform hands back
	// an empty value where a response part was expected.
	ErrMissingValue = errors.New("missing value in platform response")

	// ErrInvalidPosition is wrapped in a StepError when a reported latitude
	// or longitude is not a finite value within range.
	ErrInvalidPosition = errors.New("invalid position")
)

// Step identifies the point in the permission-then-position sequence at
// which a platform call failed.
type Step int

// Steps, in the order GetDeviceLocation runs them.
const (
	StepRequestAccess Step = iota + 1
	StepAwaitAccess
	StepCreateGeolocator
	StepSetAccuracy
	StepRequestPosition
	StepAwaitPosition
	StepCoordinate
	StepPoint
	StepPosition
)

// StepClass groups steps by what went wrong.
type StepClass int

const (
	// ClassDispatch: the platform call could not be issued.
	ClassDispatch StepClass = iota + 1
	// ClassWait: the call was issued but its asynchronous result was an error.
	ClassWait
	// ClassExtraction: the response was missing or malformed.
	ClassExtraction
)

func (s Step) String() string {
	switch s {
	case StepRequestAccess:
		return "request-access"
	case StepAwaitAccess:
		return "await-access"
	case StepCreateGeolocator:
		return "create-geolocator"
	case StepSetAccuracy:
		return "set-accuracy"
	case StepRequestPosition:
		return "request-position"
	case StepAwaitPosition:
		return "await-position"
	case StepCoordinate:
		return "coordinate"
	case StepPoint:
		return "point"
	case StepPosition:
		return "position"
	default:
		return "unknown"
	}
}

// message is the caller-facing prefix for a failure at this step.
func (s Step) message() string {
	switch s {
	case StepRequestAccess:
		return "failed to request access"
	case StepAwaitAccess:
		return "error while requesting access"
	case StepCreateGeolocator:
		return "failed to create geolocator"
	case StepSetAccuracy:
		return "failed to set accuracy"
	case StepRequestPosition:
		return "failed to get location"
	case StepAwaitPosition:
		return "error while waiting for location"
	case StepCoordinate:
		return "failed to get coordinates"
	case StepPoint:
		return "failed to get geopoint"
	case StepPosition:
		return "failed to get position"
	default:
		return "geolocation failed"
	}
}

// Class reports which failure class the step belongs to.
func (s Step) Class() StepClass {
	switch s {
	case StepAwaitAccess, StepAwaitPosition:
		return ClassWait
	case StepCoordinate, StepPoint, StepPosition:
		return ClassExtraction
	default:
		return ClassDispatch
	}
}

// StepError is a platform failure at a specific Step.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return e.Step.message()
	}
	return e.Step.message() + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}
