// Package errors provides structured error reporting for geogate.
//
// Failures that a caller already receives as a return value are also sent to
// a process-global ErrorHandler, so a host can log or forward them without
// wrapping every call site.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel, native bridge or provider error.
	KindPlatform
	// KindParsing indicates malformed data received from the platform.
	KindParsing
	// KindInit indicates an initialization or configuration error.
	KindInit
	// KindPermission indicates the user or OS did not grant access.
	KindPermission
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindInit:
		return "init"
	case KindPermission:
		return "permission"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GateError represents a structured error reported by geogate.
type GateError struct {
	// Op is the operation that failed (e.g., "geolocation.GetDeviceLocation").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Channel is the platform channel name, if applicable.
	Channel string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *GateError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *GateError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "commands.get_device_location").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse data received from the platform.
type ParseError struct {
	// Channel is the platform channel that delivered the data.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by geogate.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *GateError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
