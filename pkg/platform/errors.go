package platform

import "errors"

// ErrClosed is returned when an event stream ends before delivering the
// result an operation was waiting for.
var ErrClosed = errors.New("platform: channel closed")
