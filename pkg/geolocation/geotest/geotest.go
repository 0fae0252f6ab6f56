// Package geotest provides a scripted in-memory geolocation.Service for tests.
//
// A Platform answers access requests with a fixed status and position
// requests with a fixed reading. Any Step can be made to fail or to return an
// empty value, and every platform call is counted so tests can assert what
// was (and was not) issued.
package geotest

import (
	"context"
	"sync"

	"github.com/go-drift/geogate/pkg/geolocation"
)

// Calls counts the platform calls a Platform has received.
type Calls struct {
	AccessRequests     int
	AccessWaits        int
	GeolocatorsCreated int
	AccuracyRequests   int
	PositionRequests   int
	PositionWaits      int
	// Accuracies lists every accuracy passed to SetDesiredAccuracy, in order.
	Accuracies []geolocation.PositionAccuracy
}

// Platform is a scripted geolocation.Service. The zero value is not usable;
// create one with New.
type Platform struct {
	mu       sync.Mutex
	status   geolocation.AccessStatus
	position geolocation.BasicGeoposition
	fail     map[geolocation.Step]error
	omit     map[geolocation.Step]bool
	hold     chan struct{}
	calls    Calls
}

var _ geolocation.Service = (*Platform)(nil)

// New returns a Platform that grants status and reports pos.
func New(status geolocation.AccessStatus, pos geolocation.BasicGeoposition) *Platform {
	return &Platform{
		status:   status,
		position: pos,
		fail:     make(map[geolocation.Step]error),
		omit:     make(map[geolocation.Step]bool),
	}
}

// FailAt makes the call behind step return err.
func (p *Platform) FailAt(step geolocation.Step, err error) *Platform {
	p.mu.Lock()
	p.fail[step] = err
	p.mu.Unlock()
	return p
}

// OmitAt makes the call behind step return a nil value and no error.
func (p *Platform) OmitAt(step geolocation.Step) *Platform {
	p.mu.Lock()
	p.omit[step] = true
	p.mu.Unlock()
	return p
}

// Hold makes every Wait block until release is called or its context ends.
func (p *Platform) Hold() (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.hold = ch
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns a snapshot of the calls received so far.
func (p *Platform) Calls() Calls {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.calls
	c.Accuracies = append([]geolocation.PositionAccuracy(nil), p.calls.Accuracies...)
	return c
}

// RequestAccess implements geolocation.Service.
func (p *Platform) RequestAccess(ctx context.Context) (geolocation.Operation[geolocation.AccessStatus], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls.AccessRequests++
	if err := p.fail[geolocation.StepRequestAccess]; err != nil {
		return nil, err
	}
	if p.omit[geolocation.StepRequestAccess] {
		return nil, nil
	}
	return &operation[geolocation.AccessStatus]{
		platform: p,
		step:     geolocation.StepAwaitAccess,
		value:    p.status,
		count:    &p.calls.AccessWaits,
	}, nil
}

// NewGeolocator implements geolocation.Service.
func (p *Platform) NewGeolocator(ctx context.Context) (geolocation.Geolocator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls.GeolocatorsCreated++
	if err := p.fail[geolocation.StepCreateGeolocator]; err != nil {
		return nil, err
	}
	if p.omit[geolocation.StepCreateGeolocator] {
		return nil, nil
	}
	return &geolocator{platform: p}, nil
}

type geolocator struct {
	platform *Platform
}

func (g *geolocator) SetDesiredAccuracy(ctx context.Context, accuracy geolocation.PositionAccuracy) error {
	p := g.platform
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls.AccuracyRequests++
	p.calls.Accuracies = append(p.calls.Accuracies, accuracy)
	return p.fail[geolocation.StepSetAccuracy]
}

func (g *geolocator) GetGeoposition(ctx context.Context) (geolocation.Operation[geolocation.Geoposition], error) {
	p := g.platform
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls.PositionRequests++
	if err := p.fail[geolocation.StepRequestPosition]; err != nil {
		return nil, err
	}
	if p.omit[geolocation.StepRequestPosition] {
		return nil, nil
	}
	var pos geolocation.Geoposition = &reading{platform: p, pos: p.position}
	if p.omit[geolocation.StepAwaitPosition] {
		pos = nil
	}
	return &operation[geolocation.Geoposition]{
		platform: p,
		step:     geolocation.StepAwaitPosition,
		value:    pos,
		count:    &p.calls.PositionWaits,
	}, nil
}

type operation[T any] struct {
	platform *Platform
	step     geolocation.Step
	value    T
	count    *int
}

func (o *operation[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	p := o.platform
	p.mu.Lock()
	*o.count++
	hold := p.hold
	err := p.fail[o.step]
	p.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	if err != nil {
		return zero, err
	}
	return o.value, nil
}

// reading walks the coordinate/point/position chain, honoring FailAt and
// OmitAt for each extraction step.
type reading struct {
	platform *Platform
	pos      geolocation.BasicGeoposition
}

func (r *reading) check(step geolocation.Step) (omit bool, err error) {
	r.platform.mu.Lock()
	defer r.platform.mu.Unlock()
	return r.platform.omit[step], r.platform.fail[step]
}

func (r *reading) Coordinate() (geolocation.Geocoordinate, error) {
	omit, err := r.check(geolocation.StepCoordinate)
	if err != nil || omit {
		return nil, err
	}
	return (*coordinate)(r), nil
}

type coordinate reading

func (c *coordinate) Point() (geolocation.Geopoint, error) {
	omit, err := (*reading)(c).check(geolocation.StepPoint)
	if err != nil || omit {
		return nil, err
	}
	return (*point)(c), nil
}

type point reading

func (pt *point) Position() (geolocation.BasicGeoposition, error) {
	_, err := (*reading)(pt).check(geolocation.StepPosition)
	if err != nil {
		return geolocation.BasicGeoposition{}, err
	}
	return pt.pos, nil
}
