package platform

import (
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHandleMethodCall(t *testing.T) {
	silenceErrors(t)
	ch := NewMethodChannel("geogate/test/echo")
	ch.SetHandler(func(method string, args any) (any, error) {
		switch method {
		case "echo":
			return map[string]any{"got": parseMap(args)["value"]}, nil
		case "fail":
			return nil, NewChannelError("bad_request", "nope")
		}
		return nil, ErrMethodNotFound
	})

	out, err := HandleMethodCall("geogate/test/echo", "echo", []byte(`{"value":"hi"}`))
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if string(out) != `{"got":"hi"}` {
		t.Errorf("echo result = %s", out)
	}

	_, err = HandleMethodCall("geogate/test/echo", "fail", nil)
	var chErr *ChannelError
	if !stderrors.As(err, &chErr) || chErr.Code != "bad_request" {
		t.Errorf("fail: err = %v", err)
	}

	if _, err := HandleMethodCall("geogate/test/echo", "missing", nil); !stderrors.Is(err, ErrMethodNotFound) {
		t.Errorf("missing method: err = %v", err)
	}
	if _, err := HandleMethodCall("geogate/test/none", "echo", nil); !stderrors.Is(err, ErrChannelNotFound) {
		t.Errorf("missing channel: err = %v", err)
	}
	if _, err := HandleMethodCall("geogate/test/echo", "echo", []byte(`{`)); !stderrors.Is(err, ErrInvalidArguments) {
		t.Errorf("undecodable args: err = %v, want ErrInvalidArguments", err)
	}
}

func TestMethodChannelWithoutHandler(t *testing.T) {
	NewMethodChannel("geogate/test/unhandled")
	if _, err := HandleMethodCall("geogate/test/unhandled", "x", nil); !stderrors.Is(err, ErrMethodNotFound) {
		t.Errorf("err = %v, want ErrMethodNotFound", err)
	}
}

func TestInvokeWithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	ResetForTest()
	if HasNativeBridge() {
		t.Error("HasNativeBridge = true after reset")
	}
	if _, err := NewMethodChannel("geogate/test/invoke").Invoke("x", nil); !stderrors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("err = %v, want ErrPlatformUnavailable", err)
	}
	SetNativeBridge(noopBridge{})
	if !HasNativeBridge() {
		t.Error("HasNativeBridge = false with a bridge installed")
	}
}

func TestEventChannelDispatch(t *testing.T) {
	silenceErrors(t)
	SetupTestBridge(t.Cleanup)
	ch := NewEventChannel("geogate/test/events")

	var events []any
	var errs []error
	done := 0
	sub := ch.Listen(EventHandler{
		OnEvent: func(data any) { events = append(events, data) },
		OnError: func(err error) { errs = append(errs, err) },
		OnDone:  func() { done++ },
	})

	if err := HandleEvent("geogate/test/events", []byte(`{"n":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := HandleEventError("geogate/test/events", "oops", "bad thing"); err != nil {
		t.Fatal(err)
	}
	if err := HandleEvent("geogate/test/events", []byte(`{`)); err == nil {
		t.Error("expected decode error")
	}
	if len(events) != 1 || parseMap(events[0])["n"] != float64(1) {
		t.Errorf("events = %v", events)
	}
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2", errs)
	}
	var chErr *ChannelError
	if !stderrors.As(errs[0], &chErr) || chErr.Code != "oops" {
		t.Errorf("first error = %v", errs[0])
	}

	if err := HandleEventDone("geogate/test/events"); err != nil {
		t.Fatal(err)
	}
	if done != 1 || !sub.IsCanceled() {
		t.Errorf("done = %d, canceled = %v", done, sub.IsCanceled())
	}

	if err := HandleEvent("geogate/test/unknown", []byte(`{}`)); !stderrors.Is(err, ErrChannelNotRegistered) {
		t.Errorf("unknown channel: err = %v", err)
	}
}

func TestSubscriptionCancelStopsDelivery(t *testing.T) {
	SetupTestBridge(t.Cleanup)
	ch := NewEventChannel("geogate/test/cancel")

	count := 0
	sub := ch.Listen(EventHandler{OnEvent: func(any) { count++ }})
	_ = HandleEvent("geogate/test/cancel", []byte(`1`))
	sub.Cancel()
	sub.Cancel()
	_ = HandleEvent("geogate/test/cancel", []byte(`2`))

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSetNativeBridgeStartsPendingStreams(t *testing.T) {
	silenceErrors(t)
	t.Cleanup(ResetForTest)
	ResetForTest()

	ch := NewEventChannel("geogate/test/pending")
	var startErr error
	ch.Listen(EventHandler{OnError: func(err error) { startErr = err }})
	if !stderrors.Is(startErr, ErrPlatformUnavailable) {
		t.Fatalf("start without bridge: err = %v", startErr)
	}

	bridge := newGeoBridge()
	SetNativeBridge(bridge)
	bridge.mu.Lock()
	started := bridge.streams["geogate/test/pending"]
	bridge.mu.Unlock()
	if started != 1 {
		t.Errorf("stream starts = %d, want 1", started)
	}
}

// slowStartBridge blocks the first StartEventStream until released and fails
// every start with startErr.
type slowStartBridge struct {
	noopBridge
	entered  chan struct{}
	release  chan struct{}
	startErr error
	starts   atomic.Int32
}

func (b *slowStartBridge) StartEventStream(string) error {
	if b.starts.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
	return b.startErr
}

func TestListenDuringFailingStartGetsError(t *testing.T) {
	silenceErrors(t)
	t.Cleanup(ResetForTest)
	bridge := &slowStartBridge{
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		startErr: stderrors.New("location stream unavailable"),
	}
	ResetForTest()
	SetNativeBridge(bridge)
	ch := NewEventChannel("geogate/test/slowstart")

	errs := make(chan error, 2)
	handler := EventHandler{OnError: func(err error) { errs <- err }}

	go ch.Listen(handler)
	<-bridge.entered
	second := make(chan struct{})
	go func() {
		ch.Listen(handler)
		close(second)
	}()
	time.Sleep(10 * time.Millisecond)
	close(bridge.release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if !stderrors.Is(err, bridge.startErr) {
				t.Errorf("subscriber %d: err = %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d never saw the start failure", i)
		}
	}
	<-second
}

func TestListenDuringStartSharesRunningStream(t *testing.T) {
	t.Cleanup(ResetForTest)
	bridge := &slowStartBridge{entered: make(chan struct{}), release: make(chan struct{})}
	ResetForTest()
	SetNativeBridge(bridge)
	ch := NewEventChannel("geogate/test/sharedstart")

	first := make(chan struct{})
	go func() {
		ch.Listen(EventHandler{})
		close(first)
	}()
	<-bridge.entered
	second := make(chan struct{})
	go func() {
		ch.Listen(EventHandler{})
		close(second)
	}()
	time.Sleep(10 * time.Millisecond)
	close(bridge.release)
	<-first
	<-second

	if n := bridge.starts.Load(); n != 1 {
		t.Errorf("stream starts = %d, want 1", n)
	}
}
