package clock

import (
	"context"
	"testing"
	"time"
)

func TestFuncClock(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	c := Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Fatalf("expected fixed time, got %v", c.Now())
	}
}

func TestCancelSignalIdempotent(t *testing.T) {
	sig := NewCancelSignal()
	if sig.Cancelled() {
		t.Fatalf("new signal should not be cancelled")
	}
	sig.Cancel("user requested")
	sig.Cancel("second call should be a no-op")

	select {
	case <-sig.Done():
	default:
		t.Fatalf("expected Done channel closed")
	}
	if !sig.Cancelled() {
		t.Fatalf("expected Cancelled true")
	}
	if sig.Reason() != "user requested" {
		t.Fatalf("expected first reason to stick, got %q", sig.Reason())
	}
}

func TestCancelSignalContextPropagation(t *testing.T) {
	sig := NewCancelSignal()
	ctx, cancel := sig.Context(context.Background())
	defer cancel()

	sig.Cancel("stop")

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected derived context to be cancelled")
	}
}

func TestCancelSignalContextParentCancel(t *testing.T) {
	sig := NewCancelSignal()
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := sig.Context(parent)
	defer cancel()

	parentCancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected derived context to be cancelled by parent")
	}
	if sig.Cancelled() {
		t.Fatalf("parent cancellation should not mark the signal itself cancelled")
	}
}
