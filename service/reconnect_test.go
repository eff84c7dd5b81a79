package service

import (
	"testing"
	"time"

	"depthfeed/infra/reactor/reactortest"
)

func TestBackoff(t *testing.T) {
	base, max := time.Second, 60*time.Second
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, max},
		{100, max},
	}
	for _, tt := range tests {
		if got := Backoff(tt.retry, base, max); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestReconnector_RedialsAfterReset(t *testing.T) {
	d := &reactortest.Dialer{}
	h := NewHub(Options{Dialer: d, Upstream: "exchange:7000"})

	posted := make(chan func(), 4)
	rc := NewReconnector(h, func(fn func()) bool {
		posted <- fn
		return true
	}, time.Millisecond, 10*time.Millisecond)

	resets := 0
	h.SetResetHandler(func() {
		resets++
		rc.Schedule()
	})
	h.SetConnectHandler(rc.Connected)

	h.Connect()
	d.Complete(nil, reactortest.ErrInjected)
	if resets != 1 || rc.retry != 1 {
		t.Fatalf("expected one reset and one scheduled retry, got %d / %d", resets, rc.retry)
	}

	// a second reset while an attempt is pending does not stack timers
	rc.Schedule()
	if rc.retry != 1 {
		t.Fatalf("pending attempt must not be rescheduled, retry=%d", rc.retry)
	}

	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatal("reconnect was never posted")
	}
	if d.Pending() != 1 {
		t.Fatalf("expected a new dial, pending=%d", d.Pending())
	}

	d.Complete(reactortest.NewConn("exchange:7000"), nil)
	if !h.UpstreamConnected() || rc.retry != 0 {
		t.Fatalf("expected connected with backoff reset, retry=%d", rc.retry)
	}
	rc.Stop()
}
