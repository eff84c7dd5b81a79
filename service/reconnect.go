package service

import (
	"log"
	"time"
)

const (
	DefaultBaseBackoff = 100 * time.Millisecond
	DefaultMaxBackoff  = 5 * time.Second
)

// Backoff returns base * 2^retry capped at max. Negative retries get base.
func Backoff(retry int, base, max time.Duration) time.Duration {
	if retry < 0 {
		return base
	}
	if retry > 30 {
		return max
	}
	d := base * time.Duration(1<<retry)
	if d > max || d <= 0 {
		return max
	}
	return d
}

// Reconnector re-dials the hub's upstream after a reset. The hub itself never
// retries; Schedule and Connected are called from the hub's handlers on the
// loop, and the delayed Connect is posted back onto it.
type Reconnector struct {
	hub   *Hub
	post  func(func()) bool
	base  time.Duration
	max   time.Duration
	retry int
	timer *time.Timer
}

func NewReconnector(hub *Hub, post func(func()) bool, base, max time.Duration) *Reconnector {
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	if max < base {
		max = DefaultMaxBackoff
	}
	return &Reconnector{hub: hub, post: post, base: base, max: max}
}

// Schedule arms the next attempt. A pending attempt is left alone.
func (r *Reconnector) Schedule() {
	if r.timer != nil {
		return
	}
	d := Backoff(r.retry, r.base, r.max)
	r.retry++
	log.Printf("[hub] reconnecting in %v (attempt %d)", d, r.retry)

	r.timer = time.AfterFunc(d, func() {
		r.post(func() {
			r.timer = nil
			r.hub.Connect()
		})
	})
}

// Connected resets the backoff once the upstream is live again.
func (r *Reconnector) Connected() {
	r.retry = 0
}

// Stop cancels a pending attempt.
func (r *Reconnector) Stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
