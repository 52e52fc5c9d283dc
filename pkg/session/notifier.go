package session

import (
	"sync"
	"time"

	"faceclock/pkg/clock"
	"faceclock/pkg/hrapi"
)

// Notification is the currently displayed feedback, if any.
type Notification struct {
	Kind      hrapi.CheckKind `json:"kind"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Notifier shows time-boxed feedback and fires a reset when it expires.
// At most one reset timer is pending: a new Show supersedes the previous
// one and its timer is cancelled.
type Notifier struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   time.Duration
	reset   func()
	current *Notification
	timer   clock.Timer
}

// NewNotifier returns a Notifier that calls reset after delay whenever a
// shown notification expires.
func NewNotifier(clk clock.Clock, delay time.Duration, reset func()) *Notifier {
	return &Notifier{clk: clk, delay: delay, reset: reset}
}

// Show records the notification and schedules the reset. A pending reset
// timer from an earlier Show is cancelled first.
func (n *Notifier) Show(kind hrapi.CheckKind) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.current = &Notification{Kind: kind, ExpiresAt: n.clk.Now().Add(n.delay)}
	n.timer = n.clk.AfterFunc(n.delay, n.expire)
}

func (n *Notifier) expire() {
	n.mu.Lock()
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.reset()
}

// Current returns the displayed notification, or nil.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	c := *n.current
	return &c
}

// Stop cancels any pending reset without firing it.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}
