// Package presence decides when the camera should be powered based on a
// presence signal. Presence powers the camera up immediately; absence only
// powers it down after holding for a full debounce window.
package presence

import (
	"math/rand"
	"sync"
	"time"

	"faceclock/pkg/clock"
	"faceclock/pkg/logging"
)

// Source produces a presence signal. Implementations must not block for
// long; detector failures degrade to false rather than erroring.
type Source interface {
	Sample() bool
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() bool

func (f SourceFunc) Sample() bool { return f() }

// PowerController is the camera power surface the monitor drives.
type PowerController interface {
	PowerOn()
	PowerOff()
	Powered() bool
}

// Monitor polls a presence source on a fixed interval and debounces the
// camera power-off transition.
type Monitor struct {
	mu       sync.Mutex
	source   Source
	power    PowerController
	clk      clock.Clock
	debounce time.Duration
	offTimer clock.Timer
	present  bool
}

// NewMonitor returns a monitor driving the given power controller.
func NewMonitor(source Source, power PowerController, clk clock.Clock, debounce time.Duration) *Monitor {
	return &Monitor{
		source:   source,
		power:    power,
		clk:      clk,
		debounce: debounce,
	}
}

// Tick samples the presence source once and applies the transition policy.
// Call it on the configured sampling interval.
func (m *Monitor) Tick() {
	detected := m.source.Sample()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.present = detected

	if detected {
		if m.offTimer != nil {
			m.offTimer.Stop()
			m.offTimer = nil
		}
		if !m.power.Powered() {
			logging.Component("presence").Debug("presence detected, powering camera on")
			m.power.PowerOn()
		}
		return
	}

	// Absent: arm the off-debounce once; a later absent tick must not
	// extend the window.
	if m.power.Powered() && m.offTimer == nil {
		m.offTimer = m.clk.AfterFunc(m.debounce, m.powerOffExpired)
	}
}

func (m *Monitor) powerOffExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offTimer = nil
	if !m.present {
		logging.Component("presence").Debug("absence held through debounce, powering camera off")
		m.power.PowerOff()
	}
}

// Present reports the last sampled presence signal.
func (m *Monitor) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

// Toggle is the manual override: it flips camera power directly, bypassing
// the debounce, and cancels any pending off-timer. It reports the new
// power state.
func (m *Monitor) Toggle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.offTimer != nil {
		m.offTimer.Stop()
		m.offTimer = nil
	}

	if m.power.Powered() {
		m.power.PowerOff()
		return false
	}
	m.power.PowerOn()
	return true
}

// Stop cancels any pending timer so a torn-down session cannot be flipped
// by a stale callback.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offTimer != nil {
		m.offTimer.Stop()
		m.offTimer = nil
	}
}

// RandomSource simulates a detector: each sample reports presence with
// probability 1-Bias. It stands in for a real motion/ML detector.
type RandomSource struct {
	Bias float64
	rng  *rand.Rand
}

// NewRandomSource returns a simulated presence source with the given miss
// rate.
func NewRandomSource(bias float64) *RandomSource {
	return &RandomSource{
		Bias: bias,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *RandomSource) Sample() bool {
	return s.rng.Float64() >= s.Bias
}
