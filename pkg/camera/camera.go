// Package camera provides frame capture and camera power state.
// The camera device is exclusive to the session: the presence monitor and
// the manual override change power state, everything else only reads frames.
package camera

import (
	"errors"
	"os"
	"sync"
	"time"

	"faceclock/pkg/logging"
)

// Frame is a single captured camera frame.
type Frame struct {
	Data       []byte
	Format     string // "jpeg"
	CapturedAt time.Time
}

// Device produces raw frames from the underlying hardware.
type Device interface {
	Grab() (Frame, error)
}

// ErrCameraOff is returned when capturing while the camera is powered off.
var ErrCameraOff = errors.New("camera is powered off")

// ErrNoFrame is returned when the device produced no usable frame.
var ErrNoFrame = errors.New("failed to capture frame")

// Camera wraps a Device with power state. Capture only succeeds while
// powered on.
type Camera struct {
	mu      sync.Mutex
	device  Device
	powered bool
}

// New returns a Camera over the given device, powered off.
func New(device Device) *Camera {
	return &Camera{device: device}
}

// PowerOn powers the camera. Powering an already-on camera is a no-op.
func (c *Camera) PowerOn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.powered {
		c.powered = true
		logging.Component("camera").Debug("camera powered on")
	}
}

// PowerOff powers the camera down.
func (c *Camera) PowerOff() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.powered {
		c.powered = false
		logging.Component("camera").Debug("camera powered off")
	}
}

// Powered reports whether the camera is currently on.
func (c *Camera) Powered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.powered
}

// Capture grabs exactly one frame from the active camera.
func (c *Camera) Capture() (Frame, error) {
	c.mu.Lock()
	powered := c.powered
	device := c.device
	c.mu.Unlock()

	if !powered {
		return Frame{}, ErrCameraOff
	}

	frame, err := device.Grab()
	if err != nil {
		return Frame{}, err
	}
	if len(frame.Data) == 0 {
		return Frame{}, ErrNoFrame
	}
	return frame, nil
}

// FileDevice reads the most recent snapshot written by an external camera
// pipeline. Kiosk deployments point this at the file their streamer
// continuously overwrites.
type FileDevice struct {
	Path string
}

func (d FileDevice) Grab() (Frame, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return Frame{}, ErrNoFrame
	}
	return Frame{Data: data, Format: "jpeg", CapturedAt: time.Now()}, nil
}

// Stub is a Device returning a fixed frame; used in tests and camera-less
// deployments.
type Stub struct {
	Image []byte
	Err   error
}

func (s Stub) Grab() (Frame, error) {
	if s.Err != nil {
		return Frame{}, s.Err
	}
	return Frame{Data: s.Image, Format: "jpeg", CapturedAt: time.Now()}, nil
}
