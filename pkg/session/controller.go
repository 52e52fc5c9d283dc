// Package session drives the attendance attempt state machine: capture a
// frame, verify the identity against the gallery, submit the record, then
// show timed feedback and reset.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"faceclock/pkg/camera"
	"faceclock/pkg/clock"
	"faceclock/pkg/gallery"
	"faceclock/pkg/hrapi"
	"faceclock/pkg/logging"
	"faceclock/pkg/match"
)

// State is the attempt pipeline stage.
type State string

const (
	StateIdle        State = "idle"
	StateCapturing   State = "capturing"
	StateRecognizing State = "recognizing"
	StateRecording   State = "recording"
	StateNotifying   State = "notifying"
)

// Status is the kiosk's displayed attendance status.
type Status string

const (
	StatusNotChecked Status = "not_checked"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
)

// Camera is the frame source for attempts. The controller captures and,
// on session reset, powers the camera down; power-up stays with the
// presence monitor.
type Camera interface {
	Capture() (camera.Frame, error)
	PowerOff()
}

// Gallery provides the loaded matching gallery.
type Gallery interface {
	Entries() ([]gallery.Entry, error)
}

// Embedder turns a captured image into an embedding.
type Embedder interface {
	Generate(ctx context.Context, imageBase64 string) ([]float64, error)
}

// Matcher scores a live embedding against the gallery.
type Matcher interface {
	Match(ctx context.Context, live []float64, entries []gallery.Entry) (match.Result, error)
}

// Recorder submits attendance records and enriches identities.
type Recorder interface {
	RecordAttendance(ctx context.Context, record hrapi.Record) error
	LookupUser(ctx context.Context, email string) (*hrapi.Person, error)
}

// Locator resolves the kiosk's coordinates. Implementations should honor
// the context deadline; the controller treats any error as "unresolved"
// and falls back to (0,0).
type Locator interface {
	Locate(ctx context.Context) (lat, lng float64, err error)
}

// NoLocator always reports an unresolved location.
type NoLocator struct{}

func (NoLocator) Locate(context.Context) (float64, float64, error) {
	return 0, 0, errors.New("no location source configured")
}

// StaticLocator reports fixed coordinates, for kiosks installed at a
// known site.
type StaticLocator struct {
	Lat, Lng float64
}

func (l StaticLocator) Locate(context.Context) (float64, float64, error) {
	return l.Lat, l.Lng, nil
}

// AttendanceEvent is one successfully submitted check, kept locally for
// display only. The record of truth lives in the attendance service.
type AttendanceEvent struct {
	AttemptID        string          `json:"attempt_id"`
	Email            string          `json:"email"`
	Name             string          `json:"name"`
	Kind             hrapi.CheckKind `json:"kind"`
	At               time.Time       `json:"at"`
	Similarity       float64         `json:"similarity"`
	Lat              float64         `json:"lat"`
	Lng              float64         `json:"lng"`
	LocationResolved bool            `json:"location_resolved"`
}

// Snapshot is the session state view served to the kiosk UI.
type Snapshot struct {
	State           State         `json:"state"`
	Status          Status        `json:"status"`
	RecognizedEmail string        `json:"recognized_email,omitempty"`
	RecognizedName  string        `json:"recognized_name,omitempty"`
	Notification    *Notification `json:"notification,omitempty"`
}

// Deps are the controller's collaborators and tuning knobs.
type Deps struct {
	Camera   Camera
	Gallery  Gallery
	Embedder Embedder
	Matcher  Matcher
	Recorder Recorder
	Locator  Locator
	Clock    clock.Clock

	// GeoBudget bounds the location lookup per attempt.
	GeoBudget time.Duration
	// ResetAfter is how long feedback stays on screen before the session
	// resets.
	ResetAfter time.Duration
	// EventHistory caps the locally kept event list. Zero means 32.
	EventHistory int
}

// Controller owns one kiosk session. At most one attempt runs at a time;
// overlapping Check calls fail fast instead of queueing.
type Controller struct {
	mu              sync.Mutex
	state           State
	status          Status
	recognizedEmail string
	recognizedName  string
	events          []AttendanceEvent

	cam      Camera
	gallery  Gallery
	embedder Embedder
	matcher  Matcher
	recorder Recorder
	locator  Locator
	clk      clock.Clock
	notifier *Notifier

	geoBudget  time.Duration
	maxHistory int
}

// NewController wires a controller from its dependencies.
func NewController(deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Locator == nil {
		deps.Locator = NoLocator{}
	}
	if deps.GeoBudget <= 0 {
		deps.GeoBudget = 5 * time.Second
	}
	if deps.ResetAfter <= 0 {
		deps.ResetAfter = 3 * time.Second
	}
	if deps.EventHistory <= 0 {
		deps.EventHistory = 32
	}

	c := &Controller{
		state:      StateIdle,
		status:     StatusNotChecked,
		cam:        deps.Camera,
		gallery:    deps.Gallery,
		embedder:   deps.Embedder,
		matcher:    deps.Matcher,
		recorder:   deps.Recorder,
		locator:    deps.Locator,
		clk:        deps.Clock,
		geoBudget:  deps.GeoBudget,
		maxHistory: deps.EventHistory,
	}
	c.notifier = NewNotifier(deps.Clock, deps.ResetAfter, c.reset)
	return c
}

// Check runs one attendance attempt end to end. Failures come back as
// *AttemptError; the session always returns to idle, with status updated
// only when the record was accepted.
func (c *Controller) Check(ctx context.Context, kind hrapi.CheckKind) (*AttendanceEvent, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, newAttemptError(ErrCodeAttemptInFlight, true, nil)
	}
	c.state = StateCapturing
	c.mu.Unlock()

	defer c.setState(StateIdle)

	attemptID := uuid.NewString()
	log := logging.Component("session").WithFields(logging.Fields{
		"attempt": attemptID,
		"kind":    string(kind),
	})
	log.Info("attendance check started")

	frame, err := c.cam.Capture()
	if err != nil {
		log.WithError(err).Warn("no frame available")
		return nil, newAttemptError(ErrCodeNoFrame, true, err)
	}
	photo := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame.Data)

	c.setState(StateRecognizing)

	// The gallery gates the whole attempt: a cache that never loaded must
	// not cost an embedding request.
	entries, err := c.gallery.Entries()
	if err != nil {
		log.WithError(err).Warn("gallery unavailable")
		if errors.Is(err, gallery.ErrCacheLoadFailed) {
			return nil, newAttemptError(ErrCodeCacheLoadFailed, false, err)
		}
		return nil, newAttemptError(ErrCodeCacheNotReady, true, err)
	}

	live, err := c.embedder.Generate(ctx, photo)
	if err != nil {
		log.WithError(err).Warn("embedding generation failed")
		return nil, newAttemptError(ErrCodeEmbeddingFailed, true, err)
	}

	res, err := c.matcher.Match(ctx, live, entries)
	if err != nil {
		log.WithError(err).Warn("matching unavailable")
		return nil, newAttemptError(ErrCodeMatchUnavailable, true, err)
	}
	if !res.Matched {
		log.WithFields(logging.Fields{"best_similarity": res.Similarity}).Info("no matching identity")
		return nil, newAttemptError(ErrCodeNoMatch, true, ErrNoMatch)
	}
	log.WithFields(logging.Fields{
		"email":      res.Email,
		"similarity": res.Similarity,
	}).Info("identity matched")

	c.setState(StateRecording)

	lat, lng, resolved := c.locate(ctx, log)
	event := &AttendanceEvent{
		AttemptID:        attemptID,
		Email:            res.Email,
		Name:             res.Name,
		Kind:             kind,
		At:               c.clk.Now(),
		Similarity:       res.Similarity,
		Lat:              lat,
		Lng:              lng,
		LocationResolved: resolved,
	}

	record := hrapi.Record{Email: res.Email, Type: kind, Photo: photo, Lat: lat, Lng: lng}
	if err := c.recorder.RecordAttendance(ctx, record); err != nil {
		log.WithError(err).Error("attendance submission failed")
		return nil, newAttemptError(ErrCodeRecordingFailed, true, err)
	}

	c.setState(StateNotifying)

	// Enrichment is cosmetic; a lookup failure never fails the attempt.
	if person, err := c.recorder.LookupUser(ctx, res.Email); err == nil && person != nil && person.Name != "" {
		event.Name = person.Name
	} else if err != nil {
		log.WithError(err).Debug("identity enrichment skipped")
	}

	c.mu.Lock()
	if kind == hrapi.CheckOut {
		c.status = StatusCheckedOut
	} else {
		c.status = StatusCheckedIn
	}
	c.recognizedEmail = event.Email
	c.recognizedName = event.Name
	c.events = append(c.events, *event)
	if len(c.events) > c.maxHistory {
		c.events = c.events[len(c.events)-c.maxHistory:]
	}
	c.mu.Unlock()

	c.notifier.Show(kind)
	log.WithFields(logging.Fields{"email": event.Email}).Info("attendance recorded")
	return event, nil
}

// locate resolves coordinates under the geo budget, falling back to the
// (0,0) sentinel when the source errors or times out.
func (c *Controller) locate(ctx context.Context, log *logrus.Entry) (float64, float64, bool) {
	geoCtx, cancel := context.WithTimeout(ctx, c.geoBudget)
	defer cancel()

	lat, lng, err := c.locator.Locate(geoCtx)
	if err != nil {
		log.WithError(err).Warn("location unresolved, recording sentinel coordinates")
		return 0, 0, false
	}
	return lat, lng, true
}

// reset is the notification expiry path: feedback is cleared, status and
// identity return to their unchecked defaults, and the camera powers
// down until presence re-arms it.
func (c *Controller) reset() {
	c.mu.Lock()
	c.status = StatusNotChecked
	c.recognizedEmail = ""
	c.recognizedName = ""
	c.mu.Unlock()

	c.cam.PowerOff()
	logging.Component("session").Debug("session reset")
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:           c.state,
		Status:          c.status,
		RecognizedEmail: c.recognizedEmail,
		RecognizedName:  c.recognizedName,
		Notification:    c.notifier.Current(),
	}
}

// Events returns the locally kept submissions, newest last.
func (c *Controller) Events() []AttendanceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AttendanceEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Close cancels the pending reset timer, if any.
func (c *Controller) Close() {
	c.notifier.Stop()
}
