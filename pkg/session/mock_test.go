package session

import (
	"context"
	"sync"

	"faceclock/pkg/camera"
	"faceclock/pkg/gallery"
	"faceclock/pkg/hrapi"
	"faceclock/pkg/match"
)

// mockCamera implements Camera for testing.
type mockCamera struct {
	mu          sync.Mutex
	CaptureFunc func() (camera.Frame, error)
	powerOffs   int
}

func (m *mockCamera) Capture() (camera.Frame, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc()
	}
	return camera.Frame{Data: []byte("jpeg-bytes"), Format: "jpeg"}, nil
}

func (m *mockCamera) PowerOff() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerOffs++
}

func (m *mockCamera) PowerOffCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerOffs
}

// mockGallery implements Gallery for testing.
type mockGallery struct {
	EntriesFunc func() ([]gallery.Entry, error)
}

func (m *mockGallery) Entries() ([]gallery.Entry, error) {
	if m.EntriesFunc != nil {
		return m.EntriesFunc()
	}
	return []gallery.Entry{{Email: "a@x.com", Name: "Alice", Embedding: []float64{1}}}, nil
}

// mockEmbedder implements Embedder for testing.
type mockEmbedder struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, image string) ([]float64, error)
	calls        int
}

func (m *mockEmbedder) Generate(ctx context.Context, image string) ([]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, image)
	}
	return []float64{0.5}, nil
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockMatcher implements Matcher for testing.
type mockMatcher struct {
	MatchFunc func(ctx context.Context, live []float64, entries []gallery.Entry) (match.Result, error)
}

func (m *mockMatcher) Match(ctx context.Context, live []float64, entries []gallery.Entry) (match.Result, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, live, entries)
	}
	return match.Result{Matched: true, Email: "a@x.com", Name: "Alice", Similarity: 0.9}, nil
}

// mockRecorder implements Recorder for testing.
type mockRecorder struct {
	mu         sync.Mutex
	RecordFunc func(ctx context.Context, record hrapi.Record) error
	LookupFunc func(ctx context.Context, email string) (*hrapi.Person, error)
	records    []hrapi.Record
}

func (m *mockRecorder) RecordAttendance(ctx context.Context, record hrapi.Record) error {
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, record)
	}
	return nil
}

func (m *mockRecorder) LookupUser(ctx context.Context, email string) (*hrapi.Person, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockRecorder) Records() []hrapi.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hrapi.Record, len(m.records))
	copy(out, m.records)
	return out
}

// mockLocator implements Locator for testing.
type mockLocator struct {
	LocateFunc func(ctx context.Context) (float64, float64, error)
}

func (m *mockLocator) Locate(ctx context.Context) (float64, float64, error) {
	if m.LocateFunc != nil {
		return m.LocateFunc(ctx)
	}
	return 0, 0, context.DeadlineExceeded
}
