package gallery

import (
	"context"
	"errors"
	"testing"
	"time"

	"faceclock/pkg/hrapi"
)

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	FetchGalleryFunc func(ctx context.Context) ([]hrapi.Person, error)
	calls            int
}

func (m *mockFetcher) FetchGallery(ctx context.Context) ([]hrapi.Person, error) {
	m.calls++
	if m.FetchGalleryFunc != nil {
		return m.FetchGalleryFunc(ctx)
	}
	return nil, nil
}

func TestLoad(t *testing.T) {
	t.Run("OrdersByEmail", func(t *testing.T) {
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				return []hrapi.Person{
					{Email: "c@x.com", Name: "Cara", Embedding: []float64{3}},
					{Email: "a@x.com", Name: "Alice", Embedding: []float64{1}},
					{Email: "b@x.com", Name: "Bob", Embedding: []float64{2}},
				}, nil
			},
		}
		cache := NewCache(fetcher)

		if err := cache.Load(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := cache.Entries()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"a@x.com", "b@x.com", "c@x.com"}
		for i, e := range entries {
			if e.Email != want[i] {
				t.Errorf("entry %d: expected %s, got %s", i, want[i], e.Email)
			}
		}
	})

	t.Run("ExcludesIncompleteEnrollment", func(t *testing.T) {
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				return []hrapi.Person{
					{Email: "a@x.com", Embedding: []float64{1}},
					{Email: "empty@x.com", Embedding: nil},
					{Email: "", Embedding: []float64{9}},
				}, nil
			},
		}
		cache := NewCache(fetcher)
		if err := cache.Load(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, _ := cache.Entries()
		if len(entries) != 1 || entries[0].Email != "a@x.com" {
			t.Errorf("expected only the fully enrolled entry, got %+v", entries)
		}
	})

	t.Run("DuplicateEmailLastWriteWins", func(t *testing.T) {
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				return []hrapi.Person{
					{Email: "a@x.com", Name: "Old", Embedding: []float64{1}},
					{Email: "a@x.com", Name: "New", Embedding: []float64{2}},
				}, nil
			},
		}
		cache := NewCache(fetcher)
		if err := cache.Load(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, _ := cache.Entries()
		if len(entries) != 1 {
			t.Fatalf("expected one entry, got %d", len(entries))
		}
		if entries[0].Name != "New" || entries[0].Embedding[0] != 2 {
			t.Errorf("expected last write to win, got %+v", entries[0])
		}
	})

	t.Run("FetchRunsOnce", func(t *testing.T) {
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				return []hrapi.Person{{Email: "a@x.com", Embedding: []float64{1}}}, nil
			},
		}
		cache := NewCache(fetcher)

		cache.Load(context.Background())
		cache.Load(context.Background())
		if fetcher.calls != 1 {
			t.Errorf("expected a single fetch, got %d", fetcher.calls)
		}
	})

	t.Run("FailureIsSessionFatal", func(t *testing.T) {
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				return nil, errors.New("network down")
			},
		}
		cache := NewCache(fetcher)

		err := cache.Load(context.Background())
		if !errors.Is(err, ErrCacheLoadFailed) {
			t.Fatalf("expected ErrCacheLoadFailed, got %v", err)
		}

		// Subsequent loads do not retry; the failure sticks.
		if err := cache.Load(context.Background()); !errors.Is(err, ErrCacheLoadFailed) {
			t.Errorf("expected the stored failure, got %v", err)
		}
		if fetcher.calls != 1 {
			t.Errorf("load failure must not be retried, got %d fetches", fetcher.calls)
		}

		if _, err := cache.Entries(); !errors.Is(err, ErrCacheLoadFailed) {
			t.Errorf("expected ErrCacheLoadFailed from Entries, got %v", err)
		}
	})
}

func TestEntriesBeforeLoad(t *testing.T) {
	cache := NewCache(&mockFetcher{})

	if _, err := cache.Entries(); !errors.Is(err, ErrCacheNotReady) {
		t.Errorf("expected ErrCacheNotReady, got %v", err)
	}
	if cache.State() != StateNotLoaded {
		t.Errorf("expected not_loaded state, got %v", cache.State())
	}
}

func TestWaitReady(t *testing.T) {
	t.Run("UnblocksOnLoad", func(t *testing.T) {
		started := make(chan struct{})
		fetcher := &mockFetcher{
			FetchGalleryFunc: func(ctx context.Context) ([]hrapi.Person, error) {
				close(started)
				return []hrapi.Person{{Email: "a@x.com", Embedding: []float64{1}}}, nil
			},
		}
		cache := NewCache(fetcher)

		go cache.Load(context.Background())
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cache.WaitReady(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cache.State() != StateReady {
			t.Errorf("expected ready state, got %v", cache.State())
		}
	})

	t.Run("ContextExpiry", func(t *testing.T) {
		cache := NewCache(&mockFetcher{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if err := cache.WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error while nothing loads, got %v", err)
		}
	})
}
