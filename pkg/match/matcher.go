// Package match runs a live embedding against the gallery and picks the
// best-scoring identity.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"faceclock/pkg/faceapi"
	"faceclock/pkg/gallery"
	"faceclock/pkg/logging"
)

// ErrServiceUnavailable is returned when every pairwise comparison failed,
// so no verdict about the live face could be formed at all.
var ErrServiceUnavailable = errors.New("comparison service unavailable")

// Result is the outcome of matching one live embedding against the
// gallery. When Matched is false the identity fields are empty and
// Similarity is the best score seen, matched or not.
type Result struct {
	Matched    bool
	Email      string
	Name       string
	Similarity float64
	Compared   int
	Failed     int
}

// Strategy runs the pairwise comparisons over the gallery and returns one
// verdict per entry, index-aligned with the input. A failed comparison is
// reported as an error in the slot; the strategy never aborts the sweep
// for a single entry's failure.
type Strategy interface {
	Sweep(ctx context.Context, cmp faceapi.Comparer, live []float64, entries []gallery.Entry) []verdict
}

type verdict struct {
	cmp faceapi.Comparison
	err error
}

// Matcher scores a live embedding against gallery entries.
type Matcher struct {
	comparer faceapi.Comparer
	strategy Strategy
}

// New returns a Matcher over the given comparer. workers selects the
// sweep strategy: 0 or 1 compares sequentially, anything higher fans the
// comparisons out over that many goroutines.
func New(comparer faceapi.Comparer, workers int) *Matcher {
	var s Strategy = Sequential{}
	if workers > 1 {
		s = Parallel{Workers: workers}
	}
	return &Matcher{comparer: comparer, strategy: s}
}

// Match compares live against every entry and returns the highest-scoring
// positive verdict. On equal scores the entry earlier in gallery order
// wins. Individual comparison failures are skipped; only when every
// comparison fails does Match return ErrServiceUnavailable.
func (m *Matcher) Match(ctx context.Context, live []float64, entries []gallery.Entry) (Result, error) {
	if len(entries) == 0 {
		return Result{}, nil
	}

	verdicts := m.strategy.Sweep(ctx, m.comparer, live, entries)

	res := Result{Similarity: -1}
	log := logging.Component("match")
	for i, v := range verdicts {
		res.Compared++
		if v.err != nil {
			res.Failed++
			log.WithError(v.err).WithFields(logging.Fields{"email": entries[i].Email}).Warn("comparison failed, skipping entry")
			continue
		}
		if !v.cmp.Match {
			if !res.Matched && v.cmp.Similarity > res.Similarity {
				res.Similarity = v.cmp.Similarity
			}
			continue
		}
		if !res.Matched || v.cmp.Similarity > res.Similarity {
			res.Matched = true
			res.Email = entries[i].Email
			res.Name = entries[i].Name
			res.Similarity = v.cmp.Similarity
		}
	}

	if res.Failed == res.Compared {
		return Result{}, fmt.Errorf("%w: all %d comparisons failed", ErrServiceUnavailable, res.Compared)
	}
	if res.Similarity < 0 {
		res.Similarity = 0
	}
	return res, nil
}

// Sequential sweeps the gallery one entry at a time, in order.
type Sequential struct{}

func (Sequential) Sweep(ctx context.Context, cmp faceapi.Comparer, live []float64, entries []gallery.Entry) []verdict {
	out := make([]verdict, len(entries))
	for i, e := range entries {
		c, err := cmp.Compare(ctx, live, e.Embedding)
		out[i] = verdict{cmp: c, err: err}
	}
	return out
}

// Parallel sweeps the gallery with a bounded worker pool. Verdicts stay
// index-aligned, so the result is identical to a sequential sweep.
type Parallel struct {
	Workers int
}

func (p Parallel) Sweep(ctx context.Context, cmp faceapi.Comparer, live []float64, entries []gallery.Entry) []verdict {
	out := make([]verdict, len(entries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c, err := cmp.Compare(ctx, live, entries[i].Embedding)
				out[i] = verdict{cmp: c, err: err}
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}
