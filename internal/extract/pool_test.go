package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/pdftext"
)

type fakeExtractor struct {
	mu       sync.Mutex
	inflight int
	peak     int

	delay   time.Duration
	failOn  map[int]bool
	calls   atomic.Int32
	perPage func(page int) []model.Claim
}

func (f *fakeExtractor) ExtractClaims(ctx context.Context, apiKey string, pageNumber int, pageText string) ([]model.Claim, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if f.failOn[pageNumber] {
		return nil, errors.New("simulated upstream failure")
	}
	if f.perPage != nil {
		return f.perPage(pageNumber), nil
	}
	return []model.Claim{{
		ID:     fmt.Sprintf("p%d_1", pageNumber),
		Text:   fmt.Sprintf("claim from page %d", pageNumber),
		Status: model.StatusUncited,
	}}, nil
}

func makePages(n int) []pdftext.Page {
	pages := make([]pdftext.Page, n)
	for i := range pages {
		pages[i] = pdftext.Page{Number: i + 1, Text: fmt.Sprintf("text %d", i+1)}
	}
	return pages
}

func TestPoolProcessesAllPages(t *testing.T) {
	fake := &fakeExtractor{}
	pool := NewPool(fake, 4, nil)

	seen := make(map[int]bool)
	for res := range pool.Run(context.Background(), "sk-test", makePages(10)) {
		seen[res.Page.Number] = true
	}
	if len(seen) != 10 {
		t.Fatalf("got results for %d pages, want 10", len(seen))
	}
	if got := fake.calls.Load(); got != 10 {
		t.Errorf("extractor called %d times, want 10", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	fake := &fakeExtractor{delay: 20 * time.Millisecond}
	pool := NewPool(fake, 3, nil)

	for range pool.Run(context.Background(), "sk-test", makePages(12)) {
	}

	fake.mu.Lock()
	peak := fake.peak
	fake.mu.Unlock()
	if peak > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", peak)
	}
}

func TestPoolFailedPageYieldsNoClaims(t *testing.T) {
	fake := &fakeExtractor{failOn: map[int]bool{2: true}}
	pool := NewPool(fake, 2, nil)

	results := make(map[int]PageResult)
	for res := range pool.Run(context.Background(), "sk-test", makePages(3)) {
		results[res.Page.Number] = res
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[2].Err == nil {
		t.Error("failed page carries no error")
	}
	if len(results[2].Claims) != 0 {
		t.Errorf("failed page produced %d claims, want 0", len(results[2].Claims))
	}
	if len(results[1].Claims) == 0 || len(results[3].Claims) == 0 {
		t.Error("healthy pages lost their claims")
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	fake := &fakeExtractor{delay: 50 * time.Millisecond}
	pool := NewPool(fake, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := pool.Run(ctx, "sk-test", makePages(20))
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("result channel did not close after cancel")
		}
	}
}
