package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/papertrail/papertrail/internal/extract"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/pdftext"
	"github.com/papertrail/papertrail/internal/repo"
	"github.com/papertrail/papertrail/internal/testutil"
)

// scriptedExtractor returns preconfigured claims per page. Pages listed in
// block wait for context cancellation, simulating a slow upstream.
type scriptedExtractor struct {
	claims map[int][]model.Claim
	fail   map[int]bool
	block  map[int]bool
	calls  atomic.Int32
}

func (s *scriptedExtractor) ExtractClaims(ctx context.Context, apiKey string, pageNumber int, pageText string) ([]model.Claim, error) {
	s.calls.Add(1)
	if s.block[pageNumber] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.fail[pageNumber] {
		return nil, fmt.Errorf("page %d unavailable", pageNumber)
	}
	return s.claims[pageNumber], nil
}

type fixture struct {
	jobs          *repo.Jobs
	buffer        *repo.ClaimBuffer
	verifications *repo.Verifications
	blobs         *repo.Blobs
	extractor     *scriptedExtractor
	orch          *Orchestrator
}

func newFixture(t *testing.T, pages []pdftext.Page, extractor *scriptedExtractor) *fixture {
	t.Helper()
	store, _ := testutil.NewStore(t, time.Hour)
	f := &fixture{
		jobs:          repo.NewJobs(store, nil),
		buffer:        repo.NewClaimBuffer(store, nil),
		verifications: repo.NewVerifications(store, nil),
		blobs:         repo.NewBlobs(store),
		extractor:     extractor,
	}
	f.orch = New(Config{
		Jobs:          f.jobs,
		Buffer:        f.buffer,
		Verifications: f.verifications,
		Blobs:         f.blobs,
		Pool:          extract.NewPool(extractor, 2, nil),
		ReadPages:     func([]byte) []pdftext.Page { return pages },
	})
	return f
}

type recEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func collect(t *testing.T, ch <-chan []byte) []recEvent {
	t.Helper()
	var out []recEvent
	deadline := time.After(10 * time.Second)
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return out
			}
			var ev recEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				t.Fatalf("bad NDJSON line %q: %v", line, err)
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("stream did not close in time")
		}
	}
}

func claimsOf(t *testing.T, events []recEvent) []model.Claim {
	t.Helper()
	var out []model.Claim
	for _, ev := range events {
		if ev.Type != "claim" {
			continue
		}
		var c model.Claim
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			t.Fatalf("bad claim payload: %v", err)
		}
		out = append(out, c)
	}
	return out
}

func progressOf(t *testing.T, events []recEvent) []model.ProgressSnapshot {
	t.Helper()
	var out []model.ProgressSnapshot
	for _, ev := range events {
		if ev.Type != "progress" {
			continue
		}
		var p model.ProgressSnapshot
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			t.Fatalf("bad progress payload: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func pageClaim(page, n int) model.Claim {
	return model.Claim{
		ID:     fmt.Sprintf("p%d_%d", page, n),
		Text:   fmt.Sprintf("claim %d on page %d", n, page),
		Status: model.StatusUncited,
	}
}

func twoPages() []pdftext.Page {
	return []pdftext.Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "second page"},
	}
}

func TestStreamUnknownJob(t *testing.T) {
	f := newFixture(t, nil, &scriptedExtractor{})

	events := collect(t, f.orch.Stream(context.Background(), "no-such-job", "sk-test"))
	if len(events) != 2 {
		t.Fatalf("got %d events, want error+done: %+v", len(events), events)
	}
	if events[0].Type != "error" {
		t.Errorf("first event = %q, want error", events[0].Type)
	}
	if events[1].Type != "done" {
		t.Errorf("last event = %q, want done", events[1].Type)
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if payload.Message != "Unknown or expired jobId" {
		t.Errorf("message = %q", payload.Message)
	}
}

func TestStreamFreshJob(t *testing.T) {
	extractor := &scriptedExtractor{claims: map[int][]model.Claim{
		1: {pageClaim(1, 1), pageClaim(1, 2)},
		2: {pageClaim(2, 1)},
	}}
	f := newFixture(t, twoPages(), extractor)
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobStreaming)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.PutPDF(ctx, job.ID, []byte("pdf")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))

	if events[len(events)-1].Type != "done" {
		t.Fatalf("last event = %q, want done", events[len(events)-1].Type)
	}

	claims := claimsOf(t, events)
	if len(claims) != 3 {
		t.Fatalf("got %d claim events, want 3", len(claims))
	}

	progress := progressOf(t, events)
	// Parse ladder 0..2 plus one extract event per page.
	var parse, extracted []model.ProgressSnapshot
	for _, p := range progress {
		if p.Phase == model.PhaseParse {
			parse = append(parse, p)
		} else {
			extracted = append(extracted, p)
		}
	}
	if len(parse) != 3 {
		t.Errorf("got %d parse progress events, want 3", len(parse))
	}
	if len(extracted) != 2 {
		t.Errorf("got %d extract progress events, want 2", len(extracted))
	}
	last := extracted[len(extracted)-1]
	if last.Processed != 2 || last.Total != 2 {
		t.Errorf("final extract progress = %d/%d, want 2/2", last.Processed, last.Total)
	}

	// The job is now terminal and its claims are buffered for replay.
	got, err := f.jobs.Get(ctx, job.ID)
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.JobFinished {
		t.Errorf("job status = %q, want finished", got.Status)
	}
	buffered, err := f.buffer.All(ctx, job.ID)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(buffered) != 3 {
		t.Errorf("buffer holds %d claims, want 3", len(buffered))
	}
}

func TestStreamFinishedJobNeverExtracts(t *testing.T) {
	extractor := &scriptedExtractor{claims: map[int][]model.Claim{1: {pageClaim(1, 1)}}}
	f := newFixture(t, twoPages(), extractor)
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobFinished)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.PutPDF(ctx, job.ID, []byte("pdf")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}
	for _, c := range []model.Claim{pageClaim(1, 1), pageClaim(2, 1)} {
		if err := f.buffer.Append(ctx, job.ID, c); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))

	if got := extractor.calls.Load(); got != 0 {
		t.Fatalf("extractor called %d times for a finished job, want 0", got)
	}
	claims := claimsOf(t, events)
	if len(claims) != 2 {
		t.Fatalf("got %d replayed claims, want 2", len(claims))
	}
	if events[len(events)-1].Type != "done" {
		t.Errorf("last event = %q, want done", events[len(events)-1].Type)
	}
}

func TestStreamReconnectSkipsBufferedClaims(t *testing.T) {
	extractor := &scriptedExtractor{claims: map[int][]model.Claim{
		1: {pageClaim(1, 1)},
		2: {pageClaim(2, 1)},
	}}
	f := newFixture(t, twoPages(), extractor)
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobStreaming)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.PutPDF(ctx, job.ID, []byte("pdf")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}
	// First connection got through page 1 before dropping.
	if err := f.buffer.Append(ctx, job.ID, pageClaim(1, 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := f.jobs.SavePhaseProgress(ctx, job.ID, model.PhaseExtract, 1, 2); err != nil {
		t.Fatalf("SavePhaseProgress failed: %v", err)
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))

	// Snapshot first.
	if events[0].Type != "progress" {
		t.Fatalf("first event = %q, want snapshot progress", events[0].Type)
	}

	claims := claimsOf(t, events)
	seen := make(map[string]int)
	for _, c := range claims {
		seen[c.ID]++
	}
	if seen["p1_1"] != 1 {
		t.Errorf("claim p1_1 emitted %d times, want exactly 1 (replay only)", seen["p1_1"])
	}
	if seen["p2_1"] != 1 {
		t.Errorf("claim p2_1 emitted %d times, want 1", seen["p2_1"])
	}

	// No parse ladder on an extract-phase resume, and processed never
	// exceeds total.
	for _, p := range progressOf(t, events) {
		if p.Phase == model.PhaseParse {
			t.Error("parse progress emitted on an extract-phase resume")
		}
		if p.Processed > p.Total {
			t.Errorf("progress %d/%d exceeds total", p.Processed, p.Total)
		}
	}

	snap, err := f.jobs.GetProgressSnapshot(ctx, job.ID)
	if err != nil || snap == nil {
		t.Fatalf("snapshot read failed: %v", err)
	}
	if snap.Processed != 2 || snap.Total != 2 {
		t.Errorf("final snapshot = %d/%d, want 2/2", snap.Processed, snap.Total)
	}
	if events[len(events)-1].Type != "done" {
		t.Errorf("last event = %q, want done", events[len(events)-1].Type)
	}
}

func TestStreamReplaysVerificationOverlay(t *testing.T) {
	f := newFixture(t, twoPages(), &scriptedExtractor{})
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobFinished)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	claim := pageClaim(1, 1)
	if err := f.buffer.Append(ctx, job.ID, claim); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := f.verifications.Set(ctx, job.ID, model.VerifyClaimResponse{
		ClaimID:     claim.ID,
		Verdict:     model.VerdictSupported,
		Confidence:  0.9,
		ReasoningMd: "Backed by the source.",
	}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))
	claims := claimsOf(t, events)
	if len(claims) != 1 {
		t.Fatalf("got %d claims, want 1", len(claims))
	}
	got := claims[0]
	if got.Verdict != model.VerdictSupported {
		t.Errorf("verdict = %q, want supported", got.Verdict)
	}
	if got.Confidence == nil || *got.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", got.Confidence)
	}
	if !got.SourceUploaded {
		t.Error("sourceUploaded not set on overlaid claim")
	}

	// The buffered record itself stays unverified.
	buffered, err := f.buffer.All(ctx, job.ID)
	if err != nil || len(buffered) != 1 {
		t.Fatalf("All failed: %v (%d claims)", err, len(buffered))
	}
	if buffered[0].Verdict != "" {
		t.Errorf("buffered claim verdict = %q, want empty", buffered[0].Verdict)
	}
}

func TestStreamPageFailureStillFinishes(t *testing.T) {
	extractor := &scriptedExtractor{
		claims: map[int][]model.Claim{2: {pageClaim(2, 1)}},
		fail:   map[int]bool{1: true},
	}
	f := newFixture(t, twoPages(), extractor)
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobStreaming)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.PutPDF(ctx, job.ID, []byte("pdf")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))

	claims := claimsOf(t, events)
	if len(claims) != 1 || claims[0].ID != "p2_1" {
		t.Fatalf("claims = %+v, want only p2_1", claims)
	}
	progress := progressOf(t, events)
	last := progress[len(progress)-1]
	if last.Processed != 2 || last.Total != 2 {
		t.Errorf("final progress = %d/%d, want 2/2", last.Processed, last.Total)
	}
	if events[len(events)-1].Type != "done" {
		t.Errorf("last event = %q, want done", events[len(events)-1].Type)
	}
}

func TestStreamMissingBlobEndsCleanly(t *testing.T) {
	extractor := &scriptedExtractor{}
	f := newFixture(t, twoPages(), extractor)
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, model.JobStreaming)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	events := collect(t, f.orch.Stream(ctx, job.ID, "sk-test"))
	if len(events) != 1 || events[0].Type != "done" {
		t.Fatalf("events = %+v, want a lone done", events)
	}
	if got := extractor.calls.Load(); got != 0 {
		t.Errorf("extractor called %d times without a blob", got)
	}
}

func TestStreamClientDisconnectKeepsBuffer(t *testing.T) {
	extractor := &scriptedExtractor{
		claims: map[int][]model.Claim{1: {pageClaim(1, 1)}},
		block:  map[int]bool{2: true},
	}
	f := newFixture(t, twoPages(), extractor)

	job, err := f.jobs.Create(context.Background(), model.JobStreaming)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.PutPDF(context.Background(), job.ID, []byte("pdf")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := f.orch.Stream(ctx, job.ID, "sk-test")

	sawClaim := false
	deadline := time.After(10 * time.Second)
	var events []recEvent
	for !sawClaim {
		select {
		case line, ok := <-ch:
			if !ok {
				t.Fatal("stream closed before any claim")
			}
			var ev recEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				t.Fatalf("bad line: %v", err)
			}
			events = append(events, ev)
			if ev.Type == "claim" {
				sawClaim = true
			}
		case <-deadline:
			t.Fatal("no claim event before deadline")
		}
	}
	cancel()

	for line := range ch {
		var ev recEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		events = append(events, ev)
	}
	if events[len(events)-1].Type == "done" {
		t.Error("done emitted despite client disconnect")
	}

	// The job stays resumable.
	got, err := f.jobs.Get(context.Background(), job.ID)
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status == model.JobFinished {
		t.Error("job marked finished after a disconnect")
	}
	buffered, err := f.buffer.All(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(buffered) == 0 {
		t.Error("buffer lost the claims emitted before disconnect")
	}
}
