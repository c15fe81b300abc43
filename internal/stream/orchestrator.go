// Package stream implements the per-job state machine behind the
// stream-claim endpoint: snapshot, replay, terminal short-circuit, then
// resumed extraction, all emitted as NDJSON events ending in done.
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/papertrail/papertrail/internal/extract"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/pdftext"
	"github.com/papertrail/papertrail/internal/repo"
)

// unknownJobMessage is the client-facing text for an absent or expired job.
const unknownJobMessage = "Unknown or expired jobId"

// Config wires the orchestrator's collaborators.
type Config struct {
	Jobs          *repo.Jobs
	Buffer        *repo.ClaimBuffer
	Verifications *repo.Verifications
	Blobs         *repo.Blobs
	Pool          *extract.Pool

	// ReadPages overrides PDF parsing; nil means pdftext.ExtractPages.
	ReadPages func([]byte) []pdftext.Page

	Logger *slog.Logger
}

// Orchestrator produces the NDJSON event stream for one job at a time.
type Orchestrator struct {
	jobs          *repo.Jobs
	buffer        *repo.ClaimBuffer
	verifications *repo.Verifications
	blobs         *repo.Blobs
	pool          *extract.Pool
	readPages     func([]byte) []pdftext.Page
	logger        *slog.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	readPages := cfg.ReadPages
	if readPages == nil {
		readPages = pdftext.ExtractPages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:          cfg.Jobs,
		buffer:        cfg.Buffer,
		verifications: cfg.Verifications,
		blobs:         cfg.Blobs,
		pool:          cfg.Pool,
		readPages:     readPages,
		logger:        logger.With("component", "stream"),
	}
}

// Stream returns a channel of NDJSON lines for the job. The channel is
// closed after the terminal done event, or early when ctx is cancelled.
// Cancellation propagates into any in-flight extraction.
func (o *Orchestrator) Stream(ctx context.Context, jobID, apiKey string) <-chan []byte {
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		o.run(ctx, jobID, apiKey, out)
	}()
	return out
}

// emitter serializes event emission onto the output channel. Since every
// event passes through here on the producer goroutine, a page's claim
// events always precede that page's progress event.
type emitter struct {
	ctx    context.Context
	out    chan<- []byte
	logger *slog.Logger
}

// send pushes one event; false means the client is gone.
func (e *emitter) send(ev model.Event) bool {
	line, err := Line(ev)
	if err != nil {
		e.logger.Error("failed to encode stream event", "type", ev.Type, "error", err)
		return true
	}
	select {
	case e.out <- line:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (o *Orchestrator) run(ctx context.Context, jobID, apiKey string, out chan<- []byte) {
	em := &emitter{ctx: ctx, out: out, logger: o.logger}
	logger := o.logger.With("job_id", jobID)

	// S0: resolve the job.
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		logger.Error("job lookup failed", "error", err)
		em.send(model.ErrorEvent(unknownJobMessage))
		em.send(model.DoneEvent())
		return
	}
	if job == nil {
		em.send(model.ErrorEvent(unknownJobMessage))
		em.send(model.DoneEvent())
		return
	}

	// S1: emit the latest snapshot, if any.
	snap, err := o.jobs.GetProgressSnapshot(ctx, jobID)
	if err != nil {
		logger.Warn("snapshot read failed", "error", err)
		snap = nil
	}
	if snap != nil {
		if !em.send(model.ProgressEvent(*snap)) {
			return
		}
	}

	// S2: replay buffered claims with verification overlays.
	buffered, err := o.buffer.All(ctx, jobID)
	if err != nil {
		logger.Error("buffer replay failed", "error", err)
		em.send(model.ErrorEvent("Stream replay failed"))
		em.send(model.DoneEvent())
		return
	}
	for _, claim := range buffered {
		if _, err := o.buffer.Touch(ctx, jobID); err != nil {
			logger.Warn("buffer touch failed", "error", err)
		}
		if !em.send(model.ClaimEvent(o.overlay(ctx, jobID, claim))) {
			return
		}
	}

	// S3: a finished job never re-enters extraction.
	if job.Status == model.JobFinished {
		em.send(model.DoneEvent())
		return
	}

	// S4: re-parse the stored PDF.
	pdfBytes, err := o.blobs.GetPDF(ctx, jobID)
	if err != nil {
		logger.Error("blob read failed", "error", err)
		em.send(model.DoneEvent())
		return
	}
	if len(pdfBytes) == 0 {
		em.send(model.DoneEvent())
		return
	}
	pages := o.readPages(pdfBytes)
	if len(pages) == 0 {
		em.send(model.DoneEvent())
		return
	}

	// S5: resume extraction, skipping claims already buffered.
	skipIDs := make(map[string]struct{}, len(buffered))
	for _, c := range buffered {
		skipIDs[c.ID] = struct{}{}
	}
	emitParse := snap == nil || snap.Phase != model.PhaseExtract
	extractStart := 0
	if snap != nil && snap.Phase == model.PhaseExtract {
		extractStart = snap.Processed
	}

	total := len(pages)
	if emitParse {
		// The parse ladder announces the boundary of parsing that already
		// happened above; it performs no per-step I/O of its own.
		for i := 0; i <= total; i++ {
			if err := o.jobs.SavePhaseProgress(ctx, jobID, model.PhaseParse, i, total); err != nil {
				logger.Warn("parse progress write failed", "error", err)
			}
			if !em.send(progressEvent(model.PhaseParse, i, total)) {
				return
			}
		}
	}

	finished := extractStart
	for res := range o.pool.Run(ctx, apiKey, pages) {
		if _, err := o.jobs.Touch(ctx, jobID); err != nil {
			logger.Warn("job touch failed", "error", err)
		}

		newClaims := 0
		for _, claim := range res.Claims {
			if _, dup := skipIDs[claim.ID]; dup {
				continue
			}
			skipIDs[claim.ID] = struct{}{}
			newClaims++
			if err := o.buffer.Append(ctx, jobID, claim); err != nil {
				logger.Error("buffer append failed", "claim_id", claim.ID, "error", err)
				continue
			}
			if !em.send(model.ClaimEvent(o.overlay(ctx, jobID, claim))) {
				return
			}
		}

		// A page whose claims were all replayed earlier was already counted
		// in the snapshot we resumed from; counting it again would push
		// processed past total.
		if len(res.Claims) > 0 && newClaims == 0 {
			continue
		}
		if finished < total {
			finished++
		}
		if err := o.jobs.SavePhaseProgress(ctx, jobID, model.PhaseExtract, finished, total); err != nil {
			logger.Warn("extract progress write failed", "error", err)
		}
		if !em.send(progressEvent(model.PhaseExtract, finished, total)) {
			return
		}
	}
	if ctx.Err() != nil {
		// Client went away mid-extraction; buffered claims survive for the
		// next connection to replay.
		return
	}

	if err := o.jobs.SetStatus(ctx, jobID, model.JobFinished); err != nil {
		logger.Error("failed to mark job finished", "error", err)
	}
	em.send(model.DoneEvent())
}

// overlay merges a stored verification onto the claim copy that is about to
// be emitted. The buffered claim is never rewritten.
func (o *Orchestrator) overlay(ctx context.Context, jobID string, claim model.Claim) model.Claim {
	saved, err := o.verifications.Get(ctx, jobID, claim.ID)
	if err != nil {
		o.logger.Warn("verification lookup failed", "job_id", jobID, "claim_id", claim.ID, "error", err)
		return claim
	}
	return claim.Overlay(saved)
}

func progressEvent(phase model.Phase, processed, total int) model.Event {
	return model.ProgressEvent(model.ProgressSnapshot{
		Phase:     phase,
		Processed: processed,
		Total:     total,
		TS:        time.Now().Unix(),
	})
}
