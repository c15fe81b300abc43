// Package service wires the upload, stream, verify, and validation use
// cases over the repositories, the orchestrator, and the verification
// pipeline.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papertrail/papertrail/internal/anthropic"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/repo"
	"github.com/papertrail/papertrail/internal/stream"
	"github.com/papertrail/papertrail/internal/verify"
)

// Paper is the facade behind the paper endpoints.
type Paper struct {
	jobs          *repo.Jobs
	buffer        *repo.ClaimBuffer
	verifications *repo.Verifications
	blobs         *repo.Blobs
	orchestrator  *stream.Orchestrator
	pipeline      *verify.Pipeline
	llm           *anthropic.Client
	logger        *slog.Logger
}

// PaperConfig wires the facade's collaborators.
type PaperConfig struct {
	Jobs          *repo.Jobs
	Buffer        *repo.ClaimBuffer
	Verifications *repo.Verifications
	Blobs         *repo.Blobs
	Orchestrator  *stream.Orchestrator
	Pipeline      *verify.Pipeline
	LLM           *anthropic.Client
	Logger        *slog.Logger
}

// NewPaper creates the paper service.
func NewPaper(cfg PaperConfig) *Paper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Paper{
		jobs:          cfg.Jobs,
		buffer:        cfg.Buffer,
		verifications: cfg.Verifications,
		blobs:         cfg.Blobs,
		orchestrator:  cfg.Orchestrator,
		pipeline:      cfg.Pipeline,
		llm:           cfg.LLM,
		logger:        logger.With("component", "paper"),
	}
}

// CreateJobForFile registers a fresh streaming job for the uploaded PDF,
// clears any stale buffer under the new id, and stores the blob.
func (p *Paper) CreateJobForFile(ctx context.Context, data []byte) (string, error) {
	job, err := p.jobs.Create(ctx, model.JobStreaming)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if _, err := p.buffer.Clear(ctx, job.ID); err != nil {
		return "", fmt.Errorf("clear buffer: %w", err)
	}
	if err := p.blobs.PutPDF(ctx, job.ID, data); err != nil {
		return "", fmt.Errorf("store pdf: %w", err)
	}
	p.logger.Info("job created", "job_id", job.ID, "pdf_bytes", len(data))
	return job.ID, nil
}

// StreamClaims delegates to the orchestrator; see the stream package for
// the reconnect semantics.
func (p *Paper) StreamClaims(ctx context.Context, jobID, apiKey string) <-chan []byte {
	return p.orchestrator.Stream(ctx, jobID, apiKey)
}

// VerifyClaim runs the verification pipeline for one claim against the
// uploaded source PDF, persists the verdict, and returns it. When the claim
// is no longer buffered its id doubles as the claim text placeholder.
func (p *Paper) VerifyClaim(ctx context.Context, jobID, claimID, filename string, sourcePDF []byte, apiKey string) (*model.VerifyClaimResponse, error) {
	buffered, err := p.buffer.All(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("read buffer: %w", err)
	}
	claimText := claimID
	for _, c := range buffered {
		if c.ID == claimID {
			claimText = c.Text
			break
		}
	}

	result, evidence, err := p.pipeline.Run(ctx, apiKey, claimText, sourcePDF, verify.DefaultTopK)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = "Source PDF"
	}
	for i := range evidence {
		evidence[i].PaperTitle = filename
	}
	reasoning := result.ReasoningMd
	if reasoning == "" {
		reasoning = "Automated verification result."
	}

	resp := &model.VerifyClaimResponse{
		ClaimID:     claimID,
		Verdict:     result.Verdict,
		Confidence:  result.Confidence,
		ReasoningMd: reasoning,
		Evidence:    evidence,
	}
	if err := p.verifications.Set(ctx, jobID, *resp); err != nil {
		return nil, fmt.Errorf("store verification: %w", err)
	}
	return resp, nil
}

// ValidateKey checks the caller's LLM credential with a one-token ping.
func (p *Paper) ValidateKey(ctx context.Context, apiKey string) error {
	return p.llm.ValidateKey(ctx, apiKey)
}
