package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papertrail/papertrail/internal/anthropic"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/pdftext"
)

// DefaultTopK is the number of evidence excerpts retrieved per claim.
const DefaultTopK = 4

const (
	promptExcerptWords   = 140
	evidenceExcerptWords = 100
)

// Adjudicator is the LLM boundary for verification.
type Adjudicator interface {
	Verify(ctx context.Context, apiKey, claim string, excerpts []string) (anthropic.VerifyResult, error)
}

// Pipeline runs chunk -> embed -> retrieve -> adjudicate for one claim.
type Pipeline struct {
	embedder Embedder
	llm      Adjudicator
	logger   *slog.Logger
}

// NewPipeline wires the pipeline.
func NewPipeline(embedder Embedder, llm Adjudicator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{embedder: embedder, llm: llm, logger: logger.With("component", "verify")}
}

// Run verifies claimText against the uploaded source PDF and returns the
// adjudication plus the evidence excerpts shown to the model.
func (p *Pipeline) Run(ctx context.Context, apiKey, claimText string, sourcePDF []byte, k int) (anthropic.VerifyResult, []model.Evidence, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	start := time.Now()

	chunks := pdftext.ExtractChunks(sourcePDF, pdftext.DefaultChunkChars)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return anthropic.VerifyResult{}, nil, fmt.Errorf("embed chunks: %w", err)
	}
	queryVec, err := p.embedder.Embed(ctx, []string{claimText})
	if err != nil || len(queryVec) == 0 {
		return anthropic.VerifyResult{}, nil, fmt.Errorf("embed claim: %w", err)
	}

	index := NewIndex(vectors)
	hits := index.TopK(queryVec[0], k)
	top := make([]pdftext.Chunk, 0, len(hits))
	for _, hit := range hits {
		top = append(top, chunks[hit.Row])
	}
	p.logger.Info("retrieved evidence", "chunks", len(chunks), "k", len(top),
		"duration_ms", time.Since(start).Milliseconds())

	result, err := p.llm.Verify(ctx, apiKey, claimText, packForPrompt(top))
	if err != nil {
		return anthropic.VerifyResult{}, nil, err
	}
	return result, evidenceItems(top), nil
}

// packForPrompt renders chunks as compact page-tagged excerpts.
func packForPrompt(chunks []pdftext.Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		out = append(out, fmt.Sprintf("[page %d]\n%s", ch.Page, clipWords(ch.Text, promptExcerptWords)))
	}
	return out
}

// evidenceItems converts chunks into API-facing evidence with bounded
// excerpt length. The paper title is filled in by the caller.
func evidenceItems(chunks []pdftext.Chunk) []model.Evidence {
	out := make([]model.Evidence, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		out = append(out, model.Evidence{
			Page:      ch.Page,
			Section:   ch.Section,
			Paragraph: ch.Paragraph,
			Excerpt:   clipWords(ch.Text, evidenceExcerptWords),
		})
	}
	return out
}

// clipWords trims text to at most maxWords whitespace-separated tokens,
// adding an ellipsis when trimming occurs.
func clipWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + " …"
}
