package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/papertrail/papertrail/internal/model"
)

const (
	// maxClaimsPerPage caps what a single page may contribute even when
	// the model ignores the prompt's limit.
	maxClaimsPerPage = 8
	// maxClaimChars is the hard ceiling on claim text length.
	maxClaimChars = 280

	extractMaxTokens = 800
	extractAttempts  = 3
	extractBaseDelay = 200 * time.Millisecond
)

// ExtractClaims asks the model for the factual claims on one page and
// normalizes the NDJSON answer. The call retries transient failures with
// jittered exponential backoff inside a 60s overall budget.
func (c *Client) ExtractClaims(ctx context.Context, apiKey string, pageNumber int, pageText string) ([]model.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	user := fmt.Sprintf("Page %d text:\n%s\n\nReturn claim objects as NDJSON lines.", pageNumber, pageText)

	start := time.Now()
	raw, err := retry.DoWithData(
		func() (string, error) {
			out, err := c.complete(ctx, apiKey, extractSystemPrompt, user, extractMaxTokens)
			if err != nil && !retryable(err) {
				return "", retry.Unrecoverable(err)
			}
			return out, err
		},
		retry.Context(ctx),
		retry.Attempts(extractAttempts),
		retry.Delay(extractBaseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(extractBaseDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", pageNumber, err)
	}

	claims := parseClaimLines(raw, pageNumber)
	c.logger.Info("extracted claims", "page", pageNumber, "count", len(claims),
		"duration_ms", time.Since(start).Milliseconds())
	return claims, nil
}

// parseClaimLines decodes NDJSON claim lines, dropping blanks, code fences,
// and malformed trailing lines (common when model output truncates).
func parseClaimLines(raw string, pageNumber int) []model.Claim {
	var out []model.Claim
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		var parsed struct {
			ID     string `json:"id"`
			Text   string `json:"text"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		text := truncateAtWord(strings.TrimSpace(parsed.Text), maxClaimChars)
		if text == "" {
			continue
		}
		claim := model.Claim{
			ID:     strings.TrimSpace(parsed.ID),
			Text:   text,
			Status: normalizeStatus(parsed.Status),
		}
		if claim.ID == "" {
			claim.ID = fmt.Sprintf("p%d_%d", pageNumber, len(out)+1)
		}
		out = append(out, claim)
		if len(out) == maxClaimsPerPage {
			break
		}
	}
	return out
}

func normalizeStatus(s string) model.ClaimStatus {
	switch model.ClaimStatus(strings.TrimSpace(s)) {
	case model.StatusCited:
		return model.StatusCited
	case model.StatusWeaklyCited:
		return model.StatusWeaklyCited
	default:
		return model.StatusUncited
	}
}

// truncateAtWord cuts s to at most max bytes, backing up to the previous
// word boundary when the cut lands mid-word.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
