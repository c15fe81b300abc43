package anthropic

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/papertrail/papertrail/internal/model"
)

const verifyMaxTokens = 400

// VerifyResult is the normalized adjudication of one claim against the
// retrieved evidence excerpts.
type VerifyResult struct {
	Verdict     model.Verdict
	Confidence  float64
	ReasoningMd string
}

// Verify asks the model to judge a claim against numbered evidence excerpts.
// The answer is expected to be a single JSON object; anything unparseable
// degrades to an unsupported verdict rather than an error.
func (c *Client) Verify(ctx context.Context, apiKey, claim string, excerpts []string) (VerifyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	joined := "(no evidence)"
	if len(excerpts) > 0 {
		joined = strings.Join(excerpts, "\n\n---\n\n")
	}
	user := "CLAIM:\n" + claim + "\n\nEVIDENCE EXCERPTS:\n" + joined + "\n\nReturn JSON only."

	start := time.Now()
	raw, err := c.complete(ctx, apiKey, verifySystemPrompt, user, verifyMaxTokens)
	if err != nil {
		return VerifyResult{}, err
	}

	result := parseVerifyResult(raw)
	c.logger.Info("verify result", "verdict", result.Verdict, "confidence", result.Confidence,
		"k", len(excerpts), "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func parseVerifyResult(raw string) VerifyResult {
	raw = stripCodeFence(strings.TrimSpace(raw))

	var parsed struct {
		Verdict     string  `json:"verdict"`
		Confidence  float64 `json:"confidence"`
		ReasoningMd string  `json:"reasoningMd"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return VerifyResult{
			Verdict:     model.VerdictUnsupported,
			Confidence:  0.5,
			ReasoningMd: "Unable to parse verifier output.",
		}
	}

	verdict := model.Verdict(strings.ToLower(strings.TrimSpace(parsed.Verdict)))
	switch verdict {
	case model.VerdictSupported, model.VerdictPartiallySupported, model.VerdictUnsupported:
	default:
		verdict = model.VerdictUnsupported
	}

	return VerifyResult{
		Verdict:     verdict,
		Confidence:  clamp01(parsed.Confidence),
		ReasoningMd: strings.TrimSpace(parsed.ReasoningMd),
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	if strings.HasPrefix(s, "json") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
