// Package model holds the wire types shared by the repositories, the
// stream orchestrator, and the HTTP layer.
package model

// ClaimStatus is the citation-status heuristic attached at extraction time.
type ClaimStatus string

const (
	StatusCited       ClaimStatus = "cited"
	StatusWeaklyCited ClaimStatus = "weakly_cited"
	StatusUncited     ClaimStatus = "uncited"
)

// Verdict is the outcome of checking a claim against a cited source PDF.
type Verdict string

const (
	VerdictSupported          Verdict = "supported"
	VerdictPartiallySupported Verdict = "partially_supported"
	VerdictUnsupported        Verdict = "unsupported"

	// VerdictSkipped is reserved; no server path writes it today.
	VerdictSkipped Verdict = "skipped"
)

// Suggestion is a candidate citation for an uncited claim.
type Suggestion struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Venue string `json:"venue,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Evidence is a single excerpt retrieved from a cited source PDF.
type Evidence struct {
	PaperTitle string `json:"paperTitle"`
	Page       int    `json:"page,omitempty"`
	Section    string `json:"section,omitempty"`
	Paragraph  int    `json:"paragraph,omitempty"`
	Excerpt    string `json:"excerpt"`
}

// Claim is a short factual statement extracted from one paper page.
// Buffered claims are never mutated in place; verification results are
// overlaid onto a copy at emission time (see Overlay).
type Claim struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Status         ClaimStatus  `json:"status"`
	Verdict        Verdict      `json:"verdict,omitempty"`
	Confidence     *float64     `json:"confidence,omitempty"`
	ReasoningMd    string       `json:"reasoningMd,omitempty"`
	Suggestions    []Suggestion `json:"suggestions,omitempty"`
	Evidence       []Evidence   `json:"evidence,omitempty"`
	SourceUploaded bool         `json:"sourceUploaded"`
}

// Overlay returns a copy of the claim with a stored verification merged in.
// The receiver is left untouched.
func (c Claim) Overlay(v *VerifyClaimResponse) Claim {
	if v == nil {
		return c
	}
	merged := c
	merged.Verdict = v.Verdict
	merged.Confidence = &v.Confidence
	merged.ReasoningMd = v.ReasoningMd
	merged.SourceUploaded = true
	if len(v.Evidence) > 0 {
		merged.Evidence = v.Evidence
	}
	return merged
}
