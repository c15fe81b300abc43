package model

// ValidateKeyRequest is the body of POST /api/v1/validate-api-key.
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKeyResponse acknowledges a usable upstream credential.
type ValidateKeyResponse struct {
	OK bool `json:"ok"`
}

// UploadPaperResponse returns the job handle for a freshly stored PDF.
type UploadPaperResponse struct {
	JobID string `json:"jobId"`
}

// StreamClaimsRequest is the body of POST /api/v1/stream-claim.
type StreamClaimsRequest struct {
	JobID  string `json:"jobId"`
	APIKey string `json:"apiKey"`
}

// VerifyClaimResponse is both the HTTP response of POST /api/v1/verify-claim
// and the record persisted per (jobId, claimId).
type VerifyClaimResponse struct {
	ClaimID     string     `json:"claimId"`
	Verdict     Verdict    `json:"verdict"`
	Confidence  float64    `json:"confidence"`
	ReasoningMd string     `json:"reasoningMd"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// SuggestCitationsRequest is the body of POST /api/v1/suggest-citations.
type SuggestCitationsRequest struct {
	ClaimText string `json:"claimText"`
}

// CitationCandidate is one paper returned by the citation search proxy.
type CitationCandidate struct {
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	Year    int    `json:"year,omitempty"`
	URL     string `json:"url"`
}

// SuggestCitationsResponse lists candidate citations for a claim.
type SuggestCitationsResponse struct {
	Suggestions []CitationCandidate `json:"suggestions"`
}
