package repo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/papertrail/papertrail/internal/kv"
	"github.com/papertrail/papertrail/internal/model"
)

// ClaimBuffer is the ordered per-job replay log of extracted claims.
// Claims are appended before they are emitted on the wire; on reconnect
// the whole list is replayed in insertion order.
type ClaimBuffer struct {
	kv     *kv.Store
	logger *slog.Logger
}

// NewClaimBuffer creates the claim buffer repository.
func NewClaimBuffer(store *kv.Store, logger *slog.Logger) *ClaimBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimBuffer{kv: store, logger: logger.With("repo", "claims")}
}

func claimsKey(jobID string) string {
	return claimsPrefix + jobID
}

// Append adds a claim to the end of the job's buffer and refreshes the TTL.
func (r *ClaimBuffer) Append(ctx context.Context, jobID string, claim model.Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return err
	}
	return r.kv.RPush(ctx, claimsKey(jobID), payload)
}

// All returns the buffered claims in insertion order. Malformed entries are
// logged and skipped so one bad record cannot break replay.
func (r *ClaimBuffer) All(ctx context.Context, jobID string) ([]model.Claim, error) {
	vals, err := r.kv.LRange(ctx, claimsKey(jobID))
	if err != nil {
		return nil, err
	}
	out := make([]model.Claim, 0, len(vals))
	for _, raw := range vals {
		var c model.Claim
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			r.logger.Warn("skipping malformed buffered claim", "job_id", jobID, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Clear drops the whole buffer for a job.
func (r *ClaimBuffer) Clear(ctx context.Context, jobID string) (int64, error) {
	return r.kv.Del(ctx, claimsKey(jobID))
}

// Touch refreshes the buffer TTL during active sessions.
func (r *ClaimBuffer) Touch(ctx context.Context, jobID string) (bool, error) {
	return r.kv.Touch(ctx, claimsKey(jobID))
}
