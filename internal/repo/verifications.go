package repo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/papertrail/papertrail/internal/kv"
	"github.com/papertrail/papertrail/internal/model"
)

// Verifications stores one verdict record per (jobId, claimId).
// Re-verifying the same claim overwrites the previous record.
type Verifications struct {
	kv     *kv.Store
	logger *slog.Logger
}

// NewVerifications creates the verification repository.
func NewVerifications(store *kv.Store, logger *slog.Logger) *Verifications {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifications{kv: store, logger: logger.With("repo", "verify")}
}

func verifyKey(jobID, claimID string) string {
	return verifyPrefix + jobID + ":" + claimID
}

// Set persists a verification result, last write wins.
func (r *Verifications) Set(ctx context.Context, jobID string, result model.VerifyClaimResponse) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.kv.SetBytes(ctx, verifyKey(jobID, result.ClaimID), payload)
}

// Get returns the stored verification, or nil when absent or corrupt.
func (r *Verifications) Get(ctx context.Context, jobID, claimID string) (*model.VerifyClaimResponse, error) {
	raw, ok, err := r.kv.GetBytes(ctx, verifyKey(jobID, claimID))
	if err != nil || !ok {
		return nil, err
	}
	var res model.VerifyClaimResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		r.logger.Warn("skipping corrupt verification record", "job_id", jobID, "claim_id", claimID, "error", err)
		return nil, nil
	}
	return &res, nil
}
