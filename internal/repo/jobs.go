// Package repo implements the Redis-backed stores for jobs, buffered
// claims, verification results, and uploaded PDF blobs. All stores share
// one TTL which is refreshed on every write.
package repo

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/papertrail/papertrail/internal/kv"
	"github.com/papertrail/papertrail/internal/model"
)

const (
	jobsPrefix   = "jobs:"
	claimsPrefix = "claims:"
	verifyPrefix = "verify:"
	blobPrefix   = "blob:"
)

// Jobs stores job identity, status, and the latest phase/progress snapshot
// as one Redis hash per job.
type Jobs struct {
	kv     *kv.Store
	logger *slog.Logger
}

// NewJobs creates the job repository.
func NewJobs(store *kv.Store, logger *slog.Logger) *Jobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{kv: store, logger: logger.With("repo", "jobs")}
}

func jobKey(jobID string) string {
	return jobsPrefix + jobID
}

// Create persists a fresh job with a random id and the given status.
func (r *Jobs) Create(ctx context.Context, initial model.JobStatus) (*model.Job, error) {
	job := &model.Job{ID: uuid.NewString(), Status: initial}
	if err := r.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Put writes the full job hash, refreshing the TTL.
func (r *Jobs) Put(ctx context.Context, job *model.Job) error {
	fields := map[string]any{
		"id":        job.ID,
		"status":    string(job.Status),
		"processed": job.Processed,
		"total":     job.Total,
	}
	if job.Phase != "" {
		fields["phase"] = string(job.Phase)
	}
	return r.kv.HSet(ctx, jobKey(job.ID), fields)
}

// Get returns the job, or nil when unknown or expired. Corrupt fields are
// treated as absence, never as an error.
func (r *Jobs) Get(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, nil
	}
	fields, err := r.kv.HGetAll(ctx, jobKey(jobID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || fields["id"] == "" {
		return nil, nil
	}
	job := &model.Job{
		ID:     fields["id"],
		Status: model.JobStatus(fields["status"]),
		Phase:  model.Phase(fields["phase"]),
	}
	job.Processed, job.Total = parseIntField(fields, "processed"), parseIntField(fields, "total")
	return job, nil
}

// Touch refreshes the job TTL; false when the job no longer exists.
func (r *Jobs) Touch(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, nil
	}
	return r.kv.Touch(ctx, jobKey(jobID))
}

// Delete removes the job hash and returns how many keys existed.
func (r *Jobs) Delete(ctx context.Context, jobID string) (int64, error) {
	if jobID == "" {
		return 0, nil
	}
	return r.kv.Del(ctx, jobKey(jobID))
}

// SetStatus updates only the status field, refreshing the TTL.
func (r *Jobs) SetStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	return r.kv.HSet(ctx, jobKey(jobID), map[string]any{"status": string(status)})
}

// SavePhaseProgress persists the latest (phase, processed, total) snapshot.
// Both the phase-qualified progress_* fields and the top-level mirror are
// written so that Get and GetProgressSnapshot stay consistent.
func (r *Jobs) SavePhaseProgress(ctx context.Context, jobID string, phase model.Phase, processed, total int) error {
	return r.kv.HSet(ctx, jobKey(jobID), map[string]any{
		"phase":              string(phase),
		"processed":          processed,
		"total":              total,
		"progress_processed": processed,
		"progress_total":     total,
		"progress_ts":        time.Now().Unix(),
	})
}

// GetProgressSnapshot returns the last persisted snapshot, or nil when no
// phase was ever recorded, total is not positive, or fields are corrupt.
func (r *Jobs) GetProgressSnapshot(ctx context.Context, jobID string) (*model.ProgressSnapshot, error) {
	fields, err := r.kv.HGetAll(ctx, jobKey(jobID))
	if err != nil {
		return nil, err
	}
	phase := fields["phase"]
	if phase == "" {
		return nil, nil
	}
	total, err := strconv.Atoi(fields["progress_total"])
	if err != nil || total <= 0 {
		if err != nil && fields["progress_total"] != "" {
			r.logger.Warn("corrupt progress_total, ignoring snapshot", "job_id", jobID, "value", fields["progress_total"])
		}
		return nil, nil
	}
	processed, err := strconv.Atoi(fields["progress_processed"])
	if err != nil {
		r.logger.Warn("corrupt progress_processed, ignoring snapshot", "job_id", jobID, "value", fields["progress_processed"])
		return nil, nil
	}
	ts, _ := strconv.ParseInt(fields["progress_ts"], 10, 64)
	return &model.ProgressSnapshot{
		Phase:     model.Phase(phase),
		Processed: processed,
		Total:     total,
		TS:        ts,
	}, nil
}

func parseIntField(fields map[string]string, name string) int {
	n, _ := strconv.Atoi(fields[name])
	return n
}
