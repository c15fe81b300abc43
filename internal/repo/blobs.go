package repo

import (
	"context"

	"github.com/papertrail/papertrail/internal/kv"
)

// Blobs stores the raw uploaded PDF bytes per job.
type Blobs struct {
	kv *kv.Store
}

// NewBlobs creates the blob repository.
func NewBlobs(store *kv.Store) *Blobs {
	return &Blobs{kv: store}
}

func blobKey(jobID string) string {
	return blobPrefix + jobID
}

// PutPDF stores the uploaded PDF with the shared TTL. Size ceilings are
// enforced at the HTTP layer before the bytes reach this repository.
func (r *Blobs) PutPDF(ctx context.Context, jobID string, data []byte) error {
	return r.kv.SetBytes(ctx, blobKey(jobID), data)
}

// GetPDF returns the stored PDF bytes, or nil when absent.
func (r *Blobs) GetPDF(ctx context.Context, jobID string) ([]byte, error) {
	raw, ok, err := r.kv.GetBytes(ctx, blobKey(jobID))
	if err != nil || !ok {
		return nil, err
	}
	return raw, nil
}

// Touch refreshes the blob TTL.
func (r *Blobs) Touch(ctx context.Context, jobID string) (bool, error) {
	return r.kv.Touch(ctx, blobKey(jobID))
}

// Delete removes the blob.
func (r *Blobs) Delete(ctx context.Context, jobID string) (int64, error) {
	return r.kv.Del(ctx, blobKey(jobID))
}
