package repo

import (
	"context"
	"testing"
	"time"

	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/testutil"
)

func TestVerificationsRoundTrip(t *testing.T) {
	store, _ := testutil.NewStore(t, time.Hour)
	verifications := NewVerifications(store, nil)
	ctx := context.Background()

	rec := model.VerifyClaimResponse{
		ClaimID:     "p1_1",
		Verdict:     model.VerdictSupported,
		Confidence:  0.9,
		ReasoningMd: "Matches the source.",
	}
	if err := verifications.Set(ctx, "job1", rec); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := verifications.Get(ctx, "job1", "p1_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored verification")
	}
	if got.Verdict != model.VerdictSupported || got.Confidence != 0.9 {
		t.Errorf("got %+v, want supported/0.9", got)
	}
}

func TestVerificationsLastWriteWins(t *testing.T) {
	store, _ := testutil.NewStore(t, time.Hour)
	verifications := NewVerifications(store, nil)
	ctx := context.Background()

	first := model.VerifyClaimResponse{ClaimID: "c", Verdict: model.VerdictUnsupported, Confidence: 0.4}
	second := model.VerifyClaimResponse{ClaimID: "c", Verdict: model.VerdictSupported, Confidence: 0.8}
	if err := verifications.Set(ctx, "job1", first); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := verifications.Set(ctx, "job1", second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := verifications.Get(ctx, "job1", "c")
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v, got=%v", err, got)
	}
	if got.Verdict != model.VerdictSupported {
		t.Errorf("verdict = %q, want the second write", got.Verdict)
	}
}

func TestVerificationsMissingAndCorrupt(t *testing.T) {
	store, _ := testutil.NewStore(t, time.Hour)
	verifications := NewVerifications(store, nil)
	ctx := context.Background()

	got, err := verifications.Get(ctx, "job1", "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Get returned %+v for absent record, want nil", got)
	}

	if err := store.SetBytes(ctx, verifyKey("job1", "bad"), []byte("{broken")); err != nil {
		t.Fatalf("SetBytes failed: %v", err)
	}
	got, err = verifications.Get(ctx, "job1", "bad")
	if err != nil {
		t.Fatalf("Get errored on corrupt record: %v", err)
	}
	if got != nil {
		t.Fatalf("Get returned %+v for corrupt record, want nil", got)
	}
}

func TestBlobsRoundTrip(t *testing.T) {
	store, _ := testutil.NewStore(t, time.Hour)
	blobs := NewBlobs(store)
	ctx := context.Background()

	if err := blobs.PutPDF(ctx, "job1", []byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("PutPDF failed: %v", err)
	}
	got, err := blobs.GetPDF(ctx, "job1")
	if err != nil {
		t.Fatalf("GetPDF failed: %v", err)
	}
	if string(got) != "%PDF-1.4 fake" {
		t.Errorf("GetPDF = %q", got)
	}

	missing, err := blobs.GetPDF(ctx, "other")
	if err != nil {
		t.Fatalf("GetPDF failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetPDF returned %d bytes for missing blob", len(missing))
	}
}
