package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/svcctx"
)

// VerifyClaimEndpoint handles POST /api/v1/verify-claim. The claim's source
// PDF is re-uploaded with the request so verification never depends on the
// original blob still being cached.
type VerifyClaimEndpoint struct {
	MaxFileBytes int64
}

var _ api.Endpoint = (*VerifyClaimEndpoint)(nil)

func (e *VerifyClaimEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/verify-claim", e.handler
}

func (e *VerifyClaimEndpoint) RequiresInit() bool { return true }

func (e *VerifyClaimEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, e.MaxFileBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	jobID := r.FormValue("jobId")
	claimID := r.FormValue("claimId")
	apiKey := r.FormValue("apiKey")
	if jobID == "" || claimID == "" || apiKey == "" {
		writeError(w, http.StatusBadRequest, "jobId, claimId, and apiKey are required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	paper := svcctx.PaperFrom(r.Context())
	if paper == nil {
		writeError(w, http.StatusServiceUnavailable, "paper service not initialized")
		return
	}

	resp, err := paper.VerifyClaim(r.Context(), jobID, claimID, header.Filename, data, apiKey)
	if err != nil {
		writeError(w, statusForError(err), fmt.Sprintf("verification failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *VerifyClaimEndpoint) Command(getServerURL func() string) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "verify-claim <job-id> <claim-id> <file.pdf>",
		Short: "Verify one claim against its source PDF",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			fields := []api.MultipartField{
				{Name: "jobId", Value: args[0]},
				{Name: "claimId", Value: args[1]},
				{Name: "apiKey", Value: apiKey},
			}
			var resp model.VerifyClaimResponse
			err = client.PostMultipart(cmd.Context(), "/api/v1/verify-claim",
				"file", filepath.Base(args[2]), f, fields, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (required)")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}
