package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/svcctx"
)

// UploadPaperEndpoint handles POST /api/v1/upload-paper with a multipart
// PDF upload.
type UploadPaperEndpoint struct {
	MaxFileBytes int64
}

var _ api.Endpoint = (*UploadPaperEndpoint)(nil)

func (e *UploadPaperEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/upload-paper", e.handler
}

func (e *UploadPaperEndpoint) RequiresInit() bool { return true }

func (e *UploadPaperEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	paper := svcctx.PaperFrom(r.Context())
	if paper == nil {
		writeError(w, http.StatusServiceUnavailable, "paper service not initialized")
		return
	}

	jobID, err := paper.CreateJobForFile(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create job: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, model.UploadPaperResponse{JobID: jobID})
}

func (e *UploadPaperEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-paper <file.pdf>",
		Short: "Upload a PDF and create an extraction job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			var resp model.UploadPaperResponse
			err = client.PostMultipart(cmd.Context(), "/api/v1/upload-paper",
				"file", filepath.Base(args[0]), f, nil, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("Job ID: %s\n", resp.JobID)
			return nil
		},
	}
}
