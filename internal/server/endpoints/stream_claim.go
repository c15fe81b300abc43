package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/svcctx"
)

// StreamClaimEndpoint handles POST /api/v1/stream-claim with an NDJSON
// response body. Reconnecting with the same job id resumes the stream.
type StreamClaimEndpoint struct{}

var _ api.Endpoint = (*StreamClaimEndpoint)(nil)

func (e *StreamClaimEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/stream-claim", e.handler
}

func (e *StreamClaimEndpoint) RequiresInit() bool { return true }

func (e *StreamClaimEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req model.StreamClaimsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.JobID == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "jobId and apiKey are required")
		return
	}

	paper := svcctx.PaperFrom(r.Context())
	if paper == nil {
		writeError(w, http.StatusServiceUnavailable, "paper service not initialized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The extraction run outlives the server's write timeout; clear the
	// deadline for this response only.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	for line := range paper.StreamClaims(r.Context(), req.JobID, req.APIKey) {
		if _, err := w.Write(line); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (e *StreamClaimEndpoint) Command(getServerURL func() string) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "stream-claim <job-id>",
		Short: "Stream extracted claims for a job as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := model.StreamClaimsRequest{JobID: args[0], APIKey: apiKey}
			return client.PostStream(cmd.Context(), "/api/v1/stream-claim", req, func(line []byte) error {
				fmt.Println(string(line))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (required)")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}
