package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/anthropic"
	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/svcctx"
)

// ValidateKeyEndpoint handles POST /api/v1/validate-api-key.
type ValidateKeyEndpoint struct{}

var _ api.Endpoint = (*ValidateKeyEndpoint)(nil)

func (e *ValidateKeyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/validate-api-key", e.handler
}

func (e *ValidateKeyEndpoint) RequiresInit() bool { return true }

func (e *ValidateKeyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	paper := svcctx.PaperFrom(r.Context())
	if paper == nil {
		writeError(w, http.StatusServiceUnavailable, "paper service not initialized")
		return
	}

	if err := paper.ValidateKey(r.Context(), req.APIKey); err != nil {
		if errors.Is(err, anthropic.ErrInvalidKey) {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		writeError(w, http.StatusBadGateway, "key validation failed upstream")
		return
	}
	writeJSON(w, http.StatusOK, model.ValidateKeyResponse{OK: true})
}

func (e *ValidateKeyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-key <api-key>",
		Short: "Check an Anthropic API key against the upstream service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp model.ValidateKeyResponse
			err := client.Post(cmd.Context(), "/api/v1/validate-api-key",
				model.ValidateKeyRequest{APIKey: args[0]}, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("OK: %v\n", resp.OK)
			return nil
		},
	}
}
