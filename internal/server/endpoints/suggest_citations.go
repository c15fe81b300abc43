package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/svcctx"
)

// SuggestCitationsEndpoint handles POST /api/v1/suggest-citations by
// proxying a paper search for the claim text.
type SuggestCitationsEndpoint struct{}

var _ api.Endpoint = (*SuggestCitationsEndpoint)(nil)

func (e *SuggestCitationsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/suggest-citations", e.handler
}

func (e *SuggestCitationsEndpoint) RequiresInit() bool { return true }

func (e *SuggestCitationsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req model.SuggestCitationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ClaimText) == "" {
		writeError(w, http.StatusBadRequest, "claimText is required")
		return
	}

	suggester := svcctx.SuggesterFrom(r.Context())
	if suggester == nil {
		writeError(w, http.StatusServiceUnavailable, "suggester not initialized")
		return
	}

	candidates, err := suggester.Suggest(r.Context(), req.ClaimText, 3)
	if err != nil {
		writeError(w, statusForError(err), fmt.Sprintf("citation search failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, model.SuggestCitationsResponse{Suggestions: candidates})
}

func (e *SuggestCitationsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest-citations <claim-text>",
		Short: "Suggest citations for a claim",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := model.SuggestCitationsRequest{ClaimText: strings.Join(args, " ")}
			var resp model.SuggestCitationsResponse
			if err := client.Post(cmd.Context(), "/api/v1/suggest-citations", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
