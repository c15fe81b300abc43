package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papertrail/papertrail/internal/model"
)

// ErrUpstream marks a failure of an external collaborator; the HTTP layer
// maps it to 502.
var ErrUpstream = errors.New("upstream request failed")

// Suggester proxies citation suggestions from the Semantic Scholar paper
// search API.
type Suggester struct {
	searchURL string
	client    *http.Client
	logger    *slog.Logger
}

// NewSuggester creates the proxy.
func NewSuggester(searchURL string, logger *slog.Logger) *Suggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{
		searchURL: searchURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.With("component", "suggest"),
	}
}

type paperSearchResponse struct {
	Data []struct {
		Title   string `json:"title"`
		Year    int    `json:"year"`
		URL     string `json:"url"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

// Suggest returns up to limit candidate papers for the claim text.
func (s *Suggester) Suggest(ctx context.Context, query string, limit int) ([]model.CitationCandidate, error) {
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(limit)},
		"fields": {"title,authors,year,url"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("citation search request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("citation search bad status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed paperSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out := make([]model.CitationCandidate, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		names := make([]string, 0, 3)
		for i, a := range p.Authors {
			if i == 3 {
				break
			}
			names = append(names, a.Name)
		}
		out = append(out, model.CitationCandidate{
			Title:   p.Title,
			Authors: strings.Join(names, ", "),
			Year:    p.Year,
			URL:     p.URL,
		})
	}
	return out, nil
}
