package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NCBIProvider is the primary identifier provider: a batched, higher-
// throughput gene-symbol lookup gated by an API key when one is configured.
type NCBIProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewNCBIProvider builds an NCBIProvider against baseURL, optionally
// authenticated with apiKey (empty disables the higher rate tier).
func NewNCBIProvider(baseURL, apiKey string) *NCBIProvider {
	return &NCBIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Provider.
func (p *NCBIProvider) Name() string { return "ncbi" }

// SupportsBatch implements Provider: NCBI accepts a batched gene-symbol query.
func (p *NCBIProvider) SupportsBatch() bool { return true }

type ncbiResponse struct {
	Results []struct {
		Symbol        string   `json:"symbol"`
		CanonicalName string   `json:"canonical_name"`
		Matches       []string `json:"matches"`
	} `json:"results"`
}

// Resolve implements Provider.
func (p *NCBIProvider) Resolve(ctx context.Context, organism string, ids []string) ([]Match, error) {
	q := url.Values{}
	q.Set("organism", organism)
	q.Set("symbols", strings.Join(ids, ","))

	if p.apiKey != "" {
		q.Set("api_key", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/gene/lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ncbi: building request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ncbi: request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("ncbi: server error: %s", resp.Status)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("ncbi: rate limited: %s", resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ncbi: unexpected status: %s", resp.Status)
	}

	var body ncbiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ncbi: decoding response: %w", err)
	}

	byID := make(map[string]Match, len(body.Results))

	for _, r := range body.Results {
		byID[r.Symbol] = Match{
			Identifier:    r.Symbol,
			Found:         r.CanonicalName != "" || len(r.Matches) > 0,
			Ambiguous:     len(r.Matches) > 1,
			CanonicalName: r.CanonicalName,
		}
	}

	matches := make([]Match, len(ids))

	for i, id := range ids {
		if m, ok := byID[id]; ok {
			matches[i] = m
		} else {
			matches[i] = Match{Identifier: id, Found: false}
		}
	}

	return matches, nil
}
