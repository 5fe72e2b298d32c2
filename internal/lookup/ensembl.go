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

// EnsemblProvider is the secondary identifier provider, used on primary
// failover. It lacks batch support: callers issue one request per
// identifier.
type EnsemblProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewEnsemblProvider builds an EnsemblProvider against baseURL.
func NewEnsemblProvider(baseURL string) *EnsemblProvider {
	return &EnsemblProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Provider.
func (p *EnsemblProvider) Name() string { return "ensembl" }

// SupportsBatch implements Provider: Ensembl takes one identifier per call.
func (p *EnsemblProvider) SupportsBatch() bool { return false }

type ensemblResponse struct {
	CanonicalName string   `json:"display_name"`
	Matches       []string `json:"matches"`
}

// Resolve implements Provider. ids must contain exactly one identifier; the
// engine is responsible for chunking Ensembl requests one at a time.
func (p *EnsemblProvider) Resolve(ctx context.Context, organism string, ids []string) ([]Match, error) {
	if len(ids) != 1 {
		return nil, fmt.Errorf("ensembl: expected exactly one identifier, got %d", len(ids))
	}

	id := ids[0]

	q := url.Values{}
	q.Set("organism", organism)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/lookup/symbol/"+url.PathEscape(id)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ensembl: building request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ensembl: request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []Match{{Identifier: id, Found: false}}, nil
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("ensembl: server error: %s", resp.Status)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("ensembl: rate limited: %s", resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ensembl: unexpected status: %s", resp.Status)
	}

	var body ensemblResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ensembl: decoding response: %w", err)
	}

	return []Match{{
		Identifier:    id,
		Found:         body.CanonicalName != "" || len(body.Matches) > 0,
		Ambiguous:     len(body.Matches) > 1,
		CanonicalName: body.CanonicalName,
	}}, nil
}
