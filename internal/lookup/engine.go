package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/correlator-io/bioval/internal/aliasing"
	"github.com/correlator-io/bioval/internal/cache"
	"github.com/correlator-io/bioval/internal/canonicalization"
	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted by the lookup subsystem.
const (
	RuleNotFound  = "LOOKUP_001"
	RuleAmbiguous = "LOOKUP_002"
	RuleDegraded  = "LOOKUP_003"
)

const defaultBatchSize = 50

// defaultConcurrencyLimit bounds the number of chunks in flight to one
// provider at a time, independent of the rate limiter's own token budget.
const defaultConcurrencyLimit = 8

// Options configures one Engine instance.
type Options struct {
	// IdentifierColumn is the table column holding the value to resolve
	// (e.g. target_gene).
	IdentifierColumn string

	Cache *cache.Store

	// Aliases maps deprecated gene symbols to their canonical form before
	// dedup, caching, and provider resolution. Nil means no aliasing.
	Aliases *aliasing.Resolver

	Primary   Provider
	Secondary Provider

	PrimaryRatePerSecond   float64
	SecondaryRatePerSecond float64
	MaxRetries             int
	BatchSize              int
	SecondaryEnabled       bool

	// ConcurrencyLimit caps the number of chunks submitted to a provider at
	// once. Defaults to 8.
	ConcurrencyLimit int
}

// Engine is the external-identifier lookup subsystem: cache-first,
// batched, provider-failover resolution of gene/variant identifiers.
type Engine struct {
	opts     Options
	primary  *resilientProvider
	secondary *resilientProvider
}

// NewEngine builds an Engine from opts, filling unset numeric fields with
// their spec defaults.
func NewEngine(opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	if opts.PrimaryRatePerSecond <= 0 {
		opts.PrimaryRatePerSecond = 10
	}

	if opts.SecondaryRatePerSecond <= 0 {
		opts.SecondaryRatePerSecond = 15
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	if opts.ConcurrencyLimit <= 0 {
		opts.ConcurrencyLimit = defaultConcurrencyLimit
	}

	e := &Engine{opts: opts}

	if opts.Primary != nil {
		e.primary = newResilientProvider(opts.Primary, opts.PrimaryRatePerSecond, opts.MaxRetries)
	}

	if opts.Secondary != nil {
		e.secondary = newResilientProvider(opts.Secondary, opts.SecondaryRatePerSecond, opts.MaxRetries)
	}

	return e
}

// pairKey is one (organism, identifier) query, case-folded for dedup and
// cache keying but retaining the original casing for error messages.
type pairKey struct {
	organism   string
	identifier string
	original   string
	rows       []int
}

// Run resolves every distinct (organism, identifier) pair referenced by
// opts.IdentifierColumn against the cache, then the primary and (on
// failure) secondary providers, and returns the bio_lookups stage result.
func (e *Engine) Run(ctx context.Context, table *model.Table, meta model.Metadata) model.StageResult {
	start := time.Now()

	if !table.HasColumn(e.opts.IdentifierColumn) {
		return model.StageResult{
			StageName:       model.StageBioLookups,
			Passed:          true,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
		}
	}

	pairs := e.extractPairs(table, meta)

	var (
		issues        []model.Issue
		cacheHits     int
		cacheMisses   int
		apiCalls      int
		primarySucc   int
		secondarySucc int
		ensemblFallbacks int
		degradedMode  bool
	)

	var misses []pairKey

	for _, p := range pairs {
		if e.opts.Cache == nil {
			misses = append(misses, p)

			continue
		}

		if entry, hit, err := e.opts.Cache.Get(ctx, p.organism, p.identifier); err == nil && hit {
			cacheHits++
			issues = append(issues, e.issuesFromCacheHit(p, entry)...)

			continue
		}

		cacheMisses++
		misses = append(misses, p)
	}

	chunkIssues, calls, succ, fallback, degraded := e.resolveChunksConcurrently(ctx, misses)
	issues = append(issues, chunkIssues...)
	apiCalls += calls
	primarySucc += succ.primary
	secondarySucc += succ.secondary
	ensemblFallbacks += fallback
	degradedMode = degraded

	totalQueries := len(pairs)
	provRel := 0.0

	if totalQueries > 0 {
		provRel = float64(primarySucc+secondarySucc) / float64(totalQueries)
	}

	hitRate := "0.0%"
	if len(pairs) > 0 {
		hitRate = fmt.Sprintf("%.1f%%", float64(cacheHits)/float64(len(pairs))*100)
	}

	return model.StageResult{
		StageName: model.StageBioLookups,
		Passed:    model.ComputePassed(issues),
		Issues:    issues,
		StageMetadata: map[string]any{
			"cache_hits":          cacheHits,
			"cache_misses":        cacheMisses,
			"cache_hit_rate":      hitRate,
			"api_calls_made":      apiCalls,
			"ncbi_successes":      primarySucc,
			"ensembl_fallbacks":   ensemblFallbacks,
			"degraded_mode":       degradedMode,
			"provider_reliability": provRel,
		},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}

func (e *Engine) issuesFromCacheHit(p pairKey, entry cache.Entry) []model.Issue {
	if entry.Valid {
		return nil
	}

	field := e.opts.IdentifierColumn

	return []model.Issue{{
		Severity:     model.SeverityError,
		RuleID:       RuleNotFound,
		Field:        &field,
		Message:      fmt.Sprintf("identifier %q could not be resolved against %s", p.original, entry.Provider),
		AffectedRows: p.rows,
	}}
}

type providerSuccess struct {
	primary   int
	secondary int
}

// chunkOutcome holds one chunk's resolution result, written by exactly one
// goroutine so the aggregation after errgroup.Wait needs no locking.
type chunkOutcome struct {
	issues   []model.Issue
	calls    int
	succ     providerSuccess
	fallback int
	degraded bool
}

// resolveChunksConcurrently submits every chunk to resolveChunk, running up
// to ConcurrencyLimit chunks at once per spec's per-provider concurrency
// cap. Each chunk still reaches its provider as a single batched request;
// only the submission of chunks to each other is concurrent.
func (e *Engine) resolveChunksConcurrently(ctx context.Context, misses []pairKey) ([]model.Issue, int, providerSuccess, int, bool) {
	chunks := chunkPairs(misses, e.opts.BatchSize)
	outcomes := make([]chunkOutcome, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ConcurrencyLimit)

	for i, chunk := range chunks {
		i, chunk := i, chunk

		g.Go(func() error {
			chunkIssues, calls, succ, fallback, degraded := e.resolveChunk(gctx, chunk)
			outcomes[i] = chunkOutcome{
				issues: chunkIssues, calls: calls, succ: succ, fallback: fallback, degraded: degraded,
			}

			return nil
		})
	}

	_ = g.Wait()

	var (
		issues   []model.Issue
		calls    int
		succ     providerSuccess
		fallback int
		degraded bool
	)

	for _, o := range outcomes {
		issues = append(issues, o.issues...)
		calls += o.calls
		succ.primary += o.succ.primary
		succ.secondary += o.succ.secondary
		fallback += o.fallback

		if o.degraded {
			degraded = true
		}
	}

	return issues, calls, succ, fallback, degraded
}

// resolveChunk submits one batch to the primary provider, failing over to
// the secondary (one identifier at a time) for whatever the primary could
// not resolve.
func (e *Engine) resolveChunk(ctx context.Context, chunk []pairKey) ([]model.Issue, int, providerSuccess, int, bool) {
	var (
		issues  []model.Issue
		calls   int
		succ    providerSuccess
		fallback int
		degraded bool
	)

	ids := make([]string, len(chunk))
	for i, p := range chunk {
		ids[i] = p.identifier
	}

	organism := ""
	if len(chunk) > 0 {
		organism = chunk[0].organism
	}

	var (
		matches []Match
		err     error
	)

	if e.primary != nil {
		calls++

		matches, err = e.primary.Resolve(ctx, organism, ids)
	} else {
		err = fmt.Errorf("no primary provider configured")
	}

	if err != nil {
		// Primary failed for the whole chunk: fail over to secondary,
		// one identifier at a time, if enabled.
		for _, p := range chunk {
			resolved := false

			if e.opts.SecondaryEnabled && e.secondary != nil {
				calls++
				fallback++

				secondaryMatches, secErr := e.secondary.Resolve(ctx, p.organism, []string{p.identifier})
				if secErr == nil && len(secondaryMatches) == 1 {
					succ.secondary++
					resolved = true

					issues = append(issues, e.classifyMatch(p, secondaryMatches[0], "ensembl")...)
					e.writeBack(ctx, p, secondaryMatches[0], "ensembl")
				}
			}

			if !resolved {
				degraded = true

				field := e.opts.IdentifierColumn
				issues = append(issues, model.Issue{
					Severity: model.SeverityWarning,
					RuleID:   RuleDegraded,
					Field:    &field,
					Message: fmt.Sprintf(
						"identifier %q could not be resolved due to a provider failure", p.original,
					),
					AffectedRows: p.rows,
					Metadata:     map[string]any{"provider": "degraded"},
				})
			}
		}

		return issues, calls, succ, fallback, degraded
	}

	succ.primary += len(matches)

	for i, m := range matches {
		p := chunk[i]
		issues = append(issues, e.classifyMatch(p, m, "ncbi")...)
		e.writeBack(ctx, p, m, "ncbi")
	}

	return issues, calls, succ, fallback, degraded
}

func (e *Engine) classifyMatch(p pairKey, m Match, provider string) []model.Issue {
	field := e.opts.IdentifierColumn

	if m.Ambiguous {
		return []model.Issue{{
			Severity:     model.SeverityWarning,
			RuleID:       RuleAmbiguous,
			Field:        &field,
			Message:      fmt.Sprintf("identifier %q matched more than one record in %s", p.original, provider),
			AffectedRows: p.rows,
		}}
	}

	if !m.Found {
		return []model.Issue{{
			Severity:     model.SeverityError,
			RuleID:       RuleNotFound,
			Field:        &field,
			Message:      fmt.Sprintf("identifier %q was not found in %s", p.original, provider),
			AffectedRows: p.rows,
		}}
	}

	return nil
}

// writeBack stores a resolved match through Cache.GetOrResolve rather than a
// direct Put, so a concurrent write for the same key (from a chunk running
// in another goroutine, or a concurrently-running validation sharing the
// same store) single-flights onto whichever caller got there first instead
// of racing a duplicate write.
func (e *Engine) writeBack(ctx context.Context, p pairKey, m Match, provider string) {
	if e.opts.Cache == nil {
		return
	}

	entry := cache.Entry{
		Valid:         m.Found,
		CanonicalName: m.CanonicalName,
		Provider:      provider,
	}

	_, _, _ = e.opts.Cache.GetOrResolve(ctx, p.organism, p.identifier, func(context.Context) (cache.Entry, bool, error) {
		return entry, true, nil
	})
}

// extractPairs builds the deduplicated (organism, identifier) query list
// from the table, preserving original casing for messages but folding for
// dedup and cache keys.
func (e *Engine) extractPairs(table *model.Table, meta model.Metadata) []pairKey {
	seen := make(map[string]*pairKey)
	order := make([]string, 0)

	defaultOrganism := ""
	if meta.Organism != nil {
		defaultOrganism = *meta.Organism
	}

	values, present := table.StringColumn(e.opts.IdentifierColumn)

	for i, ok := range present {
		if !ok || values[i] == "" {
			continue
		}

		organism := defaultOrganism

		row := table.Rows()[i]
		if orgVal, ok := row["organism"].(string); ok && orgVal != "" {
			organism = orgVal
		}

		identifier := e.opts.Aliases.Resolve(values[i])

		key := canonicalization.GenerateCacheKey(organism, identifier)

		if existing, known := seen[key]; known {
			existing.rows = append(existing.rows, i)

			continue
		}

		folded := strings.ToLower(strings.TrimSpace(organism))
		foldedID := strings.ToLower(strings.TrimSpace(identifier))

		p := &pairKey{organism: folded, identifier: foldedID, original: values[i], rows: []int{i}}
		seen[key] = p
		order = append(order, key)
	}

	pairs := make([]pairKey, 0, len(order))
	for _, key := range order {
		pairs = append(pairs, *seen[key])
	}

	for i := range pairs {
		sort.Ints(pairs[i].rows)
	}

	return pairs
}

func chunkPairs(pairs []pairKey, size int) [][]pairKey {
	if size <= 0 {
		size = defaultBatchSize
	}

	byOrganism := make(map[string][]pairKey)
	order := make([]string, 0)

	for _, p := range pairs {
		if _, known := byOrganism[p.organism]; !known {
			order = append(order, p.organism)
		}

		byOrganism[p.organism] = append(byOrganism[p.organism], p)
	}

	var chunks [][]pairKey

	for _, organism := range order {
		group := byOrganism[organism]

		for len(group) > 0 {
			n := size
			if n > len(group) {
				n = len(group)
			}

			chunks = append(chunks, group[:n])
			group = group[n:]
		}
	}

	return chunks
}
