// Package orchestrator runs the staged validation pipeline: schema, then
// rules, then the biological-rules and biological-lookups stages
// concurrently, then policy, assembling the results into a single report.
package orchestrator

import "time"

// Options configures one Run call.
type Options struct {
	OverallTimeout      time.Duration
	ShortCircuitEnabled bool
	ParallelBioEnabled  bool
	CacheEnabled        bool
	EnsemblEnabled      bool
}

const defaultOverallTimeout = 300 * time.Second

// DefaultOptions returns the orchestrator's documented defaults.
func DefaultOptions() Options {
	return Options{
		OverallTimeout:      defaultOverallTimeout,
		ShortCircuitEnabled: true,
		ParallelBioEnabled:  true,
	}
}

func (o Options) withDefaults() Options {
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = defaultOverallTimeout
	}

	return o
}
