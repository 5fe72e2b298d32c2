// Package main provides the bioval validation CLI: it reads a tabular
// dataset and its metadata, runs the full validation pipeline, and prints
// the resulting report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/correlator-io/bioval/internal/aliasing"
	"github.com/correlator-io/bioval/internal/biorules"
	"github.com/correlator-io/bioval/internal/cache"
	"github.com/correlator-io/bioval/internal/config"
	"github.com/correlator-io/bioval/internal/lookup"
	"github.com/correlator-io/bioval/internal/model"
	"github.com/correlator-io/bioval/internal/orchestrator"
	"github.com/correlator-io/bioval/internal/policy"
	"github.com/correlator-io/bioval/internal/rules"
	"github.com/correlator-io/bioval/internal/ruleset"
	"github.com/correlator-io/bioval/internal/schema"
)

const (
	version = "0.1.0-dev"
	name    = "bioval-validate"
)

// inputDocument is the on-disk shape a caller supplies: a table plus its
// metadata descriptor, matching the data model's Record/Metadata split.
type inputDocument struct {
	Columns  []string       `json:"columns"`
	Rows     []model.Record `json:"rows"`
	Metadata model.Metadata `json:"metadata"`
}

func main() {
	var (
		inputPath     = flag.String("input", "", "path to the input JSON document (table + metadata)")
		rulesPath     = flag.String("rules-config", config.GetEnvStr("RULES_CONFIG_PATH", "rules.yaml"), "path to the rules config file")
		policyPath    = flag.String("policy-config", config.GetEnvStr("POLICY_CONFIG_PATH", "policy.yaml"), "path to the policy config file")
		showVersion   = flag.Bool("version", false, "show version information")
		identifierCol = flag.String("identifier-column", "target_gene", "table column to resolve against external providers")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	if *inputPath == "" {
		log.Fatal("missing required -input flag")
	}

	doc, err := loadInput(*inputPath)
	if err != nil {
		log.Fatalf("loading input: %v", err)
	}

	table, err := model.NewTable(doc.Columns, doc.Rows)
	if err != nil {
		log.Fatalf("building table: %v", err)
	}

	rulesRaw, err := os.ReadFile(*rulesPath)
	if err != nil {
		log.Fatalf("reading rules config: %v", err)
	}

	rulesCfg, err := rules.ParseConfig(rulesRaw)
	if err != nil {
		log.Fatalf("parsing rules config: %v", err)
	}

	policyCfg := policy.DefaultConfig()

	if policyRaw, err := os.ReadFile(*policyPath); err == nil {
		if policyCfg, err = policy.ParseConfig(policyRaw); err != nil {
			log.Fatalf("parsing policy config: %v", err)
		}
	} else {
		logger.Warn("policy config not found, using defaults", slog.String("path", *policyPath))
	}

	var cacheStore *cache.Store

	cacheEnabled := config.GetEnvBool("CACHE_ENABLED", true)
	if cacheEnabled {
		cacheStore, err = cache.Open(cache.Config{
			Path: config.GetEnvStr("CACHE_PATH", "bioval-cache.db"),
			TTL:  config.GetEnvDuration("CACHE_TTL", 7*24*time.Hour),
		})
		if err != nil {
			log.Fatalf("opening cache: %v", err)
		}

		defer cacheStore.Close()
	}

	ensemblEnabled := config.GetEnvBool("ENSEMBL_ENABLED", true)

	aliasCfg, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("loading alias config: %v", err)
	}

	lookupEngine := lookup.NewEngine(lookup.Options{
		IdentifierColumn: *identifierCol,
		Cache:            cacheStore,
		Aliases:          aliasing.NewResolver(aliasCfg),
		Primary:          lookup.NewNCBIProvider(config.GetEnvStr("NCBI_BASE_URL", "https://api.ncbi.example/v1"), os.Getenv("NCBI_API_KEY")),
		Secondary:        lookup.NewEnsemblProvider(config.GetEnvStr("ENSEMBL_BASE_URL", "https://rest.ensembl.example")),
		SecondaryEnabled: ensemblEnabled,
		ConcurrencyLimit: config.GetEnvInt("LOOKUP_CONCURRENCY_LIMIT", 8),
	})

	orc := orchestrator.NewOrchestrator(
		schema.NewValidator(),
		rules.NewEngine(rulesCfg),
		biorules.NewEngine(biorules.Options{}),
		lookupEngine,
		policy.NewEngine(policyCfg),
		ruleset.NewResolver(*rulesPath),
	)

	defaultTimeoutSeconds := int(orchestrator.DefaultOptions().OverallTimeout / time.Second)

	opts := orchestrator.Options{
		OverallTimeout:      time.Duration(config.GetEnvInt("ORCHESTRATOR_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
		ShortCircuitEnabled: config.GetEnvBool("ENABLE_SHORT_CIRCUIT", true),
		ParallelBioEnabled:  config.GetEnvBool("ENABLE_PARALLEL_BIO", true),
		CacheEnabled:        cacheEnabled,
		EnsemblEnabled:      ensemblEnabled,
	}

	report, err := orc.Run(context.Background(), table, doc.Metadata, opts)
	if err != nil {
		log.Fatalf("validation aborted: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		log.Fatalf("encoding report: %v", err)
	}
}

func loadInput(path string) (inputDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return inputDocument{}, err
	}

	var doc inputDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return inputDocument{}, err
	}

	return doc, nil
}
