// Package main provides the bioval cache management CLI: inspect, evict,
// purge, or warm the external-identifier lookup cache without running a
// full validation.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/correlator-io/bioval/internal/cache"
	"github.com/correlator-io/bioval/internal/canonicalization"
	"github.com/correlator-io/bioval/internal/config"
)

const (
	version = "0.1.0-dev"
	name    = "bioval-cache"
)

func main() {
	var (
		configHelp  = flag.Bool("help", false, "show help information")
		showVersion = flag.Bool("version", false, "show version information")
		cachePath   = flag.String("cache-path", config.GetEnvStr("CACHE_PATH", "bioval-cache.db"), "path to the cache database file")
		warmFile    = flag.String("warm-file", "", "CSV file of organism,identifier pairs (required for the warm command)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if *configHelp || flag.NArg() < 1 {
		printUsage()
		os.Exit(0)
	}

	command := flag.Arg(0)

	// Options may also follow the command, e.g. "warm -warm-file pairs.csv".
	if err := flag.CommandLine.Parse(flag.Args()[1:]); err != nil {
		log.Fatalf("parsing options: %v", err)
	}

	store, err := cache.Open(cache.Config{Path: *cachePath})
	if err != nil {
		log.Fatalf("failed to open cache: %v", err)
	}
	defer store.Close()

	if err := executeCommand(command, store, *warmFile); err != nil {
		log.Fatalf("cache command failed: %v", err)
	}
}

func executeCommand(command string, store *cache.Store, warmFile string) error {
	ctx := context.Background()

	switch command {
	case "stats":
		return printStats(ctx, store)
	case "clear_expired":
		n, err := store.ClearExpired(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("cleared %d expired entries\n", n)

		return nil
	case "purge":
		fmt.Print("WARNING: this will delete every cached lookup. Are you sure? (y/N): ")

		var response string

		fmt.Scanln(&response)

		if response != "y" && response != "Y" {
			fmt.Println("operation cancelled.")

			return nil
		}

		return store.Purge(ctx)
	case "warm":
		if warmFile == "" {
			return fmt.Errorf("warm requires -warm-file <path.csv>")
		}

		return warmFromFile(ctx, store, warmFile)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printStats(ctx context.Context, store *cache.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(stats)
}

// warmFromFile reads organism,identifier pairs from a CSV file and
// pre-populates the cache by marking them present but unresolved — a
// caller that needs canonical names still pays for a real provider call
// the first time the pair is looked up during validation.
func warmFromFile(ctx context.Context, store *cache.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening warm file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("reading warm file: %w", err)
	}

	pairs := make([][2]string, 0, len(records))

	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}

		pairs = append(pairs, [2]string{
			canonicalization.FoldIdentifier(rec[0]), canonicalization.FoldIdentifier(rec[1]),
		})
	}

	warmed := 0

	err = store.Warm(ctx, pairs, func(ctx context.Context, organism, identifier string) (cache.Entry, error) {
		warmed++

		return cache.Entry{Valid: false, Provider: "warm"}, nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("warmed %d pairs\n", warmed)

	return nil
}

func printUsage() {
	fmt.Printf(`%s v%s - Lookup Cache Management Tool for bioval

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    stats          Print cumulative cache hit/miss/write/eviction counters
    clear_expired  Delete entries past their TTL
    purge          Delete every cached entry (requires confirmation)
    warm           Pre-populate the cache from a CSV file of organism,identifier pairs

OPTIONS:
    --help         Show this help message
    --version      Show version information
    -cache-path    Path to the cache database file (default: bioval-cache.db)
    -warm-file     CSV file of organism,identifier pairs (required for warm)

ENVIRONMENT VARIABLES:
    CACHE_PATH     Path to the cache database file

EXAMPLES:
    %s stats
    %s clear_expired
    %s warm -warm-file pairs.csv
    %s purge
`, name, version, name, name, name, name, name)
}
