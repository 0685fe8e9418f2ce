// Package main provides a one-shot ingestion trigger for operators and cron.
//
// It wires the same pipeline as the server, runs a single batch against the
// configured archive, prints the finished run summary as JSON, and exits.
// The resumption pointer advances exactly as it would for an API-triggered
// run, so CLI and API runs interleave safely.
//
// Usage:
//
//	shelfmark-ingest                      # one batch from the default source
//	shelfmark-ingest -batch 25            # override the batch size
//	shelfmark-ingest -max 10 -dry-run     # preview without writing
//	shelfmark-ingest -data-path ./data    # shared config flags still apply
package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/di"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// Registered before config loading calls flag.Parse, so these parse
// alongside the shared config flags.
var (
	source        = flag.String("source", "", "Source to ingest from (default: the configured archive)")
	batchSize     = flag.Int("batch", 0, "Candidates to fetch this run (default: configured batch size)")
	maxCandidates = flag.Int("max", 0, "Hard cap on candidates processed this run (0 = no cap)")
	dryRun        = flag.Bool("dry-run", false, "Evaluate the batch without writing catalog records or downloading assets")
)

func main() {
	injector := di.NewContainer()

	// Invoking the ingest service pulls in config, store, cache, index, and
	// clients; the HTTP server provider is never touched.
	ingestService, err := do.Invoke[*service.IngestService](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize pipeline: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	// SIGINT cancels the run mid-batch; the finalized summary still prints.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := ingestService.TriggerRun(ctx, service.TriggerRunRequest{
		Source:        *source,
		BatchSize:     *batchSize,
		MaxCandidates: *maxCandidates,
		DryRun:        *dryRun,
	})
	if err != nil {
		log.Error("Ingestion run failed", "error", err)
		shutdown(injector, log)
		os.Exit(1)
	}

	if err := json.MarshalWrite(os.Stdout, run, jsontext.WithIndent("  ")); err != nil {
		log.Error("Failed to print run summary", "error", err)
	}
	fmt.Println()

	shutdown(injector, log)

	if run.Status == domain.RunStatusFailed {
		os.Exit(1)
	}
}

// shutdown closes the store, cache, and index before the process exits.
// Deferred calls never run past os.Exit, so this is explicit.
func shutdown(injector *do.RootScope, log *logger.Logger) {
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}
