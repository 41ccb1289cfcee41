// Command vendas loads the ANP fuel-price CSV feed into a relational table
// under a full-replace policy and prints the three management reports.
//
// With no flags it downloads the published 2024 feed into ./anp_2024.db.
// A JSON pipeline file can replace the defaults, and the most common knobs
// (source, db path, batch size) are overridable directly by flag.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"vendas/internal/config"
	"vendas/internal/metrics"
	"vendas/internal/metrics/prompush"
	"vendas/internal/pipeline"

	// register all storage backends with the factory.
	_ "vendas/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		sourceFlg         string
		dbPathFlg         string
		batchSizeFlg      int
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config JSON path (optional; defaults to the ANP 2024 feed)")
	flag.StringVar(&sourceFlg, "source", "", "override source: a URL or a local CSV path")
	flag.StringVar(&dbPathFlg, "db", "", "override sqlite db path")
	flag.IntVar(&batchSizeFlg, "batch-size", 0, "override rows per batch")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend (pushgateway, none); defaults to env METRICS_BACKEND")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()
	log.SetOutput(os.Stderr)

	p := config.Default()
	if cfgPath != "" {
		f, err := os.Open(cfgPath)
		if err != nil {
			fatalf("open config: %v", err)
		}
		if err := json.NewDecoder(f).Decode(&p); err != nil {
			f.Close()
			fatalf("decode config: %v", err)
		}
		f.Close()
	}
	applyOverrides(&p, sourceFlg, dbPathFlg, batchSizeFlg)

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			hasError = true
		}
		if iss.Severity == config.SeverityError || *verbose {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
	}
	if hasError {
		fatalf("configuration is invalid")
	}
	if validate {
		log.Printf("configuration is valid")
		return
	}

	setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, *verbose)

	if *verbose {
		log.Printf("pipeline: source=%s storage=%s table=%s batch_size=%d",
			p.Source.Kind, p.Storage.Kind, p.Storage.DB.Table, p.Runtime.BatchSize)
	}

	summary, err := pipeline.Run(context.Background(), p, os.Stdout)
	summary.Print(os.Stderr)
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics: flush error: %v", ferr)
	}
	if err != nil {
		fatalf("%v", err)
	}
}

// applyOverrides folds the convenience flags into the pipeline. A source
// that looks like a URL selects the http kind, anything else the local file
// kind.
func applyOverrides(p *config.Pipeline, source, dbPath string, batchSize int) {
	if source != "" {
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			p.Source.Kind = "http"
			p.Source.HTTP.URL = source
		} else {
			p.Source.Kind = "file"
			p.Source.File.Path = source
		}
	}
	if dbPath != "" {
		p.Storage.Kind = "sqlite"
		p.Storage.DB.DSN = dbPath
	}
	if batchSize > 0 {
		p.Runtime.BatchSize = batchSize
	}
}

// setupMetrics decides the metrics backend: flag → env → disabled.
func setupMetrics(job, backendName, gatewayURL string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gatewayURL == "" {
			gatewayURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gatewayURL == "" {
			gatewayURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=%s url=%s job=%s", backendName, gatewayURL, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
