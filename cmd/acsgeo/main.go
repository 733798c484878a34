package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"acsgeo/internal/config"
	"acsgeo/internal/emit"
	"acsgeo/internal/metrics"
	"acsgeo/internal/metrics/datadog"
	"acsgeo/internal/metrics/prompush"
	"acsgeo/internal/pipeline"
)

// main is the entry point for the extract binary. It loads and checks
// the configuration, optionally initializes a metrics backend, runs the
// extract, and prints the load instructions for the written CSVs to
// stdout. Logs go to stderr so the instructions can be piped to a file.
func main() {
	// A .env next to the binary is a convenience for DATABASE_URL and
	// friends; a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load()

	issues := config.ValidateConfig(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Fatal("configuration is invalid")
	}
	if cfg.ValidateOnly {
		log.Print("configuration is valid")
		return
	}

	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend("acsgeo", cfg.PushGatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=pushgateway url=%s", cfg.PushGatewayURL)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      cfg.StatsdAddr,
			Namespace: "acsgeo.",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=datadog addr=%s", cfg.StatsdAddr)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("extract: year=%d state=%s counties=%d tables=%d out=%s",
		cfg.Year, cfg.State, len(cfg.Counties), len(cfg.Tables), cfg.OutDir)

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Print(emit.Instructions(emit.Options{
		Schema:      cfg.Schema,
		DatabaseURL: cfg.DatabaseURL,
		GeometryCSV: res.GeometryCSV,
		Tables:      res.Tables,
	}))

	log.Printf("completed in %s: %d rows, %d block groups",
		time.Since(start).Truncate(time.Millisecond), res.Rows, res.Features)
}
