package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/apetrenko/linkgraph/internal/config"
	"github.com/apetrenko/linkgraph/internal/graph"
	"github.com/apetrenko/linkgraph/internal/logging"
	"github.com/apetrenko/linkgraph/internal/repository"
	"github.com/apetrenko/linkgraph/internal/seed"
	"github.com/apetrenko/linkgraph/internal/service"
)

func main() {
	def := seed.DefaultConfig()
	var (
		persons           = flag.Int("persons", def.NumPersons, "number of persons to generate")
		transfers         = flag.Int("transfers", def.NumTransfers, "number of transfers to generate")
		sharedChance      = flag.Float64("shared-attr-chance", def.SharedAttributeChance, "probability of reusing existing person attributes")
		instrumentChance  = flag.Float64("instrument-share-chance", def.InstrumentShareChance, "probability of reusing existing payment instruments")
		ipShareChance     = flag.Float64("ip-share-chance", def.IPShareChance, "probability of reusing existing IP addresses")
		deviceShareChance = flag.Float64("device-share-chance", def.DeviceShareChance, "probability of reusing existing device IDs")
		randSeed          = flag.Int64("seed", def.Seed, "random seed for deterministic generation")
		workers           = flag.Int("workers", 8, "number of concurrent load workers")
		timeout           = flag.Duration("timeout", 30*time.Minute, "overall load timeout")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	svc := service.NewLinkService(repository.New(client), logger)

	gen := seed.New(seed.Config{
		NumPersons:            *persons,
		NumTransfers:          *transfers,
		SharedAttributeChance: clampProbability(*sharedChance),
		InstrumentShareChance: clampProbability(*instrumentChance),
		IPShareChance:         clampProbability(*ipShareChance),
		DeviceShareChance:     clampProbability(*deviceShareChance),
		Seed:                  *randSeed,
	})

	dataset, err := gen.Generate(ctx)
	if err != nil {
		logger.Error("generation failed", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := seed.Load(ctx, svc, dataset, *workers); err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete",
		"persons", len(dataset.Persons),
		"transfers", len(dataset.Transfers),
		"duration", time.Since(start).String(),
	)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
