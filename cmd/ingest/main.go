package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"wellrag/internal/bootstrap"
	"wellrag/internal/config"
	"wellrag/internal/ingest"
	"wellrag/internal/logger"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, stage string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/wellrag/config.yaml if not provided)")
	flag.StringVar(&stage, "stage", "all", "Stage to run: chunk, embed, upload or all")
	flag.Parse()

	if err := run(cfgPath, stage); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(cfgPath, stageName string) error {
	stage, err := ingest.ParseStage(stageName)
	if err != nil {
		return err
	}

	var cfg *config.AppConfig
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	emb, err := bootstrap.NewEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	store, err := bootstrap.NewStore(cfg.VectorStore)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("starting ingest", "stage", stage, "embedder", emb.Name(), "store", cfg.VectorStore.Type)
	p := ingest.New(cfg.Ingest, emb, store, ingest.WithLogger(log))
	if err := p.Run(ctx, stage); err != nil {
		log.Error("ingest failed", "stage", stage, "err", err)
		return err
	}
	log.Info("ingest finished", "stage", stage)
	return nil
}
