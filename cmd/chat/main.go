package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"wellrag/internal/bootstrap"
	"wellrag/internal/config"
	"wellrag/internal/logger"
	"wellrag/internal/service"
	"wellrag/internal/tui"
)

const defaultLogFile = "wellrag-chat.log"

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfg *config.AppConfig
		err error
	)
	if path := os.Getenv("WELLRAG_CONFIG"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The terminal belongs to Bubble Tea, so logs always go to a file.
	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = defaultLogFile
	}
	log, closeLog, err := logger.New(logCfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	emb, err := bootstrap.NewEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	completer, err := bootstrap.NewCompleter(cfg.Completion)
	if err != nil {
		return err
	}
	store, err := bootstrap.NewStore(cfg.VectorStore)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bootstrap.PrepareQuery(ctx, cfg.Ingest, emb, store, log); err != nil {
		return err
	}

	svc := service.NewRAGService(emb, store, completer, cfg.Retrieval.TopK, log)
	log.Info("chat started", "embedder", emb.Name(), "store", cfg.VectorStore.Type, "top_k", cfg.Retrieval.TopK)

	p := tea.NewProgram(tui.New(ctx, svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
