package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"annotator/internal/app"
	"annotator/internal/config"
	"annotator/internal/docxml"
	"annotator/internal/embedding/tfidf"
	"annotator/internal/logging"
	"annotator/internal/service"
	"annotator/internal/summarizer"
	"annotator/internal/tui"
	"annotator/internal/vectorstore/memory"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/annotator/config.yaml if not provided)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("too few arguments, give an annotated document list as argument")
		fmt.Println("Usage: imgsearch [--config=config.yaml] documents_cat.xml")
		os.Exit(1)
	}

	cfg, _, err := config.LoadFrom(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	// The TUI owns the terminal; keep the logger quiet unless debugging.
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	list, err := docxml.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Fatal("failed to read document list", zap.Error(err))
	}

	feats, err := app.VectorStore(cfg.Search.VectorStore)
	if err != nil {
		logger.Fatal("vector store init failed", zap.Error(err))
	}
	searcher := service.NewSearcher(
		tfidf.NewEmbedder(),
		memory.NewStorage(),
		feats,
		summarizer.NewFrequencySummarizer(),
		cfg.Search.SummaryTerms,
		logger,
	)
	summary, err := searcher.Index(list)
	if err != nil {
		logger.Fatal("indexing failed", zap.Error(err))
	}

	m := tui.New(searcher, summary, cfg.Search.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatalf("TUI error: %v", err)
	}
}
