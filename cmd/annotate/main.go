package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"annotator/internal/app"
	"annotator/internal/config"
	"annotator/internal/docxml"
	"annotator/internal/logging"
	"annotator/internal/report"
	"annotator/internal/runner"
	"annotator/internal/service"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/annotator/config.yaml if not provided)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("too few arguments, give a document list (XML) or \"auto\" as argument")
		fmt.Println("Usage: annotate [--config=config.yaml] documents.xml|auto")
		os.Exit(1)
	}
	input := flag.Arg(0)

	cfg, _, err := config.LoadFrom(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	input, err = resolveInput(ctx, cfg.Annotate, input, logger)
	if err != nil {
		logger.Fatal("no document list", zap.Error(err))
	}

	// Assemble components
	cls, extractor, err := app.Classifier(cfg.Classifier)
	if err != nil {
		logger.Fatal("classifier init failed", zap.Error(err))
	}
	enc, err := app.Encoder(cfg.Features, logger)
	if err != nil {
		logger.Fatal("feature encoder init failed", zap.Error(err))
	}
	dl, err := app.Downloader(cfg.Download, logger)
	if err != nil {
		logger.Fatal("downloader init failed", zap.Error(err))
	}
	loader, err := app.Loader(cfg.Annotate)
	if err != nil {
		logger.Fatal("image loader init failed", zap.Error(err))
	}

	ann := service.NewAnnotator(dl, loader, cls, extractor, enc, service.AnnotateOptions{
		TopK:           cfg.Annotate.TopK,
		DropLocalField: cfg.Annotate.DropLocalField,
		URLStripPrefix: cfg.Annotate.URLStripPrefix,
		KeepDownloaded: cfg.Annotate.KeepDownloaded,
	}, logger)

	out := docxml.OutputPath(input)
	rep, err := ann.Run(ctx, input, out)
	if err != nil {
		logger.Fatal("annotation failed", zap.Error(err))
	}

	fmt.Printf("annotated %d of %d documents -> %s\n", rep.Succeeded(), len(rep.Results), out)
	for _, f := range rep.Failures() {
		fmt.Printf("error with %s: %s\n", f.Key, f.Reason)
	}

	if cfg.Report.Path != "" {
		store, err := report.Open(ctx, cfg.Report.Path)
		if err != nil {
			logger.Error("report store unavailable", zap.Error(err))
			return
		}
		defer store.Close()
		if err := store.Save(ctx, rep); err != nil {
			logger.Error("failed to save report", zap.String("run_id", rep.RunID), zap.Error(err))
			return
		}
		fmt.Printf("report %s saved to %s\n", rep.RunID, cfg.Report.Path)
	}
}

// resolveInput returns the document list to annotate. "auto", or a missing
// file when a downloader is configured, runs the downloader first.
func resolveInput(ctx context.Context, cfg config.AnnotateConfig, input string, logger *zap.Logger) (string, error) {
	auto := strings.EqualFold(input, "auto")
	if !auto {
		if _, err := os.Stat(input); err == nil {
			return input, nil
		} else if cfg.DownloaderCmd == "" {
			return "", fmt.Errorf("give a filename: %w", err)
		}
	}
	if cfg.DownloaderCmd == "" {
		return "", errors.New("auto mode needs annotate.downloader_cmd")
	}
	target := input
	if auto {
		p, err := service.NextListPath(cfg.AutoDir)
		if err != nil {
			return "", err
		}
		target = p
	}
	logger.Info("downloading document list", zap.String("path", target))
	if err := service.DownloadList(ctx, runner.Exec{Logger: logger}, cfg.DownloaderCmd, target); err != nil {
		return "", err
	}
	return target, nil
}
