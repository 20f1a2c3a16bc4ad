package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"annotator/internal/config"
	"annotator/internal/export"
	"annotator/internal/logging"
	"annotator/internal/weights"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		expected int
		format   string
		outPath  string
		keyRoot  string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.IntVar(&expected, "expected", -1, "Expected number of classes per image (0 disables the check; default from config)")
	flag.StringVar(&format, "format", "", "Output format: csv, xlsx, json or xml (default from config or --out extension)")
	flag.StringVar(&outPath, "out", "", "Output file (default stdout; required for xlsx)")
	flag.StringVar(&keyRoot, "root", "", "Prefix for image keys (default from config)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: weights [--config=config.yaml] [--expected N] [--format csv|xlsx|json|xml] [--out file] weights.log")
		os.Exit(1)
	}

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

	opts := weights.Options{
		ExpectedCount:    cfg.Weights.ExpectedCount,
		KeyPrefixLen:     cfg.Weights.KeyPrefixLen,
		KeyRoot:          cfg.Weights.KeyRoot,
		NormalizeSlashes: cfg.Weights.NormalizeSlashes,
	}
	if expected >= 0 {
		opts.ExpectedCount = expected
	}
	if keyRoot != "" {
		opts.KeyRoot = keyRoot
	}

	if format == "" && outPath != "" {
		format = filepath.Ext(outPath)
	}
	if format == "" {
		format = cfg.Weights.Format
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		logger.Fatal("bad format", zap.Error(err))
	}
	if f == export.FormatXLSX && outPath == "" {
		logger.Fatal("xlsx output needs --out")
	}

	in, err := os.Open(flag.Arg(0))
	if err != nil {
		logger.Fatal("cannot open log", zap.Error(err))
	}
	defer in.Close()

	set, diags, err := weights.Parse(in, opts)
	if err != nil {
		logger.Fatal("parse failed", zap.Error(err))
	}
	report(logger, diags)
	logger.Info("log parsed",
		zap.Int("images", set.Len()),
		zap.Int("classes", len(set.Vocabulary())),
		zap.Int("diagnostics", len(diags)),
	)

	var w io.Writer = os.Stdout
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			logger.Fatal("cannot create output", zap.Error(err))
		}
		defer file.Close()
		w = file
	}
	exportDiags, err := export.Write(w, f, set, opts.ExpectedCount)
	if err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
	report(logger, exportDiags)
}

// report prints diagnostics the way the analysis output is read, one per
// line on stderr, and logs them.
func report(logger *zap.Logger, diags []weights.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
		logger.Debug("diagnostic",
			zap.String("kind", string(d.Kind)),
			zap.String("key", d.Key),
			zap.Int("count", d.Count),
			zap.Int("line", d.Line),
		)
	}
	if n := len(diags); n > 0 {
		logger.Warn("consistency findings", zap.Int("count", n), zap.String("kinds", kinds(diags)))
	}
}

func kinds(diags []weights.Diagnostic) string {
	seen := map[weights.DiagnosticKind]bool{}
	var out []string
	for _, d := range diags {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			out = append(out, string(d.Kind))
		}
	}
	return strings.Join(out, ",")
}
