// Package app assembles the configured components for the commands.
package app

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"annotator/internal/classifier/openai"
	"annotator/internal/classifier/tfserving"
	"annotator/internal/config"
	"annotator/internal/domain"
	"annotator/internal/features"
	"annotator/internal/features/command"
	"annotator/internal/imageio"
	"annotator/internal/runner"
	"annotator/internal/vectorstore"
	"annotator/internal/vectorstore/memory"
	"annotator/internal/vectorstore/qdrant"
)

// Classifier builds the configured classifier. The feature extractor is nil
// when the classifier cannot produce feature vectors.
func Classifier(cfg config.ClassifierConfig) (domain.Classifier, domain.FeatureExtractor, error) {
	switch cfg.Type {
	case "tfserving", "":
		if cfg.TFServing == nil {
			return nil, nil, fmt.Errorf("tfserving classifier config missing")
		}
		t := cfg.TFServing
		client, err := tfserving.NewClient(tfserving.Config{
			BaseURL:      t.BaseURL,
			APIKeyEnv:    t.APIKeyEnv,
			Model:        t.Model,
			FeatureModel: t.FeatureModel,
			LabelsPath:   t.LabelsPath,
			Timeout:      time.Duration(t.TimeoutSecs) * time.Second,
			MaxRetries:   t.MaxRetries,
			JPEGQuality:  t.JPEGQuality,
		})
		if err != nil {
			return nil, nil, err
		}
		if t.FeatureModel == "" {
			return client, nil, nil
		}
		return client, client, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, nil, fmt.Errorf("openai classifier config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown classifier: %s", cfg.Type)
}

// Encoder builds the configured feature encoder.
func Encoder(cfg config.FeaturesConfig, logger *zap.Logger) (domain.FeatureEncoder, error) {
	switch cfg.Encoder {
	case "raw", "":
		return features.Raw{}, nil
	case "lire":
		s := features.DefaultBitSampler()
		if cfg.Bundles > 0 {
			s.Bundles = cfg.Bundles
		}
		if cfg.Bits > 0 {
			s.Bits = cfg.Bits
		}
		if cfg.Seed != 0 {
			s.Seed = cfg.Seed
		}
		return features.NewLire(s), nil
	case "command":
		return command.New(command.Config{Command: cfg.Command, Type: cfg.Type}, runner.Exec{Logger: logger})
	}
	return nil, fmt.Errorf("unknown feature encoder: %s", cfg.Encoder)
}

// Downloader builds the image downloader. S3 credentials are read from the
// configured env vars.
func Downloader(cfg config.DownloadConfig, logger *zap.Logger) (*imageio.Downloader, error) {
	dc := imageio.DownloaderConfig{
		TempDir:       cfg.TempDir,
		Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		MaxBytes:      cfg.MaxBytes,
	}
	if cfg.S3 != nil {
		dc.S3 = &imageio.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: os.Getenv(cfg.S3.AccessKeyEnv),
			SecretKey: os.Getenv(cfg.S3.SecretKeyEnv),
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		}
	}
	return imageio.NewDownloader(dc, logger)
}

// Loader builds the image loader for the classifier input size.
func Loader(cfg config.AnnotateConfig) (*imageio.Loader, error) {
	interp, err := imageio.ParseInterpolation(cfg.Interpolation)
	if err != nil {
		return nil, err
	}
	return imageio.NewLoader(cfg.ImageSize, interp), nil
}

// VectorStore builds the configured vector store.
func VectorStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Distance:   cfg.Qdrant.Distance,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}
