package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TFServingConfig holds configuration for the model server classifier.
type TFServingConfig struct {
	BaseURL      string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	Model        string `yaml:"model"`
	FeatureModel string `yaml:"feature_model"`
	LabelsPath   string `yaml:"labels_path" validate:"required_with=Model"`
	TimeoutSecs  int    `yaml:"timeout_secs" validate:"gte=0"`
	MaxRetries   int    `yaml:"max_retries" validate:"gte=0"`
	JPEGQuality  int    `yaml:"jpeg_quality" validate:"gte=0,lte=100"`
}

// OpenAIVisionConfig holds configuration for the vision chat classifier.
type OpenAIVisionConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// ClassifierConfig selects and configures the image classifier.
type ClassifierConfig struct {
	Type      string              `yaml:"type" validate:"oneof=tfserving openai"`
	TFServing *TFServingConfig    `yaml:"tfserving,omitempty"`
	OpenAI    *OpenAIVisionConfig `yaml:"openai,omitempty"`
}

// FeaturesConfig selects the feature encoder.
type FeaturesConfig struct {
	Encoder string `yaml:"encoder" validate:"oneof=raw lire command"`
	// Command is the conversion tool invoked by the command encoder.
	Command string `yaml:"command" validate:"required_if=Encoder command"`
	Type    string `yaml:"type"`
	Bundles int    `yaml:"bundles" validate:"gte=0"`
	Bits    int    `yaml:"bits" validate:"gte=0,lte=63"`
	Seed    int64  `yaml:"seed"`
}

// S3Config contains connection details for s3:// image URLs.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" validate:"required"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// DownloadConfig configures image fetching.
type DownloadConfig struct {
	TempDir       string    `yaml:"temp_dir"`
	TimeoutSecs   int       `yaml:"timeout_secs" validate:"gte=0"`
	RatePerSecond float64   `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int       `yaml:"burst" validate:"gte=0"`
	MaxBytes      int64     `yaml:"max_bytes" validate:"gte=0"`
	S3            *S3Config `yaml:"s3,omitempty"`
}

// AnnotateConfig configures the annotation run.
type AnnotateConfig struct {
	TopK           int    `yaml:"top_k" validate:"gte=1"`
	ImageSize      int    `yaml:"image_size" validate:"gte=1"`
	Interpolation  string `yaml:"interpolation" validate:"omitempty,oneof=nearest bilinear bicubic lanczos3"`
	DropLocalField bool   `yaml:"drop_local_field"`
	URLStripPrefix string `yaml:"url_strip_prefix"`
	KeepDownloaded bool   `yaml:"keep_downloaded"`
	// DownloaderCmd produces a fresh document list in AutoDir.
	DownloaderCmd  string `yaml:"downloader_cmd"`
	AutoDir        string `yaml:"auto_dir"`
}

// defaultKeyPrefixLen cuts the "./" of image lines.
const defaultKeyPrefixLen = 2

// WeightsConfig configures the weights log parser.
type WeightsConfig struct {
	ExpectedCount    int    `yaml:"expected_count" validate:"gte=0"`
	KeyPrefixLen     int    `yaml:"key_prefix_len" validate:"gte=0"`
	KeyRoot          string `yaml:"key_root"`
	NormalizeSlashes bool   `yaml:"normalize_slashes"`
	Format           string `yaml:"format" validate:"omitempty,oneof=csv xlsx json xml"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type" validate:"oneof=memory qdrant"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SearchConfig configures the annotated collection browser.
type SearchConfig struct {
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	TopK         int               `yaml:"top_k" validate:"gte=1"`
	SummaryTerms int               `yaml:"summary_terms" validate:"gte=0"`
}

// ReportConfig configures where run reports are kept.
type ReportConfig struct {
	// Path of the sqlite database; empty disables persistence.
	Path string `yaml:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Features   FeaturesConfig   `yaml:"features"`
	Download   DownloadConfig   `yaml:"download"`
	Annotate   AnnotateConfig   `yaml:"annotate"`
	Weights    WeightsConfig    `yaml:"weights"`
	Search     SearchConfig     `yaml:"search"`
	Report     ReportConfig     `yaml:"report"`
	Log        LogConfig        `yaml:"log"`
}

// Validate checks the struct tags.
func (c *AppConfig) Validate() error {
	return validator.New().Struct(c)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	// seeded so an explicit key_prefix_len: 0 survives decoding
	cfg := AppConfig{Weights: WeightsConfig{KeyPrefixLen: defaultKeyPrefixLen}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/annotator/config.yaml.
// If neither exists, it writes defaults to ~/.config/annotator/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// LoadFrom loads path when given, LoadDefault otherwise.
func LoadFrom(path string) (*AppConfig, string, error) {
	if path == "" {
		return LoadDefault()
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "annotator", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Classifier: ClassifierConfig{
			Type: "tfserving",
			TFServing: &TFServingConfig{
				BaseURL:     "http://localhost:8501",
				Model:       "resnet50",
				LabelsPath:  "imagenet_class_index.json",
				TimeoutSecs: 30,
				MaxRetries:  3,
				JPEGQuality: 90,
			},
		},
		Features:  FeaturesConfig{Encoder: "raw", Type: "short"},
		Download:  DownloadConfig{TimeoutSecs: 60, RatePerSecond: 4, Burst: 4, MaxBytes: 32 << 20},
		Annotate:  AnnotateConfig{TopK: 5, ImageSize: 224, Interpolation: "nearest", URLStripPrefix: "", AutoDir: "."},
		Weights:   WeightsConfig{ExpectedCount: 32, KeyPrefixLen: defaultKeyPrefixLen, Format: "csv"},
		Search:    SearchConfig{VectorStore: VectorStoreConfig{Type: "memory"}, TopK: 10, SummaryTerms: 10},
		Log:       LogConfig{Level: "info"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Classifier.Type == "" {
		cfg.Classifier.Type = "tfserving"
	}
	if cfg.Classifier.Type == "tfserving" {
		if cfg.Classifier.TFServing == nil {
			cfg.Classifier.TFServing = &TFServingConfig{}
		}
		t := cfg.Classifier.TFServing
		if t.BaseURL == "" {
			t.BaseURL = "http://localhost:8501"
		}
		if t.Model == "" && t.FeatureModel == "" {
			t.Model = "resnet50"
		}
		if t.TimeoutSecs == 0 {
			t.TimeoutSecs = 30
		}
		if t.JPEGQuality == 0 {
			t.JPEGQuality = 90
		}
	}
	if cfg.Classifier.Type == "openai" {
		if cfg.Classifier.OpenAI == nil {
			cfg.Classifier.OpenAI = &OpenAIVisionConfig{}
		}
		o := cfg.Classifier.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 60
		}
	}
	if cfg.Features.Encoder == "" {
		cfg.Features.Encoder = "raw"
	}
	if cfg.Features.Type == "" {
		cfg.Features.Type = "short"
	}
	if cfg.Download.TimeoutSecs == 0 {
		cfg.Download.TimeoutSecs = 60
	}
	if cfg.Annotate.TopK == 0 {
		cfg.Annotate.TopK = 5
	}
	if cfg.Annotate.ImageSize == 0 {
		cfg.Annotate.ImageSize = 224
	}
	if cfg.Annotate.AutoDir == "" {
		cfg.Annotate.AutoDir = "."
	}
	if cfg.Search.VectorStore.Type == "" {
		cfg.Search.VectorStore.Type = "memory"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
