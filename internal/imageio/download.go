package imageio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrTooLarge is returned when a download exceeds the configured limit.
var ErrTooLarge = errors.New("download exceeds size limit")

// S3Config enables s3://bucket/key URLs.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	TempDir string
	Timeout time.Duration
	// RatePerSecond limits requests; zero means unlimited.
	RatePerSecond float64
	Burst         int
	MaxBytes      int64
	// S3 is optional.
	S3 *S3Config
}

// Downloader fetches images into temporary files.
type Downloader struct {
	tempDir  string
	maxBytes int64
	client   *http.Client
	limiter  *rate.Limiter
	s3       *minio.Client
	logger   *zap.Logger
}

// NewDownloader creates a downloader. The S3 client is only built when
// cfg.S3 is set.
func NewDownloader(cfg DownloaderConfig, logger *zap.Logger) (*Downloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	d := &Downloader{
		tempDir:  cfg.TempDir,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
	if cfg.S3 != nil {
		mc, err := minio.New(cfg.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
			Secure: cfg.S3.UseSSL,
			Region: cfg.S3.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		d.s3 = mc
	}
	return d, nil
}

// Fetch downloads rawURL into a temporary file. http, https and s3 URLs
// are supported; file URLs and plain paths are returned as they are with a
// no-op cleanup.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, func(), error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", nil, errors.New("empty image url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "", "file":
		return u.Path, func() {}, nil
	case "http", "https", "s3":
	default:
		return "", nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}

	f, err := d.tempFile(u.Path)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }

	start := time.Now()
	var n int64
	if u.Scheme == "s3" {
		n, err = d.copyS3(ctx, f, u)
	} else {
		n, err = d.copyHTTP(ctx, f, rawURL)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	d.logger.Debug("image downloaded",
		zap.String("url", rawURL),
		zap.String("path", name),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)),
	)
	return name, cleanup, nil
}

func (d *Downloader) tempFile(urlPath string) (*os.File, error) {
	ext := strings.ToLower(path.Ext(urlPath))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		ext = ".jpg"
	}
	dir := d.tempDir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.CreateTemp(dir, "img-"+uuid.NewString()+"-*"+ext)
}

func (d *Downloader) copyHTTP(ctx context.Context, w io.Writer, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("GET %s failed: %s", rawURL, resp.Status)
	}
	return d.copyLimited(w, resp.Body)
}

func (d *Downloader) copyS3(ctx context.Context, w io.Writer, u *url.URL) (int64, error) {
	if d.s3 == nil {
		return 0, errors.New("s3 url given but s3 is not configured")
	}
	bucket, key, err := SplitS3URL(u)
	if err != nil {
		return 0, err
	}
	obj, err := d.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()
	return d.copyLimited(w, obj)
}

func (d *Downloader) copyLimited(w io.Writer, r io.Reader) (int64, error) {
	n, err := io.Copy(w, io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return n, err
	}
	if n > d.maxBytes {
		return n, ErrTooLarge
	}
	return n, nil
}

// SplitS3URL returns bucket and object key of an s3://bucket/key URL.
func SplitS3URL(u *url.URL) (string, string, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q", u.String())
	}
	return u.Host, key, nil
}
