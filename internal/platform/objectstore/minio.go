// Package objectstore provides the S3-compatible client used to hold
// simulation data source files.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/weatherstream-labs/weatherstream-go/internal/platform/env"
)

type Config struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Region            string
	UseSSL            bool
	BucketDataSources string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("WEATHERSTREAM_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:          env.String("WEATHERSTREAM_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:         env.String("WEATHERSTREAM_MINIO_ACCESS_KEY", "weatherstream"),
		SecretKey:         env.String("WEATHERSTREAM_MINIO_SECRET_KEY", "weatherstream"),
		Region:            env.String("WEATHERSTREAM_MINIO_REGION", "us-east-1"),
		UseSSL:            useSSL,
		BucketDataSources: env.String("WEATHERSTREAM_MINIO_BUCKET_DATASOURCES", "datasources"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("WEATHERSTREAM_MINIO_ENDPOINT is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("WEATHERSTREAM_MINIO_ACCESS_KEY is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("WEATHERSTREAM_MINIO_SECRET_KEY is required")
	}
	if strings.TrimSpace(c.BucketDataSources) == "" {
		return errors.New("WEATHERSTREAM_MINIO_BUCKET_DATASOURCES is required")
	}
	return nil
}

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func EnsureBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.BucketDataSources)
	if err != nil {
		return fmt.Errorf("data sources bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.BucketDataSources, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make data sources bucket: %w", err)
	}
	return nil
}

func CheckBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, cfg.BucketDataSources)
	if err != nil {
		return fmt.Errorf("data sources bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("data sources bucket missing: %s", cfg.BucketDataSources)
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
