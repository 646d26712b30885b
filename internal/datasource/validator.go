// Package datasource checks that a simulation's data source actually exists
// before a simulation is created against it. Two backends are provided: the
// local filesystem, and an S3-compatible object store.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
)

var ErrNotFound = errors.New("data source not found")

// Validator reports whether a data source path resolves to readable data.
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// FilesystemValidator resolves data sources against the local filesystem.
type FilesystemValidator struct{}

func (FilesystemValidator) Validate(_ context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrNotFound
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("stat data source: %w", err)
	}
	if info.IsDir() {
		return ErrNotFound
	}
	return nil
}

// ObjectStoreValidator resolves data sources as object keys in a bucket.
type ObjectStoreValidator struct {
	Client *minio.Client
	Bucket string
}

func NewObjectStoreValidator(client *minio.Client, bucket string) (*ObjectStoreValidator, error) {
	if client == nil {
		return nil, errors.New("object store client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &ObjectStoreValidator{Client: client, Bucket: bucket}, nil
}

func (v *ObjectStoreValidator) Validate(ctx context.Context, path string) error {
	if v == nil || v.Client == nil {
		return errors.New("object store validator not initialized")
	}
	key := objectKey(path)
	if key == "" {
		return ErrNotFound
	}
	_, err := v.Client.StatObject(ctx, v.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return ErrNotFound
		}
		return fmt.Errorf("stat data source object: %w", err)
	}
	return nil
}

// objectKey maps a client-supplied path to an object key. Windows-style
// separators from legacy clients are normalized and any drive prefix is
// dropped.
func objectKey(path string) string {
	key := strings.ReplaceAll(strings.TrimSpace(path), `\`, "/")
	if len(key) >= 2 && key[1] == ':' {
		key = key[2:]
	}
	return strings.TrimLeft(key, "/")
}
