package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveProvider stores rendered compliance documents so an auditor
// can retrieve exactly what was sent to the provider.
type ArchiveProvider interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type LocalArchiveProvider struct {
	Path string
}

func (p *LocalArchiveProvider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	dst := filepath.Join(p.Path, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return dst, nil
}

type MinioArchiveProvider struct {
	Client *minio.Client
	Bucket string
}

func (p *MinioArchiveProvider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", p.Bucket, key), nil
}

// NewArchiveProvider selects the backend from config, minio or local.
func NewArchiveProvider(cfg config.ArchiveConfig) (ArchiveProvider, error) {
	if cfg.Type == util.StorageMinio {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return &MinioArchiveProvider{Client: client, Bucket: cfg.MinioBucket}, nil
	}
	return &LocalArchiveProvider{Path: cfg.LocalPath}, nil
}
