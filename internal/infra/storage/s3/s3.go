package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/EgorLis/event-gallery/internal/domain"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

type Storage struct {
	cl     *minio.Client
	bucket string
	logger *log.Logger
}

var _ domain.ObjectStore = (*Storage)(nil)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	s := &Storage{cl: cl, bucket: cfg.Bucket, logger: logger}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureBucket creates the bucket on first start (MinIO/local setups).
func (s *Storage) ensureBucket(ctx context.Context, region string) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %q: %w", s.bucket, err)
	}
	if ok {
		s.logger.Printf("bucket %q ready", s.bucket)
		return nil
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", s.bucket, err)
	}
	s.logger.Printf("bucket %q created", s.bucket)
	return nil
}

func (s *Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	_, err := s.cl.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Printf("PUT %q failed after %s: %v", key, time.Since(start), err)
		return fmt.Errorf("%w: put %q: %v", domain.ErrStorageUnavailable, key, err)
	}
	s.logger.Printf("PUT %q ok in %s (%d bytes)", key, time.Since(start), len(data))
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (domain.Object, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return domain.Object{}, s.classify("GET", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces NoSuchKey before the body is read
	info, err := obj.Stat()
	if err != nil {
		return domain.Object{}, s.classify("STAT", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return domain.Object{}, s.classify("READ", key, err)
	}
	return domain.Object{Data: data, ContentType: info.ContentType}, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Printf("DELETE %q failed: %v", key, err)
		return fmt.Errorf("%w: delete %q: %v", domain.ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.cl.BucketExists(ctx, s.bucket)
	return err
}

func (s *Storage) classify(op, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		s.logger.Printf("%s %q: not found", op, key)
		return fmt.Errorf("%w: object %q", domain.ErrNotFound, key)
	}
	s.logger.Printf("%s %q failed: %v", op, key, err)
	return fmt.Errorf("%w: %s %q: %v", domain.ErrStorageUnavailable, op, key, err)
}
