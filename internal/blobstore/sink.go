// Package blobstore archives raw upstream payloads to an S3-compatible
// object store under deterministic, idempotent keys.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	maxAttempts = 5
	retryDelay  = time.Second
)

// Sink is the interface the ingestion core depends on; S3Sink is the only
// production implementation.
type Sink interface {
	PutJSON(ctx context.Context, key string, payload any) bool
}

// MetricsRecorder is satisfied by metrics.Sink; kept as a narrow interface
// here so blobstore does not import the metrics package's Prometheus
// dependency directly.
type MetricsRecorder interface {
	ObserveBlobUpload(key string, duration time.Duration, success bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveBlobUpload(string, time.Duration, bool) {}

// S3Sink uploads JSON payloads to a single bucket. Same key always
// overwrites — uploads are idempotent by construction.
type S3Sink struct {
	client      *s3.Client
	bucket      string
	metrics     MetricsRecorder
	stageToDisk bool
}

// NewS3Sink builds an S3Sink from a bucket name and optional static
// credentials file path. An empty credentialsPath falls back to the
// default AWS credential chain (env vars, shared config, instance role).
// stageToDisk selects the original indexer's write-to-temp-file-then-upload
// path, which some S3-compatible backends handle better for very large
// block payloads than uploading straight from memory.
func NewS3Sink(ctx context.Context, bucket, credentialsPath string, stageToDisk bool) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if credentialsPath != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{credentialsPath}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	return &S3Sink{
		client:      s3.NewFromConfig(cfg),
		bucket:      bucket,
		metrics:     noopRecorder{},
		stageToDisk: stageToDisk,
	}, nil
}

// WithMetrics attaches a metrics recorder, returning the sink for chaining.
func (s *S3Sink) WithMetrics(m MetricsRecorder) *S3Sink {
	s.metrics = m
	return s
}

// PutJSON serializes payload and uploads it to key, retrying up to
// maxAttempts times with a fixed delay between attempts. It returns false
// when payload cannot be marshaled (no upload is attempted), when ctx is
// cancelled while waiting between attempts, or once every attempt has
// failed.
func (s *S3Sink) PutJSON(ctx context.Context, key string, payload any) bool {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[blobstore] marshal failed for key %s: %v", key, err)
		s.metrics.ObserveBlobUpload(key, time.Since(start), false)
		return false
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.putOnce(ctx, key, body)
		if err == nil {
			s.metrics.ObserveBlobUpload(key, time.Since(start), true)
			return true
		}
		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				s.metrics.ObserveBlobUpload(key, time.Since(start), false)
				return false
			}
		}
	}

	log.Printf("[blobstore] upload failed after %d attempts for key %s: %v", maxAttempts, key, lastErr)
	s.metrics.ObserveBlobUpload(key, time.Since(start), false)
	return false
}

// putOnce uploads body to key, staging it through a local temp file first
// when the sink is configured to do so, mirroring the original indexer's
// write-then-upload-then-remove sequence.
func (s *S3Sink) putOnce(ctx context.Context, key string, body []byte) error {
	if !s.stageToDisk {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	}

	f, err := os.CreateTemp("", "blobstore-*.json")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	staged := f.Name()
	defer os.Remove(staged)

	if _, err := f.Write(body); err != nil {
		f.Close()
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}

	stagedFile, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("reopen staging file: %w", err)
	}
	defer stagedFile.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        stagedFile,
		ContentType: aws.String("application/json"),
	})
	return err
}

// BlockKey builds the deterministic key for a block payload.
func BlockKey(registryName, chainID string, height int64) string {
	return fmt.Sprintf("%s/%s/blocks/%d.json", registryName, chainID, height)
}

// TxsKey builds the deterministic key for a tx_responses payload.
func TxsKey(registryName, chainID string, height int64) string {
	return fmt.Sprintf("%s/%s/txs/%d.json", registryName, chainID, height)
}
