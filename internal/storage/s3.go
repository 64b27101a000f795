package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	cacheerrors "github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

const defaultS3Key = "tiercache/snapshot.json"

// S3Backend persists the archival tier's snapshot as a single S3 object.
// Suited to the cold tier, where persistence frequency is low and retrieval
// latency is tolerable.
type S3Backend struct {
	client *s3.Client
	bucket string
	key    string
	logger *slog.Logger
}

// S3Options configures an S3Backend. Endpoint is optional and supports
// S3-compatible stores in tests and on-prem deployments.
type S3Options struct {
	Bucket   string
	Region   string
	Key      string
	Endpoint string
}

// s3API is the subset of the S3 client the backend uses, extracted so tests
// can substitute a fake.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Backend builds an S3 backend using the default AWS credential chain.
func NewS3Backend(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Backend, error) {
	if opts.Bucket == "" {
		return nil, cacheerrors.New(cacheerrors.ErrCodeInvalidConfig, "s3 backend requires a bucket").
			WithComponent("storage")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, cacheerrors.Wrap(err, cacheerrors.ErrCodeBackendUnavailable, "failed to load aws config").
			WithComponent("storage")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	key := opts.Key
	if key == "" {
		key = defaultS3Key
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Backend{client: client, bucket: opts.Bucket, key: key, logger: logger}, nil
}

// Load fetches and decodes the snapshot object. A missing object means a
// fresh start, not an error.
func (b *S3Backend) Load(ctx context.Context) (map[string]types.PersistedEntry, error) {
	return loadFromS3(ctx, b.client, b.bucket, b.key, b.logger)
}

func loadFromS3(ctx context.Context, api s3API, bucket, key string, logger *slog.Logger) (map[string]types.PersistedEntry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out, err := api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return map[string]types.PersistedEntry{}, nil
		}
		return nil, cacheerrors.Wrap(err, cacheerrors.ErrCodeBackendLoad, "failed to fetch snapshot from s3").
			WithComponent("storage").WithOperation("load").WithDetail("bucket", bucket)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, cacheerrors.Wrap(err, cacheerrors.ErrCodeBackendLoad, "failed to read snapshot body").
			WithComponent("storage").WithOperation("load")
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]types.PersistedEntry, len(snapshot.Entries))
	for k, entry := range snapshot.Entries {
		if Checksum(entry.Value) != entry.Checksum {
			logger.Warn("dropping snapshot entry with checksum mismatch", "key", k)
			continue
		}
		entries[k] = entry
	}
	return entries, nil
}

// Persist encodes and uploads the snapshot object.
func (b *S3Backend) Persist(ctx context.Context, entries map[string]types.PersistedEntry) error {
	return persistToS3(ctx, b.client, b.bucket, b.key, entries)
}

func persistToS3(ctx context.Context, api s3API, bucket, key string, entries map[string]types.PersistedEntry) error {
	data, err := encodeSnapshot(entries)
	if err != nil {
		return err
	}

	_, err = api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return cacheerrors.Wrap(err, cacheerrors.ErrCodeBackendPersist, "failed to upload snapshot to s3").
			WithComponent("storage").WithOperation("persist").WithDetail("bucket", bucket)
	}
	return nil
}

// Close is a no-op; the S3 client holds no persistent connections.
func (b *S3Backend) Close() error {
	return nil
}
