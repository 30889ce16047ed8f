// Package storage archives raw fetch payloads to S3-compatible object
// storage so every committed fact can be traced back to the bytes the
// driver actually saw.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	ingestapp "github.com/mezze/backend/internal/application/ingestion"
	"github.com/mezze/backend/internal/domain/ingestion"
	infraconfig "github.com/mezze/backend/internal/infrastructure/config"
)

// Ensure S3PayloadArchive implements PayloadArchiver
var _ ingestapp.PayloadArchiver = (*S3PayloadArchive)(nil)

// S3PayloadArchive writes one JSON envelope per ingestion run. It works
// against any S3-compatible backend (AWS S3, MinIO, et al.)
type S3PayloadArchive struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3PayloadArchiveOption is a functional option for S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(a *S3PayloadArchive) {
		a.logger = logger
	}
}

// NewS3PayloadArchive creates an archive from configuration
func NewS3PayloadArchive(cfg *infraconfig.ArchiveConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-west-2"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	// Static credentials for MinIO-style deployments; an empty pair
	// falls through to the default AWS credential chain.
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("archive access key and secret must be set together")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archive := &S3PayloadArchive{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Call during
// application startup.
func (a *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		// Another instance won the race
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// fetchEnvelope is the archived JSON document for one run
type fetchEnvelope struct {
	RunID       string           `json:"run_id"`
	SourceCode  string           `json:"source_code"`
	WindowStart *time.Time       `json:"window_start,omitempty"`
	WindowEnd   *time.Time       `json:"window_end,omitempty"`
	ArchivedAt  time.Time        `json:"archived_at"`
	Records     []archivedRecord `json:"records"`
}

type archivedRecord struct {
	SourceRef  string            `json:"source_ref"`
	Fields     map[string]string `json:"fields"`
	Provenance map[string]string `json:"provenance,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// ArchiveFetch writes the run's raw records as a single JSON object
func (a *S3PayloadArchive) ArchiveFetch(ctx context.Context, run *ingestion.IngestionRun, records []ingestion.RawRecord) error {
	if run == nil {
		return errors.New("run is required")
	}

	envelope := newFetchEnvelope(run, records, time.Now().UTC())
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal archive envelope: %w", err)
	}

	key := archiveKey(run, envelope.ArchivedAt)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive fetch payload: %w", err)
	}

	a.logger.Debug("Raw fetch payload archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

func newFetchEnvelope(run *ingestion.IngestionRun, records []ingestion.RawRecord, archivedAt time.Time) fetchEnvelope {
	envelope := fetchEnvelope{
		RunID:      run.ID.String(),
		SourceCode: run.SourceCode.String(),
		ArchivedAt: archivedAt,
		Records:    make([]archivedRecord, 0, len(records)),
	}
	if window := run.Window(); !window.IsZero() {
		start, end := window.Start, window.End
		envelope.WindowStart = &start
		envelope.WindowEnd = &end
	}
	for _, rec := range records {
		envelope.Records = append(envelope.Records, archivedRecord{
			SourceRef:  rec.SourceRef,
			Fields:     rec.Fields,
			Provenance: rec.Provenance,
			FetchedAt:  rec.FetchedAt,
		})
	}
	return envelope
}

// archiveKey partitions objects by source and month so retention
// policies can expire whole prefixes
func archiveKey(run *ingestion.IngestionRun, archivedAt time.Time) string {
	return fmt.Sprintf("raw/%s/%s/%s.json",
		run.SourceCode.String(),
		archivedAt.Format("2006/01"),
		run.ID.String(),
	)
}
