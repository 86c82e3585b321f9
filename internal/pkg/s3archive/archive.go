// Package s3archive stores raw billing webhook payloads in S3-compatible
// object storage.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

// Archiver writes one object per webhook event.
type Archiver struct {
	client *s3.Client
	bucket string
	log    *zap.Logger
}

// New builds an archiver from cfg. It does not contact the bucket.
func New(ctx context.Context, cfg config.Archive, log *zap.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("webhook archive is disabled")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Archiver{client: client, bucket: cfg.Bucket, log: log}, nil
}

// ObjectKey is webhooks/<yyyy>/<mm>/<dd>/<event id>.json in UTC.
func ObjectKey(eventID string, receivedAt time.Time) string {
	return fmt.Sprintf("webhooks/%s/%s.json", receivedAt.UTC().Format("2006/01/02"), eventID)
}

// ArchiveWebhook uploads payload unchanged.
func (a *Archiver) ArchiveWebhook(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error {
	key := ObjectKey(eventID, receivedAt)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata: map[string]string{
			"event-id": eventID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	a.log.Debug("archived webhook payload", zap.String("event_id", eventID), zap.String("key", key))
	return nil
}
