package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrPublishingDisabled is returned by NewS3Uploader when no bucket is configured.
var ErrPublishingDisabled = errors.New("artifact publishing disabled")

// Uploader writes an object to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Uploader uploads objects with the S3 transfer manager.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

// NewS3Uploader builds an uploader from static credentials, or the default
// credential chain when no key is given.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrPublishingDisabled
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

// Upload puts body at key in the configured bucket.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Publisher copies artifacts to remote storage behind a circuit breaker.
type Publisher struct {
	uploader Uploader
	prefix   string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

// NewPublisher creates a publisher. The breaker opens after five consecutive failures.
func NewPublisher(uploader Uploader, prefix string, log zerolog.Logger) *Publisher {
	l := log.With().Str("component", "artifact_publisher").Logger()
	return &Publisher{
		uploader: uploader,
		prefix:   prefix,
		timeout:  30 * time.Second,
		log:      l,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "artifact-publisher",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
	}
}

// Key returns the object key for an artifact id.
func (p *Publisher) Key(id string) string {
	return path.Join(p.prefix, id+".wav")
}

// Publish uploads the WAV and returns its key.
func (p *Publisher) Publish(ctx context.Context, id string, wav []byte) (string, error) {
	key := p.Key(id)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.uploader.Upload(ctx, key, wav, "audio/wav")
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish artifact %s: %w", id, err)
	}

	p.log.Debug().Str("key", key).Int("bytes", len(wav)).Msg("Artifact published")
	return key, nil
}

// State returns the circuit breaker state.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}
