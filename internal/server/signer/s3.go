package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/server/metrics"
)

// Seams for the AWS SDK so tests can fake signing without a live backend.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Options configures the S3-backed signer.
type S3Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	TTLCeiling   time.Duration
	SignTimeout  time.Duration
}

// S3Signer mints presigned S3 URLs. It satisfies Signer.
type S3Signer struct {
	opts S3Options
}

func NewS3Signer(opts S3Options) *S3Signer {
	return &S3Signer{opts: opts}
}

func (s *S3Signer) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.AccessKey,
			s.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.opts.BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// Sign validates the key and TTL, then presigns a PUT or GET for exactly
// that key. The signing call is bounded by SignTimeout; failures surface as
// ErrorStorageUnavailable since the signer is an external collaborator.
func (s *S3Signer) Sign(ctx context.Context, objectKey string, op Operation, ttl time.Duration) (*Credential, error) {
	if err := ValidateKey(objectKey); err != nil {
		return nil, err
	}
	if err := ValidateTTL(ttl, s.opts.TTLCeiling); err != nil {
		return nil, err
	}

	if s.opts.SignTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SignTimeout)
		defer cancel()
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
	}

	bucket := s.opts.Bucket
	issuedAt := time.Now()

	var req *v4.PresignedHTTPRequest
	switch op {
	case OperationUpload:
		req, err = presignPutObject(presignClient, ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &objectKey,
		}, s3.WithPresignExpires(ttl))
	case OperationDownload:
		req, err = presignGetObject(presignClient, ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &objectKey,
		}, s3.WithPresignExpires(ttl))
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", common.ErrorValidation, op)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
	}

	metrics.CredentialsMinted.WithLabelValues(string(op)).Inc()

	return &Credential{
		ObjectKey: objectKey,
		Operation: op,
		URL:       req.URL,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}
