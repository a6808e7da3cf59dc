package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/apetrov/assetgate/internal/common"
)

// Seams for the AWS SDK so tests can fake listing without a live backend.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return c.ListObjectsV2(ctx, in, optFns...)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in, optFns...)
	}
)

// S3Options configures the S3-backed lister.
type S3Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	ListTimeout  time.Duration
}

// S3Lister implements Lister against an S3-compatible backend.
type S3Lister struct {
	opts S3Options
}

func NewS3Lister(opts S3Options) *S3Lister {
	return &S3Lister{opts: opts}
}

func (l *S3Lister) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(l.opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			l.opts.AccessKey,
			l.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(l.opts.BaseEndpoint)
	}), nil
}

// List pages through ListObjectsV2 for each prefix. Any backend failure
// fails the whole call; partial listings are never returned.
func (l *S3Lister) List(ctx context.Context, prefixes []string) ([]string, error) {
	if l.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.ListTimeout)
		defer cancel()
	}

	client, err := l.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
	}

	bucket := l.opts.Bucket
	var keys []string
	for _, prefix := range prefixes {
		var continuationToken *string
		for {
			out, err := listObjectsV2(client, ctx, &s3.ListObjectsV2Input{
				Bucket:            &bucket,
				Prefix:            &prefix,
				ContinuationToken: continuationToken,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
			}
			for _, obj := range out.Contents {
				if obj.Key != nil {
					keys = append(keys, *obj.Key)
				}
			}
			if out.IsTruncated == nil || !*out.IsTruncated {
				break
			}
			continuationToken = out.NextContinuationToken
		}
	}
	return keys, nil
}

// Exists probes the object with HeadObject. A NotFound response is a normal
// false, not an error.
func (l *S3Lister) Exists(ctx context.Context, key string) (bool, error) {
	if l.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.ListTimeout)
		defer cancel()
	}

	client, err := l.getClient(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
	}

	bucket := l.opts.Bucket
	_, err = headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrorStorageUnavailable, err)
	}
	return true, nil
}
