// Package archive keeps a copy of every purchased label in S3-compatible storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iurnickita/primelabel/internal/archive/config"
)

type Archive interface {
	Put(ctx context.Context, orderID, trackingID, label string) error
}

const (
	defaultRegion  = "us-east-1"
	zplContentType = "application/x-zpl"
)

// putObjectAPI is the part of *s3.Client the archive uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Archive struct {
	client putObjectAPI
	bucket string
}

type nopArchive struct{}

func (nopArchive) Put(context.Context, string, string, string) error { return nil }

// NewArchive returns a no-op archive when no bucket is configured.
func NewArchive(ctx context.Context, cfg config.Config) (Archive, error) {
	if cfg.Bucket == "" {
		return nopArchive{}, nil
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &s3Archive{client: client, bucket: cfg.Bucket}, nil
}

func (a *s3Archive) Put(ctx context.Context, orderID, trackingID, label string) error {
	if orderID == "" || trackingID == "" {
		return errors.New("archive key requires order id and tracking id")
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(orderID, trackingID)),
		Body:        strings.NewReader(label),
		ContentType: aws.String(zplContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload label: %w", err)
	}
	return nil
}

// ObjectKey is labels/<orderId>/<trackingId>.zpl
func ObjectKey(orderID, trackingID string) string {
	return path.Join("labels", safeSegment(orderID), safeSegment(trackingID)+".zpl")
}

func safeSegment(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}
