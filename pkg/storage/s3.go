// Package storage downloads uploaded files from S3.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// ObjectGetter is the part of the S3 API the reader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Reader struct {
	client ObjectGetter
	logger *zap.Logger
}

// NewS3Reader builds a reader from the default AWS credential chain, which
// inside Lambda is the function's execution role.
func NewS3Reader(ctx context.Context, region string, logger *zap.Logger) (*S3Reader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewS3ReaderWithClient(s3.NewFromConfig(awsCfg), logger), nil
}

func NewS3ReaderWithClient(client ObjectGetter, logger *zap.Logger) *S3Reader {
	return &S3Reader{client: client, logger: logging.OrNop(logger)}
}

// Read returns the whole body of bucket/key.
func (r *S3Reader) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	r.logger.Debug("object downloaded", zap.String("bucket", bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return body, nil
}
