package filestore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
)

// s3API is the part of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps files in a bucket of an S3 compatible object storage (AWS, MinIO).
type S3Store struct {
	client s3API
	bucket string
}

var _ core.FileStore = (*S3Store)(nil) // interface compliance check

var loadDefaultAWSConfig = config.LoadDefaultConfig // mockable

func NewS3Store(ctx context.Context, conf core.StorageConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(conf.S3Region)}
	if conf.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.S3AccessKey, conf.S3SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: conf.S3Bucket}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := core.CleanKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err = s.client.PutObject(ctx, in); err != nil {
		return errors.Wrap(err, "putting object")
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := core.CleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "getting object")
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := core.CleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "deleting object")
}
