package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"folio-go/internal/folio"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // for S3-compatible services; enables path-style addressing
	AccessKeyID     string // static credentials; the default chain is used when empty
	SecretAccessKey string
}

// S3Store stores blobs as objects named <prefix>/<hash>.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store builds an S3 client from opts and the default AWS configuration.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Store) key(hash string) string {
	if s.prefix == "" {
		return hash
	}
	return path.Join(s.prefix, hash)
}

// Put uploads content unless an object for hash already exists.
func (s *S3Store) Put(ctx context.Context, hash string, r io.Reader, size int64) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	exists, err := s.Has(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		return drain(r, size)
	}

	counter := &countingReader{r: r}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
		Body:   counter,
	})
	if err != nil {
		return fmt.Errorf("uploading blob %s: %w", hash, err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, hash string, w io.Writer) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return fmt.Errorf("downloading blob %s: %w", hash, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading blob %s: %w", hash, err)
	}
	return nil
}

func (s *S3Store) Has(ctx context.Context, hash string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking blob %s: %w", hash, err)
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ folio.BlobStore = (*S3Store)(nil)
