package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dailypy/mediaflow/pkg/logger"
)

// S3Store is an ObjectStore backed by an S3 (or S3 compatible) bucket. Objects
// are uploaded using the multipart upload manager so large videos are
// streamed in parts rather than buffered.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
	baseURL  string
}

// NewS3Store constructs an S3Store using the static credentials in the config
// provided. If no credentials are configured, the default AWS credential chain
// (environment, shared config, instance role) is used instead.
func NewS3Store(ctx context.Context, config Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 store requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Emit(logger.DEBUG, "S3 store configured for bucket %s (region=%s endpoint=%q)\n", config.Bucket, config.Region, config.Endpoint)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   config.Bucket,
		region:   config.Region,
		baseURL:  config.BaseURL,
	}, nil
}

func (store *S3Store) Upload(ctx context.Context, localPath string, key string, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}
	if contentType == "" {
		contentType = ContentTypeFor(localPath)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}
	defer file.Close()

	if _, err := store.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}

	log.Emit(logger.VERBOSE, "Uploaded %s to s3://%s/%s\n", localPath, store.bucket, key)
	return store.PublicURL(key), nil
}

func (store *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := store.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}

	return false, fmt.Errorf("failed to head object '%s': %w", key, err)
}

// Delete removes the object. S3 deletes are idempotent, so true is returned
// even if the key did not exist.
func (store *S3Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return false, fmt.Errorf("failed to delete object '%s': %w", key, err)
	}

	return true, nil
}

// List returns every key in the bucket beginning with prefix, following
// pagination until the listing is exhausted.
func (store *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(store.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(store.bucket),
		Prefix: aws.String(prefix),
	})

	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix '%s': %w", prefix, err)
		}

		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

func (store *S3Store) PublicURL(key string) string {
	return BuildPublicURL(store.baseURL, store.bucket, store.region, key)
}
