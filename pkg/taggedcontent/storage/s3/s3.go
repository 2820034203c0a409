// Package s3 provides an object store backed by S3 or an S3-compatible
// service such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
)

// Config options for the S3 store.
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (MinIO)

	CreateBucketIfNotExist bool // Create the bucket if it doesn't exist
}

// Store is an S3 implementation of taggedcontent.ObjectStore.
type Store struct {
	client *s3.Client
	bucket string
	config Config
}

// New creates an S3 store for the configured bucket.
func New(config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	store := &Store{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		bucket: config.Bucket,
		config: config,
	}

	if config.CreateBucketIfNotExist {
		if err := store.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return store, nil
}

func (s *Store) createBucketIfNotExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.config.Region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func key(id uuid.UUID) string {
	name := id.String()
	return name[:2] + "/" + name
}

func (s *Store) AddBytes(ctx context.Context, data []byte) (*taggedcontent.Object, error) {
	id := taggedcontent.ObjectID(data)
	mediaType := taggedcontent.DetectMediaType(data)
	object := &taggedcontent.Object{ID: id, MediaType: mediaType, Size: int64(len(data))}

	if exists, err := s.exists(ctx, id); err != nil {
		return nil, err
	} else if exists {
		return object, nil
	}

	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mediaType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s: %w", id, err)
	}
	return object, nil
}

func (s *Store) AddStream(ctx context.Context, r io.Reader) (*taggedcontent.Object, error) {
	// The identity is only known once the whole stream has been hashed, so
	// spool into a temporary file before uploading.
	tmp, err := os.CreateTemp("", "tagged-content-upload-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	digest := taggedcontent.NewObjectDigest()
	size, err := io.Copy(io.MultiWriter(tmp, digest), r)
	if err != nil {
		return nil, err
	}
	id := taggedcontent.ObjectIDFromDigest(digest)

	head := make([]byte, 512)
	n, err := tmp.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	mediaType := taggedcontent.DetectMediaType(head[:n])
	object := &taggedcontent.Object{ID: id, MediaType: mediaType, Size: size}

	if exists, err := s.exists(ctx, id); err != nil {
		return nil, err
	} else if exists {
		return object, nil
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key(id)),
		Body:        tmp,
		ContentType: aws.String(mediaType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s: %w", id, err)
	}
	return object, nil
}

func (s *Store) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.head(ctx, id)
	if err != nil {
		if taggedcontent.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) head(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) || strings.Contains(err.Error(), "NotFound") {
			return nil, taggedcontent.NotFound("object", id)
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	mediaType := "application/octet-stream"
	if result.ContentType != nil {
		mediaType = *result.ContentType
	}
	return &taggedcontent.Object{ID: id, MediaType: mediaType, Size: aws.ToInt64(result.ContentLength)}, nil
}

func (s *Store) GetObject(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, error) {
	return s.head(ctx, id)
}

func (s *Store) GetObjects(ctx context.Context, ids []uuid.UUID) ([]*taggedcontent.Object, error) {
	objects := make([]*taggedcontent.Object, 0, len(ids))
	for _, id := range ids {
		object, err := s.head(ctx, id)
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (s *Store) GetBytes(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, []byte, error) {
	object, stream, err := s.GetStream(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, nil, err
	}
	return object, data, nil
}

func (s *Store) GetStream(ctx context.Context, id uuid.UUID) (*taggedcontent.Object, io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil, taggedcontent.NotFound("object", id)
		}
		return nil, nil, fmt.Errorf("failed to download object %s: %w", id, err)
	}

	mediaType := "application/octet-stream"
	if result.ContentType != nil {
		mediaType = *result.ContentType
	}
	object := &taggedcontent.Object{ID: id, MediaType: mediaType, Size: aws.ToInt64(result.ContentLength)}
	return object, result.Body, nil
}

func (s *Store) RemoveBatch(ctx context.Context, ids []uuid.UUID) (*taggedcontent.RemoveResult, error) {
	result := &taggedcontent.RemoveResult{}

	for _, id := range ids {
		object, err := s.head(ctx, id)
		if err != nil {
			if taggedcontent.IsNotFound(err) {
				continue
			}
			return result, err
		}

		_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key(id)),
		})
		if err != nil {
			return result, fmt.Errorf("failed to remove object %s: %w", id, err)
		}
		result.Removed = append(result.Removed, id)
		result.SpaceFreed += object.Size
	}
	return result, nil
}
