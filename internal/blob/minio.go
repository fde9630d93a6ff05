package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/storage"
)

// MinioOptions configures a connection to MinIO or another S3-compatible
// service.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// MinioStore keeps each bundle as a single object. PutObject replaces an
// object atomically, so readers see either the old or the new bundle.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore wraps an existing client.
func NewMinioStore(client *minio.Client, bucket, prefix string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, prefix: prefix}
}

// DialMinio creates a client from opts and makes sure the bucket exists.
func DialMinio(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket not configured")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", opts.Bucket, err)
		}
	}

	return NewMinioStore(client, opts.Bucket, opts.Prefix), nil
}

// Key returns the object key of the bundle at p.
func (s *MinioStore) Key(p string) string {
	return path.Join(s.prefix, p, storage.BundleFile)
}

// Load downloads and decodes the bundle at p.
func (s *MinioStore) Load(ctx context.Context, p string) (kg.Data, error) {
	key := s.Key(p)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return kg.Data{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return kg.Data{}, fmt.Errorf("stat %s: %w", key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return kg.Data{}, fmt.Errorf("getting %s: %w", key, err)
	}
	defer obj.Close()

	d, err := storage.ReadBundle(obj)
	if err != nil {
		return kg.Data{}, fmt.Errorf("reading bundle %s: %w", p, err)
	}
	return d, nil
}

// Save encodes d and uploads it as one object.
func (s *MinioStore) Save(ctx context.Context, p string, d kg.Data) error {
	data, err := storage.EncodeBundle(d)
	if err != nil {
		return err
	}

	key := s.Key(p)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zstd",
	})
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
