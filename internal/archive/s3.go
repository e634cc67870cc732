package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"obslog/internal/logbook"
)

// s3Client is the subset of the S3 API the archive uses.
type s3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Archive stores documents as objects under <prefix>documents/<key>.oal.
// Uploads go through the multipart upload manager so documents of unknown
// length stream without buffering.
type S3Archive struct {
	client   s3Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ logbook.DocumentArchive = (*S3Archive)(nil)

// NewS3Archive creates an archive on an S3 client.
func NewS3Archive(client s3Client, bucket, prefix string) *S3Archive {
	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (a *S3Archive) objectKey(key string) string {
	return a.prefix + path.Join("documents", key+".oal")
}

func (a *S3Archive) PutDocument(ctx context.Context, key string, r io.Reader, size int64) error {
	cr := &countingReader{r: r}
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
		Body:   cr,
	})
	if err != nil {
		return fmt.Errorf("uploading document %s: %w", key, err)
	}
	if size >= 0 && cr.n != size {
		_ = a.DeleteDocument(ctx, key)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

func (a *S3Archive) GetDocument(ctx context.Context, key string, w io.Writer) error {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: %s", logbook.ErrDocumentNotFound, key)
		}
		return fmt.Errorf("fetching document %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading document %s: %w", key, err)
	}
	return nil
}

// DeleteDocument removes the object. S3 deletes of missing keys succeed.
func (a *S3Archive) DeleteDocument(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable with the
// configured credentials.
func (a *S3Archive) ValidateSetup(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err != nil {
		return fmt.Errorf("archive bucket %s not accessible: %w", a.bucket, err)
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
