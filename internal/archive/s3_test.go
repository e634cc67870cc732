package archive

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"obslog/internal/logbook"
)

// fakeS3 keeps objects in memory. Multipart calls are not implemented;
// documents in tests stay below the single-part threshold.
type fakeS3 struct {
	s3Client
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Archive(t *testing.T) {
	testArchiveContract(t, func(t *testing.T) logbook.DocumentArchive {
		return NewS3Archive(newFakeS3(), "logs", "obslog/")
	})

	t.Run("object keys carry the prefix", func(t *testing.T) {
		fake := newFakeS3()
		a := NewS3Archive(fake, "logs", "obslog/")
		doc := "<oal/>"
		if err := a.PutDocument(context.Background(), "rec-9", bytes.NewReader([]byte(doc)), int64(len(doc))); err != nil {
			t.Fatalf("PutDocument() error = %v", err)
		}
		if _, ok := fake.objects["logs/obslog/documents/rec-9.oal"]; !ok {
			t.Errorf("objects = %v, want key logs/obslog/documents/rec-9.oal", keys(fake.objects))
		}
	})
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
