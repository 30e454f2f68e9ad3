package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/storage"
)

// fakeBucket is an in-memory stand-in for a single S3 bucket.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	var contents []types.Object
	for _, k := range f.keys() {
		if strings.HasPrefix(k, prefix) {
			contents = append(contents, types.Object{Key: aws.String(k)})
		}
		if in.MaxKeys != nil && int32(len(contents)) >= *in.MaxKeys {
			break
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("connection refused")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	src, err := url.PathUnescape(aws.ToString(in.CopySource))
	if err != nil {
		return nil, err
	}
	_, key, _ := strings.Cut(src, "/")
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestMirror(t *testing.T) (*Mirror, *fakeBucket) {
	t.Helper()
	bucket := newFakeBucket()
	m, err := New(Config{
		Client:    bucket,
		Bucket:    "docs",
		KeyPrefix: "portal",
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return m, bucket
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Bucket: "docs"})
	assert.Error(t, err)

	_, err = New(Config{Client: newFakeBucket()})
	assert.Error(t, err)
}

func TestMirror_MakeDirCreatesMarker(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestMirror(t)

	require.NoError(t, m.MakeDir(ctx, "enterprises/acme/legal"))
	assert.Equal(t, []string{"portal/enterprises/acme/legal/"}, bucket.keys())

	ok, err := m.Exists(ctx, "enterprises/acme/legal")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Exists(ctx, "enterprises/acme")
	require.NoError(t, err)
	assert.True(t, ok, "parent prefix counts as a directory")
}

func TestMirror_MoveDirectory(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestMirror(t)

	require.NoError(t, m.MakeDir(ctx, "legal/contracts"))
	require.NoError(t, m.WriteFile(ctx, "legal/contracts", "nda v2.pdf", []byte("pdf")))
	require.NoError(t, m.WriteFile(ctx, "legal/contracts/2024", "a.txt", []byte("a")))

	require.NoError(t, m.Move(ctx, "legal/contracts", "legal/agreements"))

	assert.Equal(t, []string{
		"portal/legal/agreements/",
		"portal/legal/agreements/2024/a.txt",
		"portal/legal/agreements/nda v2.pdf",
	}, bucket.keys())
}

func TestMirror_MoveFile(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestMirror(t)

	require.NoError(t, m.WriteFile(ctx, "legal", "nda.pdf", []byte("pdf")))
	require.NoError(t, m.Move(ctx, "legal/nda.pdf", "legal/nda-signed.pdf"))
	assert.Equal(t, []string{"portal/legal/nda-signed.pdf"}, bucket.keys())
}

func TestMirror_MoveMissing(t *testing.T) {
	m, _ := newTestMirror(t)
	err := m.Move(context.Background(), "nope", "other")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestMirror_DeleteRecursive(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestMirror(t)

	require.NoError(t, m.MakeDir(ctx, "legal"))
	require.NoError(t, m.WriteFile(ctx, "legal/contracts", "a.pdf", []byte("a")))
	require.NoError(t, m.WriteFile(ctx, "hr", "b.pdf", []byte("b")))

	require.NoError(t, m.DeleteRecursive(ctx, "legal"))
	assert.Equal(t, []string{"portal/hr/b.pdf"}, bucket.keys())
}

func TestMirror_ReadAndDeleteFile(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMirror(t)

	require.NoError(t, m.WriteFile(ctx, "legal", "nda.pdf", []byte("pdf")))

	rc, err := m.ReadStream(ctx, "legal/nda.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))

	require.NoError(t, m.DeleteFile(ctx, "legal/nda.pdf"))
	assert.ErrorIs(t, m.DeleteFile(ctx, "legal/nda.pdf"), storage.ErrNotExist)

	_, err = m.ReadStream(ctx, "legal/nda.pdf")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestMirror_PutFailureIsUnavailable(t *testing.T) {
	m, bucket := newTestMirror(t)
	bucket.failPut = true

	err := m.MakeDir(context.Background(), "legal")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestCopySource(t *testing.T) {
	assert.Equal(t, "docs/portal/a%20b/c.pdf", copySource("docs", "portal/a b/c.pdf"))
}
