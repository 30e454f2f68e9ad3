// Package s3 implements storage.Mirror on an S3-compatible bucket.
//
// Directories are emulated with prefixes plus a zero-byte marker object
// ("<dir>/") so empty folders survive. Moving a directory copies every object
// under its prefix and then deletes the originals.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"portal/internal/storage"
)

// S3 allows max 1000 objects per delete request
const maxDeleteBatch = 1000

// API is the subset of the S3 client used by the mirror.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Config contains configuration for the S3 mirror.
type Config struct {
	Client    API
	Bucket    string
	KeyPrefix string // optional, e.g. "portal/"
	// CopyConcurrency bounds parallel CopyObject calls during directory moves (default 8)
	CopyConcurrency int
	Logger          *slog.Logger
}

// Mirror stores the tree as objects in a bucket.
type Mirror struct {
	client      API
	bucket      string
	keyPrefix   string
	concurrency int
	logger      *slog.Logger
}

var _ storage.Mirror = (*Mirror)(nil)

// New creates an S3 mirror. The bucket must already exist.
func New(cfg Config) (*Mirror, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	concurrency := cfg.CopyConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Mirror{
		client:      cfg.Client,
		bucket:      cfg.Bucket,
		keyPrefix:   prefix,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

func (m *Mirror) objectKey(p string) string { return m.keyPrefix + p }
func (m *Mirror) dirKey(p string) string    { return m.keyPrefix + p + "/" }

func (m *Mirror) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return false, err
	}

	ok, err := m.objectExists(ctx, m.objectKey(clean))
	if err != nil || ok {
		return ok, err
	}

	out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(m.bucket),
		Prefix:  aws.String(m.dirKey(clean)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, unavailable("list", clean, err)
	}
	return len(out.Contents) > 0, nil
}

func (m *Mirror) MakeDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.dirKey(clean)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return unavailable("mkdir", clean, err)
	}
	return nil
}

// Move handles both single objects and directory prefixes.
func (m *Mirror) Move(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := storage.Clean(oldPath)
	if err != nil {
		return err
	}
	to, err := storage.Clean(newPath)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	isFile, err := m.objectExists(ctx, m.objectKey(from))
	if err != nil {
		return err
	}
	if isFile {
		if err := m.copyObject(ctx, m.objectKey(from), m.objectKey(to)); err != nil {
			return err
		}
		return m.deleteKeys(ctx, []string{m.objectKey(from)})
	}

	keys, err := m.listKeys(ctx, m.dirKey(from))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("move %s: %w", from, storage.ErrNotExist)
	}

	srcPrefix, dstPrefix := m.dirKey(from), m.dirKey(to)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			return m.copyObject(gctx, key, dstPrefix+strings.TrimPrefix(key, srcPrefix))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.logger.Debug("s3 prefix moved", "from", from, "to", to, "objects", len(keys))
	return m.deleteKeys(ctx, keys)
}

func (m *Mirror) DeleteRecursive(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	keys, err := m.listKeys(ctx, m.dirKey(clean))
	if err != nil {
		return err
	}
	isFile, err := m.objectExists(ctx, m.objectKey(clean))
	if err != nil {
		return err
	}
	if isFile {
		keys = append(keys, m.objectKey(clean))
	}
	return m.deleteKeys(ctx, keys)
}

// WriteFile uploads in a single PutObject, which S3 applies atomically.
func (m *Mirror) WriteFile(ctx context.Context, dirPath, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := storage.Clean(dirPath)
	if err != nil {
		return err
	}
	target, err := storage.Clean(path.Join(dir, filename))
	if err != nil {
		return err
	}
	if path.Dir(target) != dir {
		return fmt.Errorf("filename %q: %w", filename, storage.ErrInvalidPath)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.objectKey(target)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return unavailable("put", target, err)
	}
	m.logger.Debug("object written", "key", m.objectKey(target), "size", humanize.Bytes(uint64(len(data))))
	return nil
}

func (m *Mirror) DeleteFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	ok, err := m.objectExists(ctx, m.objectKey(clean))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", clean, storage.ErrNotExist)
	}
	_, err = m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.objectKey(clean)),
	})
	if err != nil {
		return unavailable("delete", clean, err)
	}
	return nil
}

func (m *Mirror) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return nil, err
	}
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.objectKey(clean)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %s: %w", clean, storage.ErrNotExist)
		}
		return nil, unavailable("get", clean, err)
	}
	return out.Body, nil
}

func (m *Mirror) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, unavailable("head", key, err)
	}
	return true, nil
}

func (m *Mirror) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

func (m *Mirror) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := m.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(m.bucket),
		CopySource: aws.String(copySource(m.bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return unavailable("copy", srcKey, err)
	}
	return nil
}

func (m *Mirror) deleteKeys(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += maxDeleteBatch {
		end := min(i+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		result, err := m.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(m.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return unavailable("delete batch", keys[i], err)
		}
		if len(result.Errors) > 0 {
			first := result.Errors[0]
			return fmt.Errorf("%w: delete %s: %s", storage.ErrUnavailable,
				aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// copySource builds the URL-encoded "bucket/key" form CopyObject expects.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: s3 %s %s: %w", storage.ErrUnavailable, op, key, err)
}
