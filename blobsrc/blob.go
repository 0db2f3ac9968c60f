package blobsrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
)

// withBucketer is a Source that can be configured to use an already-open
// bucket.
type withBucketer interface {
	WithBucket(bucket *blob.Bucket) secretfs.Source
}

// WithBucketSource makes src read from the given bucket instead of opening
// one from its URL, if the source supports it (i.e. has a WithBucket method).
// The bucket's host and any query parameters of the URL are then ignored, and
// the bucket isn't closed by the source.
func WithBucketSource(bucket *blob.Bucket, src secretfs.Source) secretfs.Source {
	if s, ok := src.(withBucketer); ok {
		return s.WithBucket(bucket)
	}

	return src
}

type blobSource struct {
	base    *url.URL
	hclient *http.Client
	bucket  *blob.Bucket
	envfs   fs.FS
	key     string
	format  secretfs.Format
}

// New creates a secret source for the object, or object key prefix, at u.
func New(u *url.URL) (secretfs.Source, error) {
	switch u.Scheme {
	case s3blob.Scheme, gcsblob.Scheme, azureblob.Scheme:
	default:
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: a bucket name is required", u.Redacted())
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, fmt.Errorf("invalid url %q: an object key or key prefix is required", u.Redacted())
	}

	format := secretfs.Format(u.Query().Get("format"))
	switch format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML, secretfs.FormatDotenv:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), format)
	}

	return &blobSource{
		base:    u,
		hclient: http.DefaultClient,
		envfs:   os.DirFS("/"),
		key:     key,
		format:  format,
	}, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, s3blob.Scheme, gcsblob.Scheme, azureblob.Scheme)

func (s *blobSource) URL() string {
	return s.base.Redacted()
}

func (s *blobSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.hclient = client

	return &src
}

func (s *blobSource) WithBucket(bucket *blob.Bucket) secretfs.Source {
	if bucket == nil {
		return s
	}

	src := *s
	src.bucket = bucket

	return &src
}

func (s *blobSource) openBucket(ctx context.Context) (*blob.Bucket, func(), error) {
	if s.bucket != nil {
		return s.bucket, func() {}, nil
	}

	o, err := s.newOpener(ctx, s.base.Scheme)
	if err != nil {
		return nil, nil, err
	}

	u := s.cleanCdkURL(*s.base)
	u.Path = ""

	bucket, err := o.OpenBucketURL(ctx, &u)
	if err != nil {
		return nil, nil, fmt.Errorf("open bucket %s: %w", u.Redacted(), err)
	}

	return bucket, func() { _ = bucket.Close() }, nil
}

func (s *blobSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	bucket, closeBucket, err := s.openBucket(ctx)
	if err != nil {
		return nil, err
	}
	defer closeBucket()

	if strings.HasSuffix(s.key, "/") {
		return s.fetchPrefix(ctx, bucket)
	}

	return s.fetchDocument(ctx, bucket)
}

// fetchDocument reads the object at key and decodes it as a secrets document
func (s *blobSource) fetchDocument(ctx context.Context, bucket *blob.Bucket) ([]secretfs.Secret, error) {
	r, err := bucket.NewReader(ctx, s.key, nil)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: s.key, Err: convertError(err)}
	}
	defer r.Close()

	format := s.format
	if format == "" {
		format = secretfs.FormatOf(r.ContentType(), s.key)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		memlock.Wipe(data)

		return nil, &fs.PathError{Op: "read", Path: s.key, Err: convertError(err)}
	}

	defer memlock.Wipe(data)

	secrets, err := secretfs.DecodeSecrets(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.key, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

// fetchPrefix reads every object directly under the key prefix
func (s *blobSource) fetchPrefix(ctx context.Context, bucket *blob.Bucket) ([]secretfs.Secret, error) {
	secrets := []secretfs.Secret{}

	iter := bucket.List(&blob.ListOptions{Prefix: s.key, Delimiter: "/"})

	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, &fs.PathError{Op: "list", Path: s.key, Err: convertError(err)}
		}

		name := strings.TrimPrefix(obj.Key, s.key)
		if obj.IsDir || name == "" {
			continue
		}

		value, err := bucket.ReadAll(ctx, obj.Key)
		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, &fs.PathError{Op: "read", Path: obj.Key, Err: convertError(err)}
		}

		secrets = append(secrets, secretfs.Secret{Name: name, Source: s.URL(), Value: value})
	}

	return secrets, nil
}
