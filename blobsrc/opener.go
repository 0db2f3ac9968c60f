package blobsrc

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/hairyhenderson/go-secretfs/internal/env"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"
)

// create the correct kind of blob.BucketURLOpener for the given scheme
func (s *blobSource) newOpener(ctx context.Context, scheme string) (blob.BucketURLOpener, error) {
	switch scheme {
	case s3blob.Scheme, azureblob.Scheme:
		// see https://gocloud.dev/concepts/urls/#muxes
		return blob.DefaultURLMux(), nil
	case gcsblob.Scheme:
		if env.GetenvFS(s.envfs, "GOOGLE_ANON") == "true" {
			return &gcsblob.URLOpener{
				Client: gcp.NewAnonymousHTTPClient(s.hclient.Transport),
			}, nil
		}

		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve GCP credentials: %w", err)
		}

		client, err := gcp.NewHTTPClient(
			s.hclient.Transport,
			gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP HTTP client: %w", err)
		}

		return &gcsblob.URLOpener{Client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", scheme)
	}
}

// copy/sanitize the URL for the Go CDK - it doesn't like params it can't parse
func (s *blobSource) cleanCdkURL(u url.URL) url.URL {
	switch u.Scheme {
	case s3blob.Scheme:
		return s.cleanS3URL(u)
	case gcsblob.Scheme:
		return keepParams(u, "access_id", "private_key_path")
	case azureblob.Scheme:
		return keepParams(u, "domain")
	default:
		return u
	}
}

func (s *blobSource) cleanS3URL(u url.URL) url.URL {
	u = keepParams(u, "region", "endpoint", "disableSSL", "s3ForcePathStyle")

	q := u.Query()

	if q.Get("endpoint") == "" {
		endpoint := env.GetenvFS(s.envfs, "AWS_S3_ENDPOINT")
		if endpoint != "" {
			q.Set("endpoint", endpoint)
		}
	}

	if q.Get("region") == "" {
		region := env.GetenvFS(s.envfs, "AWS_REGION", env.GetenvFS(s.envfs, "AWS_DEFAULT_REGION"))
		if region != "" {
			q.Set("region", region)
		}
	}

	u.RawQuery = q.Encode()

	return u
}

// keepParams removes every query parameter not named in keep
func keepParams(u url.URL, keep ...string) url.URL {
	q := u.Query()

	for param := range q {
		found := false

		for _, k := range keep {
			if param == k {
				found = true

				break
			}
		}

		if !found {
			q.Del(param)
		}
	}

	u.RawQuery = q.Encode()

	return u
}

// convertError converts a Go CDK error into a more general error
func convertError(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	case gcerrors.PermissionDenied:
		return fmt.Errorf("%w: %w", fs.ErrPermission, err)
	case gcerrors.InvalidArgument:
		return fmt.Errorf("%w: %w", fs.ErrInvalid, err)
	}

	return err
}
