package gcpsmsrc

import (
	"context"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// SecretIterator matches the Next method of *secretmanager.SecretIterator
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// SecretManagerClient is the subset of the Secret Manager client used by this
// package.
type SecretManagerClient interface {
	AccessSecretVersion(
		ctx context.Context,
		req *secretmanagerpb.AccessSecretVersionRequest,
		opts ...gax.CallOption,
	) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest, opts ...gax.CallOption) SecretIterator
}

// clientAdapter adapts the real client's ListSecrets, which returns a concrete
// iterator type
type clientAdapter struct {
	*secretmanager.Client
}

func (c *clientAdapter) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest, opts ...gax.CallOption) SecretIterator {
	return c.Client.ListSecrets(ctx, req, opts...)
}
