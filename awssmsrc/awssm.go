package awssmsrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/awsconfig"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

// withSMClienter is a Source that can be configured to use the given Secrets
// Manager client.
type withSMClienter interface {
	WithSMClient(smclient SecretsManagerClient) secretfs.Source
}

// WithSMClientSource overrides the AWS Secrets Manager client used by src, if
// the source supports it (i.e. has a WithSMClient method). This can be used
// for configuring specialized client options.
//
// Note that this should not be used together with WithHTTPClient. If you wish
// only to override the HTTP client, use WithHTTPClient alone.
func WithSMClientSource(smclient SecretsManagerClient, src secretfs.Source) secretfs.Source {
	if s, ok := src.(withSMClienter); ok {
		return s.WithSMClient(smclient)
	}

	return src
}

type awssmSource struct {
	base       *url.URL
	httpclient *http.Client
	smclient   SecretsManagerClient
	name       string
	format     secretfs.Format
}

// New creates a secret source for the AWS Secrets Manager secret, or secret
// name prefix, at u. Note that the URL may be either a regular hierarchical
// URL (like "aws+sm:///foo/bar") or an opaque URI (like "aws+sm:foo/bar"),
// depending on how secrets are named in Secrets Manager.
func New(u *url.URL) (secretfs.Source, error) {
	if u.Scheme != "aws+sm" {
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	name := u.Path
	if name == "" {
		name = u.Opaque
	}

	if name == "" || name == "/" {
		return nil, fmt.Errorf("invalid url %q: a secret name or name prefix is required", u.Redacted())
	}

	format := secretfs.Format(u.Query().Get("format"))
	switch format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), format)
	}

	return &awssmSource{base: u, name: name, format: format}, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "aws+sm")

func (s *awssmSource) URL() string {
	return s.base.Redacted()
}

func (s *awssmSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.httpclient = client

	return &src
}

func (s *awssmSource) WithSMClient(smclient SecretsManagerClient) secretfs.Source {
	if smclient == nil {
		return s
	}

	src := *s
	src.smclient = smclient

	return &src
}

func (s *awssmSource) getClient(ctx context.Context) (SecretsManagerClient, error) {
	if s.smclient != nil {
		return s.smclient, nil
	}

	cfg, err := awsconfig.Load(ctx, s.httpclient, nil)
	if err != nil {
		return nil, err
	}

	optFns := []func(*secretsmanager.Options){}

	if endpoint := awsconfig.BaseEndpoint(s.base); endpoint != nil {
		optFns = append(optFns, func(o *secretsmanager.Options) {
			o.BaseEndpoint = endpoint
		})
	}

	return secretsmanager.NewFromConfig(cfg, optFns...), nil
}

func (s *awssmSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(s.name, "/") {
		return s.fetchPrefix(ctx, client)
	}

	value, err := getSecret(ctx, client, s.name)
	if err != nil {
		return nil, err
	}

	if s.format == "" {
		return []secretfs.Secret{{Name: path.Base(s.name), Source: s.URL(), Value: value}}, nil
	}

	defer memlock.Wipe(value)

	secrets, err := secretfs.DecodeSecrets(value, s.format)
	if err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", s.name, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

// fetchPrefix gets every secret directly under the name prefix
func (s *awssmSource) fetchPrefix(ctx context.Context, client SecretsManagerClient) ([]secretfs.Secret, error) {
	names, err := listNames(ctx, client, s.name)
	if err != nil {
		return nil, err
	}

	secrets := make([]secretfs.Secret, 0, len(names))

	for _, name := range names {
		value, err := getSecret(ctx, client, name)
		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, err
		}

		secrets = append(secrets, secretfs.Secret{
			Name:   strings.TrimPrefix(name, s.name),
			Source: s.URL(),
			Value:  value,
		})
	}

	return secrets, nil
}

// listNames returns the sorted names of the secrets directly under prefix
func listNames(ctx context.Context, client SecretsManagerClient, prefix string) ([]string, error) {
	names := []string{}

	var token *string

	for {
		out, err := client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
			Filters:   []smtypes.Filter{{Key: smtypes.FilterNameStringTypeName, Values: []string{prefix}}},
			NextToken: token,
		})
		if err != nil {
			return nil, &fs.PathError{Op: "listSecrets", Path: prefix, Err: convertAWSError(err)}
		}

		for _, entry := range out.SecretList {
			name := aws.ToString(entry.Name)

			// the name filter isn't strictly a prefix match
			rest, ok := strings.CutPrefix(name, prefix)
			if !ok || rest == "" || strings.Contains(rest, "/") {
				continue
			}

			names = append(names, name)
		}

		token = out.NextToken
		if token == nil {
			break
		}
	}

	sort.Strings(names)

	return names, nil
}

func getSecret(ctx context.Context, client SecretsManagerClient, name string) ([]byte, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, &fs.PathError{Op: "getSecretValue", Path: name, Err: convertAWSError(err)}
	}

	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}

	value := make([]byte, len(out.SecretBinary))
	copy(value, out.SecretBinary)

	return value, nil
}

// convertAWSError converts an AWS error into a more general error. SDK types
// don't leak out of the source.
func convertAWSError(err error) error {
	// Secrets Manager can't decrypt the protected secret text using the provided KMS key.
	var dcErr *smtypes.DecryptionFailure
	if errors.As(err, &dcErr) {
		return fmt.Errorf("%w: %s: %s", fs.ErrPermission, dcErr.ErrorCode(), dcErr.ErrorMessage())
	}

	// An error occurred on the server side.
	var internalErr *smtypes.InternalServiceError
	if errors.As(err, &internalErr) {
		return fmt.Errorf("internal error: %s: %s", internalErr.ErrorCode(), internalErr.ErrorMessage())
	}

	return awsconfig.ConvertError(err)
}
