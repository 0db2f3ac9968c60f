package awssmpsrc

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
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/awsconfig"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

// withClienter is a Source that can be configured to use the given Systems
// Manager client.
type withClienter interface {
	WithClient(client SSMClient) secretfs.Source
}

// WithClientSource overrides the AWS Systems Manager client used by src, if
// the source supports it (i.e. has a WithClient method).
//
// Usually, client would be a [*github.com/aws/aws-sdk-go-v2/service/ssm.Client]
// created using [github.com/aws/aws-sdk-go-v2/service/ssm.NewFromConfig].
func WithClientSource(client SSMClient, src secretfs.Source) secretfs.Source {
	if s, ok := src.(withClienter); ok {
		return s.WithClient(client)
	}

	return src
}

type awssmpSource struct {
	base       *url.URL
	httpclient *http.Client
	ssmclient  SSMClient
	format     secretfs.Format
}

// New creates a secret source for the Parameter Store parameter, or parameter
// hierarchy, at u.
func New(u *url.URL) (secretfs.Source, error) {
	if u.Scheme != "aws+smp" {
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	if u.Opaque != "" {
		return nil, fmt.Errorf("aws+smp URL must not be opaque %q", u.Redacted())
	}

	base := *u

	// allow "aws+smp:" to mean "aws+smp:///"
	if base.Path == "" {
		base.Path = "/"
	}

	format := secretfs.Format(u.Query().Get("format"))
	switch format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), format)
	}

	return &awssmpSource{base: &base, format: format}, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "aws+smp")

func (s *awssmpSource) URL() string {
	return s.base.Redacted()
}

func (s *awssmpSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.httpclient = client

	return &src
}

func (s *awssmpSource) WithClient(ssmclient SSMClient) secretfs.Source {
	if ssmclient == nil {
		return s
	}

	src := *s
	src.ssmclient = ssmclient

	return &src
}

func (s *awssmpSource) getClient(ctx context.Context) (SSMClient, error) {
	if s.ssmclient != nil {
		return s.ssmclient, nil
	}

	cfg, err := awsconfig.Load(ctx, s.httpclient, nil)
	if err != nil {
		return nil, err
	}

	optFns := []func(*ssm.Options){}

	if endpoint := awsconfig.BaseEndpoint(s.base); endpoint != nil {
		optFns = append(optFns, func(o *ssm.Options) {
			o.BaseEndpoint = endpoint
		})
	}

	return ssm.NewFromConfig(cfg, optFns...), nil
}

func (s *awssmpSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(s.base.Path, "/") {
		return s.fetchPath(ctx, client)
	}

	name := s.base.Path

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
		// decrypt the parameter if it's a SecureString
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, &fs.PathError{Op: "getParameter", Path: name, Err: convertAWSError(err)}
	}

	value := []byte(aws.ToString(out.Parameter.Value))

	if s.format == "" {
		return []secretfs.Secret{{Name: path.Base(name), Source: s.URL(), Value: value}}, nil
	}

	defer memlock.Wipe(value)

	secrets, err := secretfs.DecodeSecrets(value, s.format)
	if err != nil {
		return nil, fmt.Errorf("decode parameter %q: %w", name, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

// fetchPath gets every parameter directly under the hierarchy
func (s *awssmpSource) fetchPath(ctx context.Context, client SSMClient) ([]secretfs.Secret, error) {
	// the root is "/", but other hierarchies have no trailing slash
	hierarchy := s.base.Path
	if hierarchy != "/" {
		hierarchy = strings.TrimSuffix(hierarchy, "/")
	}

	secrets := []secretfs.Secret{}

	var token *string

	for {
		out, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(hierarchy),
			Recursive:      aws.Bool(false),
			WithDecryption: aws.Bool(true),
			NextToken:      token,
		})
		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, &fs.PathError{Op: "getParametersByPath", Path: hierarchy, Err: convertAWSError(err)}
		}

		for _, p := range out.Parameters {
			secrets = append(secrets, secretfs.Secret{
				Name:   path.Base(aws.ToString(p.Name)),
				Source: s.URL(),
				Value:  []byte(aws.ToString(p.Value)),
			})
		}

		token = out.NextToken
		if token == nil {
			break
		}
	}

	sort.SliceStable(secrets, func(i, j int) bool {
		return secrets[i].Name < secrets[j].Name
	})

	return secrets, nil
}

// convertAWSError converts an AWS error into a more general error. SDK types
// don't leak out of the source.
func convertAWSError(err error) error {
	// We can't find the parameter that you asked for.
	var nfErr *types.ParameterNotFound
	if errors.As(err, &nfErr) {
		return fmt.Errorf("%w: %s", fs.ErrNotExist, nfErr.ErrorMessage())
	}

	// An error occurred on the server side.
	var internalErr *types.InternalServerError
	if errors.As(err, &internalErr) {
		return fmt.Errorf("internal error: %s: %s", internalErr.ErrorCode(), internalErr.ErrorMessage())
	}

	return awsconfig.ConvertError(err)
}
