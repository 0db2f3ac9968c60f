package gcpsmsrc

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
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// maxConcurrentReads bounds the AccessSecretVersion calls in flight when a
// whole project is fetched
const maxConcurrentReads = 8

// withSMClienter is a Source that can be configured to use the given Secret
// Manager client.
type withSMClienter interface {
	WithSMClient(smclient SecretManagerClient) secretfs.Source
}

// WithSMClientSource overrides the GCP Secret Manager client used by src, if
// the source supports it (i.e. has a WithSMClient method).
func WithSMClientSource(smclient SecretManagerClient, src secretfs.Source) secretfs.Source {
	if s, ok := src.(withSMClienter); ok {
		return s.WithSMClient(smclient)
	}

	return src
}

type gcpsmSource struct {
	base     *url.URL
	smclient SecretManagerClient
	timeout  time.Duration
	project  string
	secret   string
	version  string
	filter   string
	format   secretfs.Format
}

// New creates a secret source for the Secret Manager secret or project named
// by u.
func New(u *url.URL) (secretfs.Source, error) {
	if u.Scheme != "gcp+sm" {
		return nil, fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}

	project, secret, err := parsePath(u.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", u.Redacted(), err)
	}

	q := u.Query()

	s := &gcpsmSource{
		base:    u,
		project: project,
		secret:  secret,
		version: q.Get("version"),
		filter:  q.Get("filter"),
		format:  secretfs.Format(q.Get("format")),
	}

	switch s.format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), s.format)
	}

	if s.version == "" {
		s.version = "latest"
	}

	if secret == "" && (q.Has("version") || q.Has("format")) {
		return nil, fmt.Errorf("invalid url %q: version and format can only be given for a single secret", u.Redacted())
	}

	return s, nil
}

// parsePath splits a path in the form /projects/<project>[/secrets[/<secret>]]
func parsePath(p string) (project, secret string, err error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] != "projects" || parts[1] == "" {
		return "", "", errors.New("path must start with /projects/<project>")
	}

	project = parts[1]

	switch {
	case len(parts) == 2:
	case len(parts) == 3 && parts[2] == "secrets":
	case len(parts) == 4 && parts[2] == "secrets" && parts[3] != "" && !strings.HasSuffix(p, "/"):
		secret = parts[3]
	default:
		return "", "", errors.New("path must be /projects/<project>/ or /projects/<project>/secrets/<secret>")
	}

	return project, secret, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "gcp+sm")

func (s *gcpsmSource) URL() string {
	return s.base.Redacted()
}

// WithHTTPClient applies the client's timeout. The client itself can't be
// used, since Secret Manager is reached over gRPC.
func (s *gcpsmSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.timeout = client.Timeout

	return &src
}

func (s *gcpsmSource) WithSMClient(smclient SecretManagerClient) secretfs.Source {
	if smclient == nil {
		return s
	}

	src := *s
	src.smclient = smclient

	return &src
}

func (s *gcpsmSource) getClient(ctx context.Context) (SecretManagerClient, func(), error) {
	if s.smclient != nil {
		return s.smclient, func() {}, nil
	}

	opts := []option.ClientOption{}

	// a host in the URL points at a plaintext emulator, only intended for
	// test purposes
	if s.base.Host != "" {
		opts = append(opts,
			option.WithEndpoint(s.base.Host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	c, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("secret manager client: %w", err)
	}

	return &clientAdapter{c}, func() { _ = c.Close() }, nil
}

func (s *gcpsmSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	client, closer, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	defer closer()

	if s.secret == "" {
		return s.fetchProject(ctx, client)
	}

	value, err := access(ctx, client, s.resourceName(s.secret, s.version))
	if err != nil {
		return nil, err
	}

	if s.format == "" {
		return []secretfs.Secret{{Name: s.secret, Source: s.URL(), Value: value}}, nil
	}

	defer memlock.Wipe(value)

	secrets, err := secretfs.DecodeSecrets(value, s.format)
	if err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", s.secret, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

func (s *gcpsmSource) resourceName(secret, version string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", s.project, secret, version)
}

// fetchProject reads the latest version of every secret in the project
func (s *gcpsmSource) fetchProject(ctx context.Context, client SecretManagerClient) ([]secretfs.Secret, error) {
	names, err := s.list(ctx, client)
	if err != nil {
		return nil, err
	}

	secrets := make([]secretfs.Secret, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for i, name := range names {
		g.Go(func() error {
			value, err := access(gctx, client, s.resourceName(name, "latest"))
			if err != nil {
				return err
			}

			secrets[i] = secretfs.Secret{Name: name, Source: s.URL(), Value: value}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		secretfs.WipeAll(secrets)

		return nil, err
	}

	return secrets, nil
}

// list returns the sorted names of the secrets in the project
func (s *gcpsmSource) list(ctx context.Context, client SecretManagerClient) ([]string, error) {
	parent := "projects/" + s.project

	it := client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: parent,
		Filter: s.filter,
	})

	names := []string{}

	for {
		secret, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, &fs.PathError{Op: "listSecrets", Path: parent, Err: convertGCPError(err)}
		}

		// Name is the full resource name: projects/{project}/secrets/{name}
		names = append(names, path.Base(secret.GetName()))
	}

	sort.Strings(names)

	return names, nil
}

func access(ctx context.Context, client SecretManagerClient, name string) ([]byte, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, &fs.PathError{Op: "accessSecretVersion", Path: name, Err: convertGCPError(err)}
	}

	return resp.GetPayload().GetData(), nil
}

// convertGCPError converts a gRPC status error to a filesystem error, so
// that gRPC types don't leak out of the source.
func convertGCPError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() { //nolint:exhaustive
	case codes.NotFound:
		return fmt.Errorf("%w: %s", fs.ErrNotExist, st.Message())
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %s", fs.ErrPermission, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", fs.ErrInvalid, st.Message())
	default:
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
}
