package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves secrets according to a Config.
type Fetcher interface {
	// Fetch returns the secrets fetched from all endpoints that could be
	// reached. A non-nil error does not mean no secrets were returned: errors
	// from skipped endpoints are reported alongside the secrets fetched from
	// the others.
	Fetch(ctx context.Context, cfg *Config) ([]secretfs.Secret, error)

	// String describes the fetcher, for diagnostics.
	String() string
}

// New returns the fetcher for the given kind: "mock" and "test" select the
// Mock fetcher, and anything else (normally "http" or "https") selects a
// Remote fetcher over mux.
func New(kind string, mux secretfs.SourceMux, log logrus.FieldLogger) Fetcher {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "mock", "test":
		return Mock{}
	case "", "http", "https":
	default:
		if log != nil {
			log.WithField("fetcher", kind).Warn("unknown fetcher type, using the remote fetcher")
		}
	}

	return NewRemote(mux, log)
}

// Remote fetches secrets from the sources registered in a SourceMux.
type Remote struct {
	mux        secretfs.SourceMux
	log        logrus.FieldLogger
	newBackOff func() backoff.BackOff
}

var _ Fetcher = (*Remote)(nil)

// NewRemote returns a fetcher for the sources registered in mux. Failed
// attempts are retried immediately, so an endpoint delays the fetch by at most
// Timeout * (1 + RetryAttempts).
func NewRemote(mux secretfs.SourceMux, log logrus.FieldLogger) *Remote {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Remote{
		mux: mux,
		log: log,
		newBackOff: func() backoff.BackOff {
			return &backoff.ZeroBackOff{}
		},
	}
}

// WithBackOff returns a copy of r which waits between attempts according to
// the policies returned by f. Each endpoint gets a fresh policy.
func (r *Remote) WithBackOff(f func() backoff.BackOff) *Remote {
	if f == nil {
		return r
	}

	out := *r
	out.newBackOff = f

	return &out
}

func (r *Remote) String() string {
	return fmt.Sprintf("remote (%s)", strings.Join(r.mux.Schemes(), ", "))
}

// Fetch fetches from each endpoint in cfg in turn. If cfg is invalid, no
// secrets are fetched and the validation error is returned.
func (r *Remote) Fetch(ctx context.Context, cfg *Config) ([]secretfs.Secret, error) {
	if cfg == nil {
		return nil, ErrNoEndpoints
	}

	if err := cfg.Validate(r.mux); err != nil {
		return nil, fmt.Errorf("invalid fetch configuration: %w", err)
	}

	var (
		secrets []secretfs.Secret
		errs    *multierror.Error
	)

	for _, e := range cfg.Endpoints {
		// already validated, so this can't fail
		u, _ := url.Parse(e)
		log := r.log.WithField("endpoint", u.Redacted())

		fetched, err := r.fetchEndpoint(ctx, log, u, cfg)
		if err != nil {
			log.WithError(err).Warn("skipping endpoint")

			errs = multierror.Append(errs, fmt.Errorf("%s: %w", u.Redacted(), err))

			if ctx.Err() != nil {
				break
			}

			continue
		}

		log.WithField("count", len(fetched)).Debug("fetched secrets")

		secrets = append(secrets, fetched...)
	}

	return secrets, errs.ErrorOrNil()
}

func (r *Remote) fetchEndpoint(ctx context.Context, log logrus.FieldLogger, u *url.URL, cfg *Config) ([]secretfs.Secret, error) {
	src, err := r.mux.New(u)
	if err != nil {
		return nil, err
	}

	// timeouts are applied with per-attempt context deadlines rather than an
	// injected HTTP client, so each source keeps its own transport settings
	src = secretfs.WithHeaderSource(cfg.RequestHeaders(), src)

	if cfg.Token != "" {
		src = secretfs.WithTokenSource(cfg.Token, src)
	}

	// the overall deadline also bounds any waiting done by a custom backoff
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout*time.Duration(1+cfg.RetryAttempts))
	defer cancel()

	attempt := 0

	var secrets []secretfs.Secret

	op := func() error {
		attempt++

		actx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		s, err := src.Fetch(actx)
		if err != nil {
			if attempt <= cfg.RetryAttempts {
				log.WithError(err).WithField("attempt", attempt).Debug("fetch failed, retrying")
			}

			return err
		}

		secrets = s

		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(cfg.RetryAttempts)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempt, err)
	}

	return secrets, nil
}
