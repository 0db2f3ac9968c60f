// Package tracefetch instruments a secret fetcher for distributed tracing.
// The OpenTelemetry API is supported.
//
// In order to report traces, an OTel [trace.TracerProvider] must first be set
// up. The secretfs command does this when run with --tracing.
//
// A [trace.TracerProvider] can optionally be passed to [New] using
// [WithTracerProvider].
package tracefetch

import (
	"context"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/fetcher"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-secretfs/fetcher/tracefetch"

type traceFetcher struct {
	f      fetcher.Fetcher
	tracer trace.Tracer
}

var _ fetcher.Fetcher = (*traceFetcher)(nil)

// New returns a fetcher that wraps f, recording a span for each Fetch call.
func New(f fetcher.Fetcher, opts ...Option) fetcher.Fetcher {
	cfg := config{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}

	return &traceFetcher{f: f, tracer: cfg.tp.Tracer(tracerName)}
}

func (t *traceFetcher) String() string {
	return t.f.String()
}

func (t *traceFetcher) Fetch(ctx context.Context, cfg *fetcher.Config) ([]secretfs.Secret, error) {
	attrs := []trace.SpanStartOption{trace.WithAttributes(Fetcher(t.f.String()))}
	if cfg != nil {
		attrs = append(attrs, trace.WithAttributes(
			Endpoints(len(cfg.Endpoints)),
			Timeout(cfg.Timeout.String()),
			RetryAttempts(cfg.RetryAttempts),
		))
	}

	ctx, span := t.tracer.Start(ctx, "fetcher.Fetch", attrs...)
	defer span.End()

	secrets, err := t.f.Fetch(ctx, cfg)

	span.SetAttributes(Secrets(len(secrets)))

	if err != nil {
		span.RecordError(err)

		// some secrets may still have been fetched
		if len(secrets) == 0 {
			span.SetStatus(codes.Error, "fetch failed")
		}
	}

	return secrets, err
}
