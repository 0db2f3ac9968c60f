// Package fetcher retrieves secrets from remote endpoints, to be merged into a
// secretfs index at startup.
//
// A [Remote] fetcher dispatches each configured endpoint URL to the
// [secretfs.Source] registered for its scheme. Every endpoint is attempted
// once, plus up to [Config.RetryAttempts] retries. An endpoint that still
// fails is skipped, and the secrets from the remaining endpoints are returned
// along with the accumulated errors.
//
// The [Mock] fetcher returns a fixed set of secrets without performing any
// I/O, and can be used in place of [Remote] for local development.
package fetcher
