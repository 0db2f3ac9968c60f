// Package gcpsmsrc provides a secret source backed by Google Cloud Secret
// Manager.
//
// The "gcp+sm" scheme is supported. The URL's path names either a single
// secret, or a whole project:
//
//	gcp+sm:///projects/my-project/secrets/db-password
//	gcp+sm:///projects/my-project/secrets/app-config?format=json
//	gcp+sm:///projects/my-project/
//	gcp+sm:///projects/my-project/?filter=labels.app%3Dmyapp
//
// A single secret is exposed as a file with the secret's name. When the
// "format" query parameter is "json" or "yaml", the secret's value is decoded
// as a secrets document instead, and each of its entries becomes a file.
//
// Given a project, every secret in the project is exposed, each as a file
// with the secret's name. The "filter" query parameter is passed to the
// ListSecrets call, to select a subset of secrets.
//
// The latest version of each secret is read, unless the "version" query
// parameter is set (single secrets only).
//
// The client is configured with Application Default Credentials. A specialized
// client can be set with [WithSMClientSource]. An HTTP client given with
// [secretfs.WithHTTPClientSource] only contributes its timeout, since the
// service is reached over gRPC.
package gcpsmsrc
