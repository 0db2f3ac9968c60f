// Package blobsrc provides a secret source backed by object storage, using
// the Go CDK (gocloud.dev). Amazon S3 ("s3"), Google Cloud Storage ("gs") and
// Azure Blob Storage ("azblob") are supported.
//
// A URL whose path ends in "/" names a prefix, and every object directly
// under it is exposed as a file named by the rest of its key:
//
//	s3://mybucket/prod/app/
//
// Otherwise the URL names a single object holding a secrets document (JSON,
// YAML or dotenv), and each of the document's entries becomes a file. The
// format is taken from the "format" query parameter, the object's content
// type, or its key's extension, in that order:
//
//	gs://mybucket/prod/secrets.yaml
//	azblob://container/secrets?format=json
//
// Credentials are found the usual way for each provider. Setting GOOGLE_ANON
// to "true" makes anonymous requests to GCS. AWS_REGION
// (or AWS_DEFAULT_REGION) and AWS_S3_ENDPOINT are honoured when the URL
// doesn't set "region" or "endpoint".
package blobsrc
