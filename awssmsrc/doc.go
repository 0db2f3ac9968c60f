// Package awssmsrc provides a secret source backed by AWS Secrets Manager.
//
// The URL's path (or opaque part) names either a single secret or, when it
// ends with "/", a prefix. Given a prefix, every secret directly under it is
// exposed as a file named by the rest of its name. Secrets nested more deeply
// are skipped.
//
// A single secret is exposed as a file named by the last element of its name,
// unless the "format" query parameter is set to "json" or "yaml", in which case
// the secret's value is decoded as a secrets document and each of its entries
// becomes a file:
//
//	aws+sm:///prod/app/          # all secrets named /prod/app/*
//	aws+sm:prod/db-password      # one file, "db-password"
//	aws+sm:prod/app?format=json  # the members of the JSON object in prod/app
//
// Credentials and region are taken from the default AWS configuration chain.
// When no region is configured, it is read from the EC2 instance metadata
// service.
//
// A host in the URL is only intended for testing, to point the client at an
// emulator like LocalStack.
package awssmsrc
