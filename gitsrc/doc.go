// Package gitsrc provides a secret source for files in git repositories.
//
// The repository is cloned into memory for every fetch. Nothing is written to
// local disk, and the clone is discarded once the secrets have been read.
//
// # Usage
//
// The schemes "git", "git+file", "git+http", "git+https" and "git+ssh" are
// supported. The URL's path names the repository, followed by "//" and the
// path of the secrets inside it:
//
//	git+https://github.com/example/config.git//prod/secrets.json
//	git+ssh://git@github.com/example/config.git//prod/secrets.yaml
//	git+file:///srv/repos/config//secrets.env
//
// A path inside the repository names either a secrets document (JSON, YAML or
// dotenv), whose format is taken from the "format" query parameter or the
// file's extension, or a directory when it ends in "/". Every regular file
// directly in a directory becomes a secret named by the file's name, and
// hidden files are skipped.
//
//	git+https://github.com/example/config.git//prod/secrets/
//
// A branch or tag can be chosen with the URL fragment. A bare name is taken as
// a branch, and a name starting with "refs/" is used as-is:
//
//	git+https://github.com/example/config.git//secrets.json#staging
//	git+https://github.com/example/config.git//secrets.json#refs/tags/v1.2.0
//
// Without a fragment, the remote's default branch is cloned.
//
// # Authentication
//
// By default, the method is chosen by [AutoAuthenticator] from the URL and the
// environment. A specific method can be set with [WithAuthenticatorSource].
//
// These environment variables are read (each also supports a _FILE variant,
// naming a file holding the value):
//
//	GIT_HTTP_PASSWORD - password for HTTP Basic authentication
//	GIT_HTTP_TOKEN - bearer token for HTTP token authentication
//	GIT_SSH_KEY - PEM-encoded private key (optionally base64-encoded) for SSH
//
// SSH authentication falls back to the agent at $SSH_AUTH_SOCK.
package gitsrc
