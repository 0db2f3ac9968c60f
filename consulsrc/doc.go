// Package consulsrc provides a secret source for HashiCorp Consul's Key/Value
// store.
//
// The schemes "consul", "consul+http" and "consul+https" are supported. If no
// authority part (host:port) is present in the URL, the $CONSUL_HTTP_ADDR
// environment variable (or the Consul client's default) is used. All of the
// Consul client's other environment variables, such as $CONSUL_HTTP_TOKEN and
// $CONSUL_CACERT, are also respected.
//
// When the URL's path ends in "/" it's a key prefix, and every key directly
// under the prefix becomes a secret named for the rest of the key:
//
//	consul://consul.example.com:8500/myapp/secrets/
//
// Keys nested deeper are skipped. Otherwise the path is a single key, and the
// secret is named for the key's last path element.
//
// A Consul ACL token can be set with [secretfs.WithTokenSource]. An
// "Authorization: Bearer" header set with [secretfs.WithHeaderSource] is also
// accepted by Consul.
package consulsrc
