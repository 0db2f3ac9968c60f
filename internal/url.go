package internal

import (
	"net/url"
	"strings"
)

// ServerAddress returns the address of the server referenced by a compound URL
// scheme such as "vault+https" or "consul+http". The scheme prefix (e.g.
// "vault") alone maps to defScheme. An empty string is returned when u has no
// host, so that the client library's own defaults (usually from the
// environment) apply.
func ServerAddress(u *url.URL, prefix, defScheme string) string {
	if u.Host == "" {
		return ""
	}

	scheme := strings.TrimPrefix(u.Scheme, prefix+"+")
	if scheme == prefix {
		scheme = defScheme
	}

	return scheme + "://" + u.Host
}
