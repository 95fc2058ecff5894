package tag

import (
	"net/netip"
	"net/url"
	"strings"
)

// IsSafeURL reports whether raw is acceptable as a remote artwork location.
// Only http(s) URLs are allowed, and literal addresses in loopback,
// link-local, private (RFC1918), or unspecified ranges are refused. Artwork
// URLs come from source-site metadata, so they are treated as untrusted
// input that could otherwise steer the server into its own network.
func IsSafeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return isSafeHost(u.Hostname())
}

func isSafeHost(host string) bool {
	if host == "" || strings.EqualFold(host, "localhost") {
		return false
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// Not an IP literal; hostname fetches are allowed.
		return true
	}
	addr = addr.Unmap()

	switch {
	case addr.IsLoopback(),
		addr.IsUnspecified(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast():
		return false
	}
	return true
}
