package license

import (
	"net/url"
	"strings"

	"sitenav/internal/types"
)

// ExtractTenant derives the tenant identifier from the session's absolute
// URL: the first DNS label in front of a recognized platform domain suffix.
// "https://contoso.sharepoint.com/sites/hub" yields "contoso". A host that
// does not match any suffix yields ErrTenantUnknown; the caller fails closed
// rather than guessing.
func ExtractTenant(baseURL string, suffixes []string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", types.Err(types.ErrTenantUnknown, err, "parse session URL")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", types.Err(types.ErrTenantUnknown, nil, "session URL %q has no host", baseURL)
	}

	for _, suffix := range suffixes {
		s := "." + strings.ToLower(strings.TrimPrefix(suffix, "."))
		if !strings.HasSuffix(host, s) {
			continue
		}
		label := strings.TrimSuffix(host, s)
		// The tenant must be a single leading label; a dotted remainder means
		// the suffix matched somewhere deeper than the registrable domain.
		if label == "" || strings.Contains(label, ".") || !validLabel(label) {
			continue
		}
		return label, nil
	}
	return "", types.Err(types.ErrTenantUnknown, nil, "host %q matches no platform suffix", host)
}

func validLabel(s string) bool {
	if len(s) > 63 || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
