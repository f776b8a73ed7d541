package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

// ErrInvalidBaseURL is wrapped by every ValidateBaseURL failure.
var ErrInvalidBaseURL = errors.New("invalid OPENROUTER_BASE_URL")

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only absolute https URLs without credentials, query
// or fragment whose host is allowed. An empty allow list means the public
// OpenRouter hosts.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if reason := rejectReason(u, allowedHostSet(allowedHosts)); reason != "" {
		return fmt.Errorf("%w %q: %s", ErrInvalidBaseURL, baseURL, reason)
	}
	return nil
}

func rejectReason(u *url.URL, allowed map[string]struct{}) string {
	host := strings.ToLower(u.Hostname())
	switch {
	case !u.IsAbs() || u.Host == "":
		return "absolute URL with host is required"
	case u.User != nil:
		return "userinfo is not allowed"
	case u.RawQuery != "" || u.Fragment != "":
		return "query and fragment are not allowed"
	case host == "":
		return "host is required"
	case !strings.EqualFold(u.Scheme, "https"):
		return "https is required"
	}
	if _, ok := allowed[host]; !ok {
		return fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host)
	}
	return ""
}

// allowedHostSet reduces entries such as "https://Proxy.Internal:8443/" to
// bare lowercase host names.
func allowedHostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		if i := strings.Index(v, "://"); i >= 0 {
			v = v[i+3:]
		}
		if i := strings.IndexAny(v, "/:"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
