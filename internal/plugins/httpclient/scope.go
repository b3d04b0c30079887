package httpclient

import (
	"net/url"
	"strings"
)

// Scope decides which URLs the plugin may reach. A URL is allowed when it
// matches at least one allow pattern and no deny pattern.
//
// Patterns are compared part by part: scheme, host, port, then path and
// query. A trailing "*" after a path makes the path a prefix; a trailing "*"
// directly after the host ("https://api.example.com*") allows any port and
// path on that host. "*" alone matches everything. URLs carrying userinfo
// never match.
type Scope struct {
	allow []pattern
	deny  []pattern
}

type pattern struct {
	any      bool
	scheme   string
	host     string
	port     string
	anyPort  bool
	rest     string
	isPrefix bool
}

// NewScope builds a scope from allow and deny patterns. Patterns that do not
// parse as absolute URLs are ignored.
func NewScope(allow, deny []string) *Scope {
	return &Scope{
		allow: parsePatterns(allow),
		deny:  parsePatterns(deny),
	}
}

// Allowed reports whether u is inside the scope.
func (s *Scope) Allowed(u *url.URL) bool {
	if s == nil || u == nil || u.User != nil || u.Opaque != "" {
		return false
	}
	for _, p := range s.deny {
		if p.matches(u) {
			return false
		}
	}
	for _, p := range s.allow {
		if p.matches(u) {
			return true
		}
	}
	return false
}

func (p pattern) matches(u *url.URL) bool {
	if p.any {
		return true
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != p.scheme || strings.ToLower(u.Hostname()) != p.host {
		return false
	}
	if !p.anyPort && effectivePort(scheme, u.Port()) != p.port {
		return false
	}
	rest := requestTarget(u)
	if p.isPrefix {
		return strings.HasPrefix(rest, p.rest)
	}
	return rest == p.rest
}

// requestTarget is the escaped path plus query, with "/" for an empty path.
func requestTarget(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}

func effectivePort(scheme, port string) string {
	if port != "" {
		return port
	}
	switch scheme {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}

func parsePatterns(raw []string) []pattern {
	out := make([]pattern, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if r == "*" {
			out = append(out, pattern{any: true})
			continue
		}

		base, wildcard := strings.CutSuffix(r, "*")
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
			continue
		}

		p := pattern{
			scheme: strings.ToLower(u.Scheme),
			host:   strings.ToLower(u.Hostname()),
		}
		p.port = effectivePort(p.scheme, u.Port())

		switch {
		case wildcard && u.Path == "" && u.RawQuery == "":
			// "https://host*": any path, and any port unless one is given.
			p.anyPort = u.Port() == ""
			p.rest = "/"
			p.isPrefix = true
		case wildcard:
			p.rest = requestTarget(u)
			p.isPrefix = true
		default:
			p.rest = requestTarget(u)
		}
		out = append(out, p)
	}
	return out
}
