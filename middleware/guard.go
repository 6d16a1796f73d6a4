// ABOUTME: Route guard deciding whether a page request may proceed
// ABOUTME: Redirects anonymous visitors to login and signed-in visitors away from auth pages

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/markalston/portal-gateway/locale"
	"github.com/markalston/portal-gateway/services"
)

// GuardConfig describes which page routes are public and where to redirect.
// All routes are unlocalized paths such as "/login".
type GuardConfig struct {
	Locales       *locale.Set
	PublicRoutes  []string
	LoginRoute    string
	RegisterRoute string
	LandingRoute  string
	SkipPrefixes  []string // API and internal prefixes the guard never evaluates
}

// Guard returns middleware that gates page requests on session cookie presence.
//
// The cookie is only checked for presence. Whether the token is still valid
// upstream is decided by the session endpoint, not here.
func Guard(cfg GuardConfig) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if cfg.skips(r.URL.Path) {
				next(w, r)
				return
			}

			res := cfg.Locales.Resolve(r.URL.Path)
			stripped := trimTrailingSlash(res.Path)
			_, hasSession := services.ReadSessionCookie(r)

			if hasSession && (stripped == cfg.LoginRoute || stripped == cfg.RegisterRoute) {
				redirect(w, r, locale.Prefix(res.Locale, cfg.LandingRoute))
				return
			}

			if cfg.isPublic(stripped) {
				next(w, r)
				return
			}

			if !hasSession {
				redirect(w, r, locale.Prefix(res.Locale, cfg.LoginRoute))
				return
			}

			next(w, r)
		}
	}
}

// skips reports whether path is outside the guard: API and internal
// prefixes, and static assets whose last segment has a file extension.
// HTML documents are pages and stay guarded.
func (cfg GuardConfig) skips(path string) bool {
	for _, prefix := range cfg.SkipPrefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".") && !IsPageDocument(last)
}

// IsPageDocument reports whether the last segment of p names an HTML file.
func IsPageDocument(p string) bool {
	ext := p[strings.LastIndex(p, ".")+1:]
	return strings.Contains(p, ".") && (strings.EqualFold(ext, "html") || strings.EqualFold(ext, "htm"))
}

// isPublic matches path against the public routes. The root route only
// matches exactly; every other route also covers its subpaths.
func (cfg GuardConfig) isPublic(path string) bool {
	for _, route := range cfg.PublicRoutes {
		if route == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if hasPathPrefix(path, route) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	prefix = trimTrailingSlash(prefix)
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func trimTrailingSlash(path string) string {
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	slog.Debug("Route guard redirect", "from", sanitizePath(r.URL.Path), "to", target)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
