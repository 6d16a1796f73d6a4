// ABOUTME: Page serving behind the route guard
// ABOUTME: Serves a pre-built localized page tree or a minimal HTML shell

package handlers

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/markalston/portal-gateway/locale"
	"github.com/markalston/portal-gateway/middleware"
)

const shellHTML = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<main id="app" data-locale="{{.Locale}}" data-path="{{.Path}}">
{{- if .NotFound}}
<h1>Page not found</h1>
{{- end}}
</main>
</body>
</html>
`

var shellTemplate = template.Must(template.New("shell").Parse(shellHTML))

type shellData struct {
	Locale   string
	Path     string
	Title    string
	NotFound bool
}

// pageRenderer resolves localized page files. With no static root every
// page path renders the shell.
type pageRenderer struct {
	root fs.FS
}

func newPageRenderer(staticDir string) *pageRenderer {
	if staticDir == "" {
		return &pageRenderer{}
	}
	return &pageRenderer{root: os.DirFS(staticDir)}
}

// lookup returns the first existing file for a page, or "" when none does.
// Candidates are <locale>/<path>/index.html then <locale>/<path>.html.
func (p *pageRenderer) lookup(res locale.Resolution) string {
	rel := strings.Trim(path.Clean(res.Path), "/")
	candidates := []string{path.Join(res.Locale, rel, "index.html")}
	if rel != "" {
		candidates = append(candidates, path.Join(res.Locale, rel+".html"))
	}
	for _, name := range candidates {
		if !fs.ValidPath(name) {
			continue
		}
		if info, err := fs.Stat(p.root, name); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

// asset returns the static file for an extension-bearing path, or "".
// HTML documents are only reachable through their page route.
func (p *pageRenderer) asset(urlPath string) string {
	name := strings.TrimPrefix(path.Clean(urlPath), "/")
	if !fs.ValidPath(name) || middleware.IsPageDocument(path.Base(name)) {
		return ""
	}
	if info, err := fs.Stat(p.root, name); err == nil && !info.IsDir() {
		return name
	}
	return ""
}

// Page serves every non-API request. The guard has already run.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	res := h.locales.Resolve(r.URL.Path)
	w.Header().Set("Content-Language", res.Locale)

	if h.pages.root == nil {
		h.renderShell(w, http.StatusOK, shellData{Locale: res.Locale, Path: res.Path, Title: pageTitle(res.Path)})
		return
	}

	if strings.Contains(path.Base(r.URL.Path), ".") {
		if name := h.pages.asset(r.URL.Path); name != "" {
			http.ServeFileFS(w, r, h.pages.root, name)
			return
		}
		http.NotFound(w, r)
		return
	}

	if name := h.pages.lookup(res); name != "" {
		http.ServeFileFS(w, r, h.pages.root, name)
		return
	}

	h.renderShell(w, http.StatusNotFound, shellData{Locale: res.Locale, Path: res.Path, Title: "Not found", NotFound: true})
}

func (h *Handler) renderShell(w http.ResponseWriter, status int, data shellData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := shellTemplate.Execute(w, data); err != nil {
		slog.Error("Failed to render page shell", "error", err)
	}
}

// pageTitle derives a display title from the last path segment.
func pageTitle(p string) string {
	seg := path.Base(p)
	if seg == "/" || seg == "." {
		return "Home"
	}
	seg = strings.ReplaceAll(seg, "-", " ")
	first, size := utf8.DecodeRuneInString(seg)
	return string(unicode.ToUpper(first)) + seg[size:]
}
