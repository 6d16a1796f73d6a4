// ABOUTME: Locale set and path-prefix resolution for localized page routes
// ABOUTME: Detects locale-shaped first path segments and maps them onto the supported set

// Package locale resolves the locale prefix of page paths such as /fr/pricing.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Set is an immutable collection of supported locales with a default.
type Set struct {
	codes []string       // configured spelling, used in redirects
	tags  []language.Tag // parsed form of codes, same order
	def   string
}

// Resolution is the result of splitting a request path into locale and rest.
type Resolution struct {
	// Locale is always a supported code: the path's own segment when
	// supported, otherwise the default.
	Locale string
	// Path is the request path without its locale-shaped first segment.
	// It always starts with "/".
	Path string
	// Prefixed reports whether a locale-shaped segment was stripped.
	Prefixed bool
}

// NewSet builds a Set from configured codes. def must be one of codes.
func NewSet(codes []string, def string) (*Set, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("at least one locale is required")
	}

	s := &Set{}
	defaultFound := false
	for _, code := range codes {
		if !LooksLikeLocale(code) {
			return nil, fmt.Errorf("locale %q cannot be a path prefix: want a two-letter language with an optional region", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", code, err)
		}
		s.codes = append(s.codes, code)
		s.tags = append(s.tags, tag)
		if strings.EqualFold(code, def) {
			s.def = code
			defaultFound = true
		}
	}
	if !defaultFound {
		return nil, fmt.Errorf("default locale %q is not in %v", def, codes)
	}
	return s, nil
}

// Default returns the default locale code.
func (s *Set) Default() string {
	return s.def
}

// Codes returns the supported locale codes in configured order.
func (s *Set) Codes() []string {
	return append([]string(nil), s.codes...)
}

// Lookup returns the configured spelling of code if it is supported.
// Matching ignores case, so "EN" and "en" resolve to the same locale.
func (s *Set) Lookup(code string) (string, bool) {
	if !LooksLikeLocale(code) {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	for i, t := range s.tags {
		if t == tag {
			return s.codes[i], true
		}
	}
	return "", false
}

// Resolve splits path into its locale and the remaining path.
//
// A first segment that merely looks like a locale (two letters, optionally
// followed by a region) is stripped even when unsupported, so /xx/login
// classifies as /login. The returned Locale is never the unsupported value.
func (s *Set) Resolve(path string) Resolution {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	first, rest, _ := strings.Cut(path[1:], "/")
	if !LooksLikeLocale(first) {
		return Resolution{Locale: s.def, Path: path}
	}

	res := Resolution{Locale: s.def, Path: "/" + rest, Prefixed: true}
	if code, ok := s.Lookup(first); ok {
		res.Locale = code
	}
	return res
}

// LooksLikeLocale reports whether seg has the shape of a locale path segment:
// a two-letter language, optionally followed by "-" and a two-letter or
// three-digit region (en, pt-BR, es-419).
func LooksLikeLocale(seg string) bool {
	lang, region, hasRegion := strings.Cut(seg, "-")
	if len(lang) != 2 || !isLetters(lang) {
		return false
	}
	if !hasRegion {
		return true
	}
	switch len(region) {
	case 2:
		return isLetters(region)
	case 3:
		return isDigits(region)
	}
	return false
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Prefix joins locale and path into a localized path: ("fr", "/login") is
// "/fr/login" and ("fr", "/") is "/fr".
func Prefix(code, path string) string {
	if path == "" || path == "/" {
		return "/" + code
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "/" + code + path
}
