// Package security applies response hardening headers and screens requests.
package security

import (
	"net/http"
	"strconv"
	"strings"
)

// ChartJSOrigin serves the charting library used by the dashboard.
const ChartJSOrigin = "https://cdn.jsdelivr.net"

// Directive is one Content-Security-Policy entry, e.g. {"script-src", "'self'"}.
type Directive struct {
	Name    string
	Sources []string
}

type HeadersConfig struct {
	CSP []Directive

	// HSTSMaxAge is in seconds; HSTS is only sent over TLS.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// Static holds headers sent unchanged on every response.
	Static map[string]string
}

// DefaultHeadersConfig allows same-origin content plus the chart library.
func DefaultHeadersConfig() HeadersConfig {
	self := "'self'"
	return HeadersConfig{
		CSP: []Directive{
			{"default-src", []string{self}},
			{"script-src", []string{self, ChartJSOrigin}},
			{"style-src", []string{self, "'unsafe-inline'"}},
			{"img-src", []string{self, "data:"}},
			{"connect-src", []string{self}},
			{"font-src", []string{self}},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", []string{self}},
			{"form-action", []string{self}},
		},
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
		Static: map[string]string{
			"X-Frame-Options":              "DENY",
			"X-Content-Type-Options":       "nosniff",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// Policy renders the directives as a header value.
func (c HeadersConfig) Policy() string {
	parts := make([]string, 0, len(c.CSP))
	for _, d := range c.CSP {
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

type HeadersMiddleware struct {
	static map[string]string
	hsts   string
}

// NewHeadersMiddleware renders the header values once.
func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	static := make(map[string]string, len(cfg.Static)+1)
	for k, v := range cfg.Static {
		if v != "" {
			static[k] = v
		}
	}
	if len(cfg.CSP) > 0 {
		static["Content-Security-Policy"] = cfg.Policy()
	}

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}
	return &HeadersMiddleware{static: static, hsts: hsts}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for k, v := range h.static {
			headers.Set(k, v)
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as private; used for authenticated pages and downloads.
func NoStore(next http.Handler) http.Handler {
	return cacheControl("no-store")(next)
}

// StaticAssetMiddleware lets browsers keep embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	if maxAge <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cacheControl("public, max-age=" + strconv.Itoa(maxAge))
}

func cacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
