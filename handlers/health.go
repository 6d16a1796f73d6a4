// ABOUTME: Health endpoint for load balancers and the ops CLI
// ABOUTME: Reports the configured upstream host and rate limit store

package handlers

import (
	"net/http"
	"net/url"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Upstream       string `json:"upstream"`
	RateLimitStore string `json:"rate_limit_store"`
}

// Health reports process liveness. It does not call the upstream, so an
// identity API outage does not take the gateway out of rotation.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	upstream := h.cfg.UpstreamURL
	if u, err := url.Parse(h.cfg.UpstreamURL); err == nil && u.Host != "" {
		upstream = u.Host
	}

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Upstream:       upstream,
		RateLimitStore: h.rateLimitStore,
	})
}
