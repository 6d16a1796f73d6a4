// ABOUTME: HTTP handlers for the portal gateway
// ABOUTME: Holds shared dependencies and the JSON response helpers

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/locale"
	"github.com/markalston/portal-gateway/middleware"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/notify"
	"github.com/markalston/portal-gateway/services"
)

// maxRequestBody caps JSON bodies accepted by the auth endpoints.
const maxRequestBody = 64 << 10

// IdentityAPI is the subset of the upstream identity client the handlers use.
type IdentityAPI interface {
	Profile(ctx context.Context, accessToken string) (*models.UserProfile, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenGrant, error)
	Login(ctx context.Context, creds models.LoginRequest) (*services.TokenGrant, error)
	Logout(ctx context.Context, accessToken string) error
	Register(ctx context.Context, body []byte) (*services.RawResponse, error)
}

type Handler struct {
	cfg            *config.Config
	identity       IdentityAPI
	cookies        *services.SessionCookies
	locales        *locale.Set
	bus            *notify.Bus
	pages          *pageRenderer
	rateLimitStore string
}

// NewHandler wires the handlers to the upstream identity API. bus may be nil.
func NewHandler(cfg *config.Config, identity IdentityAPI, bus *notify.Bus) (*Handler, error) {
	locales, err := locale.NewSet(cfg.Locales, cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("locales: %w", err)
	}

	return &Handler{
		cfg:            cfg,
		identity:       identity,
		cookies:        services.NewSessionCookies(cfg.CookieSecure, cfg.SessionMaxAge),
		locales:        locales,
		bus:            bus,
		pages:          newPageRenderer(cfg.StaticDir),
		rateLimitStore: StoreDisabled,
	}, nil
}

// publish stamps e with the request ID and hands it to the bus.
func (h *Handler) publish(w http.ResponseWriter, e notify.Event) {
	e.RequestID = w.Header().Get(middleware.RequestIDHeader)
	h.bus.Publish(e)
}

// writeJSON writes a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes the {success:false, error} envelope.
func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.StatusResponse{Success: false, Error: message})
}

// noStore keeps session answers out of shared and browser caches.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
