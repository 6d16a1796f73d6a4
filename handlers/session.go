// ABOUTME: Session endpoints backed by the access_token cookie
// ABOUTME: Implements who-am-I, refresh and clear against the upstream identity API

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/notify"
	"github.com/markalston/portal-gateway/services"
)

// Client-facing error markers. Upstream details stay in the logs.
const (
	errSessionCheckFailed   = "session check failed"
	errRefreshTokenRequired = "Refresh token is required"
	errRefreshRejected      = "Refresh token invalid or expired"
	errRefreshFailed        = "Session refresh failed"
	errInvalidBody          = "Invalid request body"
)

// Session answers "who am I". It always responds 200: an upstream outage
// reports an error marker but keeps the cookie, while an explicit upstream
// rejection (401/403) deletes it.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	token, ok := services.ReadSessionCookie(r)
	if !ok {
		h.writeJSON(w, http.StatusOK, models.SessionResponse{})
		return
	}

	profile, err := h.identity.Profile(r.Context(), token)
	if err != nil {
		if services.IsInvalidToken(err) {
			slog.Info("Session token rejected upstream, clearing cookie", "error", err)
			h.cookies.Clear(w)
			h.publish(w, notify.Event{Kind: notify.SessionRejected, Level: notify.LevelInfo, Message: "Your session has expired"})
			h.writeJSON(w, http.StatusOK, models.SessionResponse{})
			return
		}

		slog.Warn("Session check failed, keeping cookie", "kind", services.KindOf(err), "error", err)
		h.writeJSON(w, http.StatusOK, models.SessionResponse{Error: errSessionCheckFailed})
		return
	}

	h.writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true, User: profile})
}

// Refresh exchanges the caller-held refresh token for a new access token,
// stores it in the cookie and hands the rotated refresh token back.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	var req models.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeRefreshError(w, errInvalidBody, http.StatusBadRequest)
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		h.writeRefreshError(w, errRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	grant, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredential):
			h.writeRefreshError(w, errRefreshTokenRequired, http.StatusBadRequest)
		case services.KindOf(err) == services.KindRejected:
			slog.Info("Refresh rejected upstream", "error", err)
			h.publish(w, notify.Event{Kind: notify.SessionRejected, Level: notify.LevelError, Message: "Please sign in again"})
			h.writeRefreshError(w, errRefreshRejected, http.StatusUnauthorized)
		default:
			slog.Error("Refresh failed", "kind", services.KindOf(err), "error", err)
			h.writeRefreshError(w, errRefreshFailed, http.StatusInternalServerError)
		}
		return
	}

	h.cookies.Set(w, grant.AccessToken)
	h.publish(w, notify.Event{Kind: notify.SessionRefreshed, Level: notify.LevelInfo, UserID: userID(grant.User)})

	h.writeJSON(w, http.StatusOK, models.RefreshResponse{
		Success:         true,
		User:            grant.User,
		NewRefreshToken: grant.RefreshToken,
	})
}

// Clear expires the session cookie. It never fails.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	h.cookies.Clear(w)
	h.publish(w, notify.Event{Kind: notify.SessionCleared, Level: notify.LevelInfo, Message: "Session cleared"})
	h.writeJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "Session cleared"})
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.RefreshResponse{Success: false, Error: message})
}

// decodeBody reads a size-capped JSON body into v. An empty body leaves v
// at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func userID(u *models.UserProfile) string {
	if u == nil {
		return ""
	}
	return u.ID
}
