// ABOUTME: Credential endpoints proxied to the upstream identity API
// ABOUTME: Login sets the session cookie, logout revokes and clears it, register relays upstream

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

// Login authenticates against the upstream and stores the access token in
// the session cookie. The refresh token is returned to the caller only.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	var req models.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, errInvalidBody, http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Password == "" || (req.Email == "" && req.Username == "") {
		h.writeError(w, "Email or username and password are required", http.StatusBadRequest)
		return
	}

	grant, err := h.identity.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredential):
			h.writeError(w, "Email or username and password are required", http.StatusBadRequest)
		case services.KindOf(err) == services.KindRejected:
			slog.Warn("Login rejected upstream", "error", err)
			message := services.UpstreamMessage(err)
			if message == "" {
				message = "Invalid credentials"
			}
			h.publish(w, notify.Event{Kind: notify.SessionRejected, Level: notify.LevelError, Message: message})
			h.writeJSON(w, http.StatusUnauthorized, models.LoginResponse{Success: false, Error: message})
		default:
			slog.Error("Login failed", "kind", services.KindOf(err), "error", err)
			h.writeError(w, "Login failed", http.StatusInternalServerError)
		}
		return
	}

	h.cookies.Set(w, grant.AccessToken)
	h.publish(w, notify.Event{Kind: notify.SessionEstablished, Level: notify.LevelSuccess, Message: "Signed in", UserID: userID(grant.User)})

	h.writeJSON(w, http.StatusOK, models.LoginResponse{
		Success:      true,
		User:         grant.User,
		RefreshToken: grant.RefreshToken,
	})
}

// Logout revokes the token upstream when one is present, then clears the
// cookie exactly like Clear. Upstream failures are logged, not returned.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	if token, ok := services.ReadSessionCookie(r); ok {
		if err := h.identity.Logout(r.Context(), token); err != nil {
			slog.Warn("Upstream logout failed, clearing cookie anyway", "kind", services.KindOf(err), "error", err)
		}
	}

	h.cookies.Clear(w)
	h.publish(w, notify.Event{Kind: notify.SessionCleared, Level: notify.LevelInfo, Message: "Signed out"})
	h.writeJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "Logged out"})
}

// Register forwards the body to the upstream and relays its answer.
// Registration never creates a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil || !json.Valid(body) {
		h.writeError(w, errInvalidBody, http.StatusBadRequest)
		return
	}

	resp, err := h.identity.Register(r.Context(), body)
	if err != nil {
		slog.Error("Registration failed", "kind", services.KindOf(err), "error", err)
		h.writeError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	if resp.StatusCode >= 500 {
		slog.Warn("Upstream registration error", "status", resp.StatusCode)
	}

	if !bodyAllowed(resp.StatusCode) {
		w.WriteHeader(resp.StatusCode)
		return
	}

	if len(resp.Body) > 0 && json.Valid(resp.Body) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		w.Write(resp.Body)
		return
	}

	// Non-JSON upstream answers are normalized into the usual envelope.
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	out := models.StatusResponse{Success: success}
	if success {
		out.Message = "Registration successful"
	} else {
		out.Error = http.StatusText(resp.StatusCode)
	}
	h.writeJSON(w, resp.StatusCode, out)
}

// bodyAllowed reports whether a response with status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
