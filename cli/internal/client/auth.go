// ABOUTME: Caller-side authentication state backed by the session endpoints
// ABOUTME: Caches the last "who am I" answer briefly and announces changes on a notify bus

package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/markalston/portal-gateway/cache"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/notify"
)

// DefaultAuthTTL is how long a session answer is reused before asking again.
const DefaultAuthTTL = 30 * time.Second

const sessionKey = "session"

// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
var ErrNoRefreshToken = errors.New("no refresh token held; log in again")

// Status is a snapshot of what the gateway last said about the session.
type Status struct {
	Authenticated bool
	User          *models.UserProfile
	Error         string // set when the gateway could not verify the session
}

// AuthState holds the refresh token the gateway hands back and a short-lived
// copy of the session status. Mutating calls drop the cached status.
type AuthState struct {
	client *Client
	status *cache.Cache[Status]
	bus    *notify.Bus

	mu           sync.Mutex
	refreshToken string
}

// NewAuthState creates a holder over c. bus may be nil.
func NewAuthState(c *Client, ttl time.Duration, bus *notify.Bus) *AuthState {
	if ttl <= 0 {
		ttl = DefaultAuthTTL
	}
	return &AuthState{
		client: c,
		status: cache.New[Status](ttl),
		bus:    bus,
	}
}

// Check returns the session status, asking the gateway only when the cached
// answer is missing or stale. Unverifiable answers are not cached.
func (a *AuthState) Check(ctx context.Context) (Status, error) {
	if st, ok := a.status.Get(sessionKey); ok {
		return st, nil
	}

	resp, err := a.client.Session(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{Authenticated: resp.Authenticated, User: resp.User, Error: resp.Error}
	if st.Error == "" {
		a.status.Set(sessionKey, st)
	}
	return st, nil
}

// Login signs in and keeps the refresh token for later Refresh calls.
func (a *AuthState) Login(ctx context.Context, creds models.LoginRequest) (Status, error) {
	a.status.Clear(sessionKey)

	resp, err := a.client.Login(ctx, creds)
	if err != nil {
		a.publish(notify.SessionRejected, notify.LevelError, err.Error(), nil)
		return Status{}, err
	}

	a.setRefreshToken(resp.RefreshToken)
	st := Status{Authenticated: true, User: resp.User}
	a.status.Set(sessionKey, st)
	a.publish(notify.SessionEstablished, notify.LevelSuccess, "Signed in", resp.User)
	return st, nil
}

// Refresh trades the held refresh token for a new session. A rotated
// refresh token replaces the held one; an omitted one keeps it.
func (a *AuthState) Refresh(ctx context.Context) (Status, error) {
	token := a.RefreshToken()
	if token == "" {
		return Status{}, ErrNoRefreshToken
	}
	a.status.Clear(sessionKey)

	resp, err := a.client.Refresh(ctx, token)
	if err != nil {
		if IsUnauthorized(err) {
			a.setRefreshToken("")
		}
		a.publish(notify.SessionRejected, notify.LevelError, err.Error(), nil)
		return Status{}, err
	}

	if resp.NewRefreshToken != "" {
		a.setRefreshToken(resp.NewRefreshToken)
	}
	st := Status{Authenticated: true, User: resp.User}
	a.status.Set(sessionKey, st)
	a.publish(notify.SessionRefreshed, notify.LevelSuccess, "Session refreshed", resp.User)
	return st, nil
}

// Logout ends the session and forgets the refresh token.
func (a *AuthState) Logout(ctx context.Context) error {
	a.status.Clear(sessionKey)
	a.setRefreshToken("")

	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.publish(notify.SessionCleared, notify.LevelInfo, "Signed out", nil)
	return nil
}

// Invalidate drops the cached status so the next Check asks the gateway.
func (a *AuthState) Invalidate() {
	a.status.Clear(sessionKey)
}

// RefreshToken returns the refresh token currently held.
func (a *AuthState) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshToken
}

// SetRefreshToken seeds the refresh token, for example from a flag.
func (a *AuthState) SetRefreshToken(token string) {
	a.setRefreshToken(token)
}

func (a *AuthState) setRefreshToken(token string) {
	a.mu.Lock()
	a.refreshToken = token
	a.mu.Unlock()
}

func (a *AuthState) publish(kind notify.Kind, level notify.Level, message string, user *models.UserProfile) {
	e := notify.Event{Kind: kind, Level: level, Message: message}
	if user != nil {
		e.UserID = user.ID
	}
	a.bus.Publish(e)
}
