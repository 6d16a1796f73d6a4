// ABOUTME: Auth request/response models for the session boundary
// ABOUTME: Defines the JSON contracts of the session, refresh, clear, login and logout endpoints

package models

// UserProfile is the browser-facing projection of the upstream user record.
// It is rebuilt from the upstream response on every call and never stored.
type UserProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"`
	IsVerified bool   `json:"isVerified"`
	IsActive   bool   `json:"isActive"`
	Avatar     string `json:"avatar,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// SessionResponse answers "who am I". It is always served with HTTP 200.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserProfile `json:"user"`
	Error         string       `json:"error,omitempty"`
}

// RefreshRequest carries the caller-held refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is returned by the refresh endpoint. On success the new
// access token travels only in the Set-Cookie header.
type RefreshResponse struct {
	Success         bool         `json:"success"`
	User            *UserProfile `json:"user,omitempty"`
	NewRefreshToken string       `json:"newRefreshToken,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// LoginRequest represents credentials for authentication.
// Either Email or Username identifies the account.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// LoginResponse represents the result of a login attempt
type LoginResponse struct {
	Success      bool         `json:"success"`
	User         *UserProfile `json:"user,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// StatusResponse is the envelope for clear, logout and error replies.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
