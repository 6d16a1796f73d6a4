// ABOUTME: In-process fake of the upstream identity API for tests and local development
// ABOUTME: Issues HS256 access tokens, rotates refresh tokens, and counts calls per endpoint

// Package identitytest provides a fake identity API that speaks the same
// contract the gateway expects from the real upstream.
package identitytest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/markalston/portal-gateway/models"
)

// Paths served by the fake. They match the gateway's configuration defaults.
const (
	ProfilePath  = "/auth/me"
	RefreshPath  = "/auth/refresh"
	LoginPath    = "/auth/login"
	LogoutPath   = "/auth/logout"
	RegisterPath = "/auth/register"
)

// Behavior switches let tests force upstream failure modes.
type Behavior struct {
	ProfileStatus    int  // when non-zero, the profile endpoint answers with this status
	RefreshStatus    int  // when non-zero, the refresh endpoint answers with this status
	OmitAccessToken  bool // token responses leave out the access token
	OmitRefreshToken bool // token responses leave out the refresh token
	OmitUser         bool // token responses leave out the user object
	Bare             bool // responses are not wrapped in {"data": ...}
	MalformedProfile bool // the profile endpoint answers 200 with a non-JSON body
}

type account struct {
	password string
	profile  models.UserProfile
}

// Server is a fake identity API. The zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	accounts map[string]*account // by email
	refresh  map[string]string   // refresh token -> email
	revoked  map[string]bool     // access token IDs
	calls    map[string]int
	behavior Behavior
}

// New creates a fake with no accounts.
func New() *Server {
	return &Server{
		secret:   []byte(uuid.NewString()),
		ttl:      15 * time.Minute,
		accounts: make(map[string]*account),
		refresh:  make(map[string]string),
		revoked:  make(map[string]bool),
		calls:    make(map[string]int),
	}
}

// Start serves the fake on a loopback httptest server.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// Handler returns the HTTP handler of the fake.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+ProfilePath, s.count(ProfilePath, s.handleProfile))
	mux.HandleFunc("POST "+RefreshPath, s.count(RefreshPath, s.handleRefresh))
	mux.HandleFunc("POST "+LoginPath, s.count(LoginPath, s.handleLogin))
	mux.HandleFunc("POST "+LogoutPath, s.count(LogoutPath, s.handleLogout))
	mux.HandleFunc("POST "+RegisterPath, s.count(RegisterPath, s.handleRegister))
	return mux
}

// Configure mutates the failure switches under the server lock.
func (s *Server) Configure(fn func(b *Behavior)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.behavior)
}

// AddUser registers an account. The profile email is forced to email.
func (s *Server) AddUser(email, password string, profile models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(email, password, profile)
}

func (s *Server) addUserLocked(email, password string, profile models.UserProfile) {
	profile.Email = email
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	s.accounts[email] = &account{password: password, profile: profile}
}

// IssueAccessToken mints an access token for an existing account.
func (s *Server) IssueAccessToken(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return "", errors.New("unknown account")
	}
	return s.mintLocked(acct)
}

// IssueRefreshToken mints a refresh token for an existing account.
func (s *Server) IssueRefreshToken(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; !ok {
		return "", errors.New("unknown account")
	}
	token := uuid.NewString()
	s.refresh[token] = email
	return token, nil
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns how many requests hit the fake on any endpoint.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) count(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[path]++
		s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.behavior.ProfileStatus != 0 {
		s.writeLocked(w, s.behavior.ProfileStatus, map[string]any{"success": false, "message": http.StatusText(s.behavior.ProfileStatus)})
		return
	}

	acct, ok := s.authenticateLocked(r)
	if !ok {
		s.writeLocked(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired token"})
		return
	}

	if s.behavior.MalformedProfile {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>maintenance</html>"))
		return
	}

	s.writeLocked(w, http.StatusOK, s.wrapLocked(acct.profile))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writeLocked(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.behavior.RefreshStatus != 0 {
		s.writeLocked(w, s.behavior.RefreshStatus, map[string]any{"success": false, "message": http.StatusText(s.behavior.RefreshStatus)})
		return
	}

	email, ok := s.refresh[req.RefreshToken]
	if !ok {
		s.writeLocked(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Refresh token invalid or expired"})
		return
	}
	delete(s.refresh, req.RefreshToken)

	s.writeGrantLocked(w, s.accounts[email])
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writeLocked(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[req.Email]
	if !ok && req.Username != "" {
		for _, a := range s.accounts {
			if a.profile.Username == req.Username {
				acct, ok = a, true
				break
			}
		}
	}
	if !ok || acct.password != req.Password {
		s.writeLocked(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}

	s.writeGrantLocked(w, acct)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claims, ok := s.claimsLocked(r)
	if !ok {
		s.writeLocked(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired token"})
		return
	}
	s.revoked[claims.ID] = true
	s.writeLocked(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Username  string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writeLocked(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[req.Email]; exists {
		s.writeLocked(w, http.StatusConflict, map[string]any{"success": false, "message": "Email already registered"})
		return
	}
	s.addUserLocked(req.Email, req.Password, models.UserProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Role:      "user",
		IsActive:  true,
	})
	s.writeLocked(w, http.StatusCreated, map[string]any{"success": true, "message": "Registration successful. Please verify your email."})
}

func (s *Server) writeGrantLocked(w http.ResponseWriter, acct *account) {
	grant := map[string]any{}
	if !s.behavior.OmitAccessToken {
		token, err := s.mintLocked(acct)
		if err != nil {
			s.writeLocked(w, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
			return
		}
		grant["accessToken"] = token
	}
	if !s.behavior.OmitRefreshToken {
		refresh := uuid.NewString()
		s.refresh[refresh] = acct.profile.Email
		grant["refreshToken"] = refresh
	}
	if !s.behavior.OmitUser {
		grant["user"] = acct.profile
	}
	s.writeLocked(w, http.StatusOK, s.wrapLocked(grant))
}

func (s *Server) mintLocked(acct *account) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   acct.profile.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) claimsLocked(r *http.Request) (*jwt.RegisteredClaims, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, false
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || s.revoked[claims.ID] {
		return nil, false
	}
	return claims, true
}

func (s *Server) authenticateLocked(r *http.Request) (*account, bool) {
	claims, ok := s.claimsLocked(r)
	if !ok {
		return nil, false
	}
	acct, ok := s.accounts[claims.Subject]
	return acct, ok
}

func (s *Server) wrapLocked(payload any) any {
	if s.behavior.Bare {
		return payload
	}
	return map[string]any{"success": true, "data": payload}
}

func (s *Server) writeLocked(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
