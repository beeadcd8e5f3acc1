// Package testserver runs an in-process fake of the match backend's auth and user endpoints.
// Access tokens are real HS256 JWTs so expiry and revocation behave like production.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-match-client/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultEmail    = "player@example.com"
	DefaultPassword = "Password123"

	defaultAccessTTL = 15 * time.Minute
)

type account struct {
	passwordHash []byte
	profile      users.User
}

// Server is the fake backend. Zero-valued knobs mean "behave normally".
type Server struct {
	*httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]*account // email -> account
	refreshTokens map[string]string   // refresh token -> user id
	revoked       *revokedTokens
	issued        map[string]time.Time // jti -> expiry of every access token handed out
	failProfile   bool
	refreshDelay  time.Duration

	Logins    atomic.Int32
	Refreshes atomic.Int32
	Verifies  atomic.Int32
	MeCalls   atomic.Int32
}

// Start runs a server with one seeded account and closes it when the test ends.
func Start(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:        []byte(uuid.NewString()),
		accessTTL:     defaultAccessTTL,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		revoked:       newRevokedTokens(),
		issued:        make(map[string]time.Time),
	}
	s.AddUser(t, DefaultPassword, users.User{
		ID:        uuid.NewString(),
		Email:     DefaultEmail,
		Username:  "player1",
		FirstName: "Sam",
		LastName:  "Striker",
		Sports:    []string{"football", "padel"},
		Skill:     users.SkillIntermediate,
	})

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", s.refresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-token", s.verify).Methods(http.MethodPost)
	r.HandleFunc("/users/me", s.requireAuth(s.me)).Methods(http.MethodGet)
	r.HandleFunc("/matches", s.requireAuth(s.matches)).Methods(http.MethodGet)
	return r
}

// AddUser seeds an account that can log in with password.
func (s *Server) AddUser(t testing.TB, password string, profile users.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[profile.Email] = &account{passwordHash: hash, profile: profile}
}

// Issue mints a credential set for email directly, skipping the login endpoint.
func (s *Server) Issue(t testing.TB, email string) (access, refresh string, expiresIn int) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		t.Fatalf("unknown account %s", email)
	}
	resp, err := s.issueLocked(acct.profile.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return resp.AccessToken, resp.RefreshToken, resp.ExpiresIn
}

// ExpireAccessTokens revokes every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked.Cleanup()
	for jti, exp := range s.issued {
		s.revoked.Add(jti, exp)
	}
}

// RevokeRefreshTokens forgets every refresh token so the next refresh fails.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

// FailProfile makes GET /users/me answer 500.
func (s *Server) FailProfile(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProfile = fail
}

// SetRefreshDelay slows the refresh endpoint down so concurrent 401s overlap.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

type credentialsBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// issueLocked mints a JWT access token and an opaque refresh token. Callers hold s.mu.
func (s *Server) issueLocked(userID string) (credentialsBody, error) {
	now := time.Now()
	jti := uuid.NewString()
	exp := now.Add(s.accessTTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": jti,
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return credentialsBody{}, err
	}

	refresh := uuid.NewString()
	s.refreshTokens[refresh] = userID
	s.issued[jti] = exp

	return credentialsBody{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

// userFromAccessToken validates signature, expiry and revocation, returning the subject.
func (s *Server) userFromAccessToken(raw string) (string, bool) {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	if s.revoked.IsRevoked(jti) {
		return "", false
	}
	return sub, sub != ""
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.Logins.Add(1)
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[body.Email]
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is wrong")
		return
	}
	resp, err := s.issueLocked(acct.profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.Refreshes.Add(1)
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}

	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[body.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_grant", "refresh token is invalid")
		return
	}
	// Refresh tokens rotate: the old one is single use
	delete(s.refreshTokens, body.RefreshToken)

	resp, err := s.issueLocked(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	s.Verifies.Add(1)
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	if _, ok := s.userFromAccessToken(body.AccessToken); !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		userID, ok := s.userFromAccessToken(parts[1])
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, userID string) {
	s.MeCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProfile {
		writeError(w, http.StatusInternalServerError, "server_error", "profile service unavailable")
		return
	}
	for _, acct := range s.accounts {
		if acct.profile.ID == userID {
			writeJSON(w, http.StatusOK, acct.profile)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "user not found")
}

func (s *Server) matches(w http.ResponseWriter, _ *http.Request, userID string) {
	writeJSON(w, http.StatusOK, []map[string]string{
		{"id": "m-1", "sport": "football", "organizer": userID},
		{"id": "m-2", "sport": "padel", "organizer": userID},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
