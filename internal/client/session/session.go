// Package session holds the client's authentication state: the token and
// the authenticated user's profile. A Store is constructed explicitly,
// started with Init (silent rehydration from the persisted token) and torn
// down with Logout.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Status is the authentication state seen by consumers.
type Status int

const (
	// StatusLoading means rehydration has not finished yet.
	StatusLoading Status = iota
	// StatusAuthenticated means a token and a profile are present.
	StatusAuthenticated
	// StatusUnauthenticated means there is no usable session.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// User-facing fallbacks when the API gives no message.
const (
	msgLoginFailed    = "Login failed. Please try again."
	msgRegisterFailed = "Registration failed. Please try again."
	msgMissingCreds   = "Email/username and password are required"
)

// ErrNoToken is returned by AcceptToken for an empty token.
var ErrNoToken = errors.New("no token received")

// API is the subset of the remote API the store needs.
type API interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Register(ctx context.Context, req models.RegisterRequest) (string, models.User, error)
	Profile(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
}

// TokenStore persists the token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Store is the single live session of a client instance.
type Store struct {
	api    API
	tokens TokenStore
	log    *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	status Status
	token  string
	user   *models.User
	errMsg string

	ready     chan struct{}
	readyOnce sync.Once
}

// New returns a Store in the loading state. Call Init to finish startup.
func New(a API, tokens TokenStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:    a,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		status: StatusLoading,
		ready:  make(chan struct{}),
	}
}

// Init rehydrates the session from the persisted token. Any failure
// discards the token and leaves the session unauthenticated.
func (s *Store) Init(ctx context.Context) {
	defer s.markReady()

	token, err := s.tokens.Load()
	if err != nil {
		s.log.Warn("cannot load persisted token", zap.Error(err))
		s.discardToken()
		s.setUnauthenticated()
		return
	}
	if token == "" {
		s.setUnauthenticated()
		return
	}
	if s.expired(token) {
		s.log.Info("persisted token expired; discarding")
		s.discardToken()
		s.setUnauthenticated()
		return
	}

	user, err := s.api.Profile(ctx, token)
	if err != nil {
		s.log.Info("rehydration failed; discarding token", zap.Error(err))
		s.discardToken()
		s.setUnauthenticated()
		return
	}
	s.setAuthenticated(token, user)
}

// Ready is closed once Init has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Login exchanges credentials for a token, persists it and loads the
// profile. On failure it records a user-facing message and returns false;
// no token is persisted.
func (s *Store) Login(ctx context.Context, identifier, secret string) bool {
	s.SetErr("")
	if strings.TrimSpace(identifier) == "" || secret == "" {
		s.SetErr(msgMissingCreds)
		return false
	}

	token, err := s.api.Login(ctx, strings.TrimSpace(identifier), secret)
	if err != nil {
		s.log.Info("login rejected", zap.Error(err))
		s.SetErr(userMessage(err, msgLoginFailed))
		return false
	}
	if err := s.tokens.Save(token); err != nil {
		s.log.Error("cannot persist token", zap.Error(err))
		s.SetErr(msgLoginFailed)
		return false
	}
	if _, err := s.FetchProfile(ctx, token); err != nil {
		s.discardToken()
		s.setUnauthenticated()
		s.SetErr(userMessage(err, msgLoginFailed))
		return false
	}
	return true
}

// Register creates an account. The registration response is the initial
// profile; no extra profile fetch happens.
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) bool {
	s.SetErr("")
	token, user, err := s.api.Register(ctx, req)
	if err != nil {
		s.log.Info("registration rejected", zap.Error(err))
		s.SetErr(userMessage(err, msgRegisterFailed))
		return false
	}
	if err := s.tokens.Save(token); err != nil {
		s.log.Error("cannot persist token", zap.Error(err))
		s.SetErr(msgRegisterFailed)
		return false
	}
	s.setAuthenticated(token, user)
	return true
}

// FetchProfile loads the profile for token and makes it the live session.
// If the API rejects the token the persisted token is cleared.
func (s *Store) FetchProfile(ctx context.Context, token string) (models.User, error) {
	user, err := s.api.Profile(ctx, token)
	if err != nil {
		s.log.Warn("error fetching user profile", zap.Error(err))
		if api.IsAuthError(err) {
			s.discardToken()
			s.setUnauthenticated()
		}
		return models.User{}, err
	}
	s.setAuthenticated(token, user)
	return user, nil
}

// AcceptToken adopts a token delivered out of band (the auth callback):
// it is persisted, then the profile is fetched. On failure the token is
// cleared again.
func (s *Store) AcceptToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}
	if err := s.tokens.Save(token); err != nil {
		return err
	}
	if _, err := s.FetchProfile(ctx, token); err != nil {
		s.discardToken()
		s.setUnauthenticated()
		return err
	}
	return nil
}

// Logout invalidates the token remotely on a best-effort basis and always
// clears the local token and user.
func (s *Store) Logout(ctx context.Context) {
	token := s.Token()
	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.log.Warn("error during logout", zap.Error(err))
		}
	}
	s.discardToken()
	s.setUnauthenticated()
}

// Status reports the current authentication state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Token returns the live token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated user's profile.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Err returns the last user-facing error message.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// SetErr replaces the user-facing error message; forms use it for
// validation failures.
func (s *Store) SetErr(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Store) setAuthenticated(token string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
	s.status = StatusAuthenticated
}

func (s *Store) setUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.status = StatusUnauthenticated
}

func (s *Store) discardToken() {
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("cannot clear persisted token", zap.Error(err))
	}
}

// expired reports whether token is a JWT whose exp claim has passed.
// Tokens that are not JWTs are opaque and never considered expired here.
func (s *Store) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(s.now())
}

// userMessage prefers the API's own message over fallback.
func userMessage(err error, fallback string) string {
	if msg := api.RemoteMessage(err); msg != "" {
		return msg
	}
	return fallback
}
