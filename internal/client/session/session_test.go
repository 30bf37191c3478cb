package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	LoginFunc    func(ctx context.Context, identifier, password string) (string, error)
	RegisterFunc func(ctx context.Context, req models.RegisterRequest) (string, models.User, error)
	ProfileFunc  func(ctx context.Context, token string) (models.User, error)
	LogoutFunc   func(ctx context.Context, token string) error
}

func (m *mockAPI) Login(ctx context.Context, identifier, password string) (string, error) {
	return m.LoginFunc(ctx, identifier, password)
}
func (m *mockAPI) Register(ctx context.Context, req models.RegisterRequest) (string, models.User, error) {
	return m.RegisterFunc(ctx, req)
}
func (m *mockAPI) Profile(ctx context.Context, token string) (models.User, error) {
	return m.ProfileFunc(ctx, token)
}
func (m *mockAPI) Logout(ctx context.Context, token string) error {
	return m.LogoutFunc(ctx, token)
}

// memTokens is an in-memory TokenStore.
type memTokens struct {
	token   string
	loadErr error
	saveErr error
	saves   int
}

func (m *memTokens) Load() (string, error) { return m.token, m.loadErr }
func (m *memTokens) Save(token string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.token = token
	return nil
}
func (m *memTokens) Clear() error { m.token = ""; return nil }

var alice = models.User{ID: "u1", Name: "Alice", Username: "alice", Email: "alice@example.com"}

// credentialAPI accepts alice/secret and serves alice's profile for "tok-alice".
func credentialAPI() *mockAPI {
	return &mockAPI{
		LoginFunc: func(_ context.Context, identifier, password string) (string, error) {
			if identifier == "alice" && password == "secret" {
				return "tok-alice", nil
			}
			return "", api.NewStatusError(http.StatusUnauthorized, "Invalid credentials")
		},
		ProfileFunc: func(_ context.Context, token string) (models.User, error) {
			if token == "tok-alice" {
				return alice, nil
			}
			return models.User{}, api.NewStatusError(http.StatusUnauthorized, "Token invalid")
		},
		LogoutFunc: func(context.Context, string) error { return nil },
	}
}

func TestNew_StartsLoading(t *testing.T) {
	s := New(credentialAPI(), &memTokens{}, nil)
	assert.Equal(t, StatusLoading, s.Status())
	select {
	case <-s.Ready():
		t.Fatal("ready before Init")
	default:
	}
}

func TestInit_NoToken(t *testing.T) {
	s := New(credentialAPI(), &memTokens{}, nil)
	s.Init(context.Background())

	assert.Equal(t, StatusUnauthenticated, s.Status())
	<-s.Ready()
}

func TestInit_Rehydrates(t *testing.T) {
	s := New(credentialAPI(), &memTokens{token: "tok-alice"}, nil)
	s.Init(context.Background())

	require.Equal(t, StatusAuthenticated, s.Status())
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, alice, u)
	assert.Equal(t, "tok-alice", s.Token())
}

func TestInit_RejectedTokenDiscarded(t *testing.T) {
	tokens := &memTokens{token: "revoked"}
	s := New(credentialAPI(), tokens, nil)
	s.Init(context.Background())

	assert.Equal(t, StatusUnauthenticated, s.Status())
	assert.Empty(t, tokens.token)
}

func TestInit_TransientFailureDiscards(t *testing.T) {
	tokens := &memTokens{token: "tok-alice"}
	a := credentialAPI()
	a.ProfileFunc = func(context.Context, string) (models.User, error) {
		return models.User{}, api.ErrTransient
	}
	s := New(a, tokens, nil)
	s.Init(context.Background())

	assert.Equal(t, StatusUnauthenticated, s.Status())
	assert.Empty(t, tokens.token)
}

func TestInit_LoadErrorDiscards(t *testing.T) {
	tokens := &memTokens{token: "x", loadErr: errors.New("sealed")}
	s := New(credentialAPI(), tokens, nil)
	s.Init(context.Background())
	assert.Equal(t, StatusUnauthenticated, s.Status())
}

func TestInit_ExpiredJWTSkipsNetwork(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	a := credentialAPI()
	a.ProfileFunc = func(context.Context, string) (models.User, error) {
		t.Fatal("profile must not be fetched for an expired token")
		return models.User{}, nil
	}
	tokens := &memTokens{token: expired}
	s := New(a, tokens, nil)
	s.Init(context.Background())

	assert.Equal(t, StatusUnauthenticated, s.Status())
	assert.Empty(t, tokens.token)
}

func TestInit_ValidJWTRehydrates(t *testing.T) {
	valid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	a := credentialAPI()
	a.ProfileFunc = func(_ context.Context, token string) (models.User, error) {
		assert.Equal(t, valid, token)
		return alice, nil
	}
	s := New(a, &memTokens{token: valid}, nil)
	s.Init(context.Background())
	assert.Equal(t, StatusAuthenticated, s.Status())
}

func TestLogin_Success(t *testing.T) {
	tokens := &memTokens{}
	s := New(credentialAPI(), tokens, nil)
	s.Init(context.Background())

	ok := s.Login(context.Background(), "alice", "secret")
	require.True(t, ok)
	assert.Equal(t, "tok-alice", tokens.token)
	assert.Equal(t, StatusAuthenticated, s.Status())
	u, _ := s.User()
	assert.Equal(t, alice, u)
	assert.Empty(t, s.Err())
}

func TestLogin_WrongPassword(t *testing.T) {
	tokens := &memTokens{}
	s := New(credentialAPI(), tokens, nil)
	s.Init(context.Background())

	ok := s.Login(context.Background(), "alice", "nope")
	assert.False(t, ok)
	assert.Equal(t, StatusUnauthenticated, s.Status())
	assert.Equal(t, "Invalid credentials", s.Err())
	assert.Zero(t, tokens.saves)
	assert.Empty(t, tokens.token)
}

func TestLogin_NetworkErrorFallbackMessage(t *testing.T) {
	a := credentialAPI()
	a.LoginFunc = func(context.Context, string, string) (string, error) {
		return "", api.ErrTransient
	}
	s := New(a, &memTokens{}, nil)
	assert.False(t, s.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, msgLoginFailed, s.Err())
}

func TestLogin_MissingFieldsNeverCallsAPI(t *testing.T) {
	a := credentialAPI()
	a.LoginFunc = func(context.Context, string, string) (string, error) {
		t.Fatal("login must not reach the API")
		return "", nil
	}
	s := New(a, &memTokens{}, nil)
	assert.False(t, s.Login(context.Background(), "  ", "secret"))
	assert.Equal(t, msgMissingCreds, s.Err())
}

func TestLogin_ProfileFailureClearsToken(t *testing.T) {
	a := credentialAPI()
	a.ProfileFunc = func(context.Context, string) (models.User, error) {
		return models.User{}, api.ErrTransient
	}
	tokens := &memTokens{}
	s := New(a, tokens, nil)

	assert.False(t, s.Login(context.Background(), "alice", "secret"))
	assert.Empty(t, tokens.token)
	assert.Equal(t, StatusUnauthenticated, s.Status())
}

func TestRegister_UsesResponseAsProfile(t *testing.T) {
	a := credentialAPI()
	a.RegisterFunc = func(_ context.Context, req models.RegisterRequest) (string, models.User, error) {
		return "tok-bob", models.User{ID: "u2", Username: req.Username}, nil
	}
	a.ProfileFunc = func(context.Context, string) (models.User, error) {
		t.Fatal("register must not fetch the profile")
		return models.User{}, nil
	}
	tokens := &memTokens{}
	s := New(a, tokens, nil)

	ok := s.Register(context.Background(), models.RegisterRequest{Username: "bob"})
	require.True(t, ok)
	assert.Equal(t, "tok-bob", tokens.token)
	u, _ := s.User()
	assert.Equal(t, "bob", u.Username)
}

func TestRegister_Failure(t *testing.T) {
	a := credentialAPI()
	a.RegisterFunc = func(context.Context, models.RegisterRequest) (string, models.User, error) {
		return "", models.User{}, api.NewStatusError(http.StatusBadRequest, "Email already in use")
	}
	tokens := &memTokens{}
	s := New(a, tokens, nil)

	assert.False(t, s.Register(context.Background(), models.RegisterRequest{}))
	assert.Equal(t, "Email already in use", s.Err())
	assert.Empty(t, tokens.token)
}

func TestFetchProfile_RejectedClearsToken(t *testing.T) {
	tokens := &memTokens{token: "old"}
	s := New(credentialAPI(), tokens, nil)

	_, err := s.FetchProfile(context.Background(), "old")
	assert.True(t, api.IsAuthError(err))
	assert.Empty(t, tokens.token)
}

func TestAcceptToken(t *testing.T) {
	tokens := &memTokens{}
	s := New(credentialAPI(), tokens, nil)

	assert.ErrorIs(t, s.AcceptToken(context.Background(), ""), ErrNoToken)

	require.NoError(t, s.AcceptToken(context.Background(), "tok-alice"))
	assert.Equal(t, "tok-alice", tokens.token)
	assert.Equal(t, StatusAuthenticated, s.Status())

	require.Error(t, s.AcceptToken(context.Background(), "forged"))
	assert.Empty(t, tokens.token)
	assert.Equal(t, StatusUnauthenticated, s.Status())
}

func TestLogout_RemoteFailureStillClears(t *testing.T) {
	a := credentialAPI()
	called := false
	a.LogoutFunc = func(_ context.Context, token string) error {
		called = true
		assert.Equal(t, "tok-alice", token)
		return api.ErrTransient
	}
	tokens := &memTokens{}
	s := New(a, tokens, nil)
	require.True(t, s.Login(context.Background(), "alice", "secret"))

	s.Logout(context.Background())

	assert.True(t, called)
	assert.Equal(t, StatusUnauthenticated, s.Status())
	assert.Empty(t, s.Token())
	assert.Empty(t, tokens.token)
	_, ok := s.User()
	assert.False(t, ok)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "authenticated", StatusAuthenticated.String())
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
}
