package study

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	CollectionFunc func(ctx context.Context, id, userID, token string) (models.CollectionDetail, error)
}

func (m *mockLoader) Collection(ctx context.Context, id, userID, token string) (models.CollectionDetail, error) {
	return m.CollectionFunc(ctx, id, userID, token)
}

type fixedIdentity struct {
	token string
	user  *models.User
}

func (f fixedIdentity) Token() string { return f.token }
func (f fixedIdentity) User() (models.User, bool) {
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

func detail(name string, n int) models.CollectionDetail {
	return models.CollectionDetail{
		Collection: models.Collection{ID: name, Name: name},
		Flashcards: deck(n),
	}
}

func staticLoader(d models.CollectionDetail, err error) *mockLoader {
	return &mockLoader{
		CollectionFunc: func(context.Context, string, string, string) (models.CollectionDetail, error) {
			return d, err
		},
	}
}

func TestViewer_OpenReviewing(t *testing.T) {
	v := NewViewer(staticLoader(detail("bio", 3), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))

	s := v.Snapshot()
	assert.Equal(t, StateReviewing, s.State)
	assert.Equal(t, "bio", s.Name)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, 3, s.Total)
	assert.False(t, s.Flipped)
	assert.Equal(t, "Q0", s.Card.Question)
	assert.Empty(t, v.Redirect())
}

func TestViewer_ThreeCardsNextTimesThree(t *testing.T) {
	v := NewViewer(staticLoader(detail("bio", 3), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))

	v.Apply(CmdNext)
	v.Apply(CmdNext)
	v.Apply(CmdNext)
	assert.Equal(t, 2, v.Snapshot().Index)
}

func TestViewer_OpenEmpty(t *testing.T) {
	v := NewViewer(staticLoader(detail("none", 0), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "none"))

	assert.Equal(t, StateEmpty, v.Snapshot().State)
	assert.False(t, v.Apply(CmdNext))
}

func TestViewer_LoadFailure(t *testing.T) {
	v := NewViewer(staticLoader(models.CollectionDetail{}, api.NewStatusError(http.StatusNotFound, "")), nil, nil)
	err := v.Open(context.Background(), "gone")
	require.ErrorIs(t, err, api.ErrNotFound)

	s := v.Snapshot()
	assert.Equal(t, StateError, s.State)
	assert.Equal(t, 0, s.Index)
	assert.Zero(t, s.Total)
	assert.Equal(t, DirectoryRoute, v.Redirect())
	assert.Equal(t, "This collection no longer exists.", Message(s.Err))

	for _, cmd := range []Command{CmdNext, CmdPrevious, CmdFlip, CmdRestart} {
		assert.False(t, v.Apply(cmd))
	}
	assert.Equal(t, 0, v.Snapshot().Index)
}

func TestViewer_EmptyIDNeverLoads(t *testing.T) {
	loader := &mockLoader{
		CollectionFunc: func(context.Context, string, string, string) (models.CollectionDetail, error) {
			t.Fatal("load for empty id")
			return models.CollectionDetail{}, nil
		},
	}
	v := NewViewer(loader, nil, nil)
	err := v.Open(context.Background(), "")

	assert.ErrorIs(t, err, ErrNoCollection)
	assert.Equal(t, StateIdle, v.Snapshot().State)
	assert.Equal(t, DirectoryRoute, v.Redirect())
}

func TestViewer_LoadingWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loader := &mockLoader{
		CollectionFunc: func(context.Context, string, string, string) (models.CollectionDetail, error) {
			close(started)
			<-release
			return detail("bio", 1), nil
		},
	}
	v := NewViewer(loader, nil, nil)

	done := make(chan error)
	go func() { done <- v.Open(context.Background(), "bio") }()
	<-started
	assert.Equal(t, StateLoading, v.Snapshot().State)
	assert.False(t, v.Apply(CmdFlip))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReviewing, v.Snapshot().State)
}

func TestViewer_StaleResponseIgnored(t *testing.T) {
	releaseOld := make(chan struct{})
	oldStarted := make(chan struct{})
	loader := &mockLoader{
		CollectionFunc: func(_ context.Context, id, _, _ string) (models.CollectionDetail, error) {
			if id == "old" {
				close(oldStarted)
				<-releaseOld
				return detail("old", 5), nil
			}
			return detail("new", 2), nil
		},
	}
	v := NewViewer(loader, nil, nil)

	oldDone := make(chan error)
	go func() { oldDone <- v.Open(context.Background(), "old") }()
	<-oldStarted

	require.NoError(t, v.Open(context.Background(), "new"))
	close(releaseOld)
	assert.ErrorIs(t, <-oldDone, ErrSuperseded)

	s := v.Snapshot()
	assert.Equal(t, "new", s.CollectionID)
	assert.Equal(t, "new", s.Name)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, StateReviewing, s.State)
}

func TestViewer_EmptyIDDropsInFlightLoad(t *testing.T) {
	releaseOld := make(chan struct{})
	oldStarted := make(chan struct{})
	loader := &mockLoader{
		CollectionFunc: func(context.Context, string, string, string) (models.CollectionDetail, error) {
			close(oldStarted)
			<-releaseOld
			return detail("old", 3), nil
		},
	}
	v := NewViewer(loader, nil, nil)

	oldDone := make(chan error)
	go func() { oldDone <- v.Open(context.Background(), "old") }()
	<-oldStarted

	assert.ErrorIs(t, v.Open(context.Background(), ""), ErrNoCollection)
	close(releaseOld)
	assert.ErrorIs(t, <-oldDone, ErrSuperseded)

	s := v.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.CollectionID)
	assert.Zero(t, s.Total)
	assert.Equal(t, DirectoryRoute, v.Redirect())
}

func TestViewer_CloseClearsRedirect(t *testing.T) {
	v := NewViewer(staticLoader(models.CollectionDetail{}, api.NewStatusError(http.StatusForbidden, "")), nil, nil)
	require.Error(t, v.Open(context.Background(), "private"))
	require.Equal(t, DirectoryRoute, v.Redirect())

	v.Close()
	assert.Empty(t, v.Redirect())
	assert.Nil(t, v.Snapshot().Err)
}

func TestViewer_StaleFailureIgnored(t *testing.T) {
	releaseOld := make(chan struct{})
	oldStarted := make(chan struct{})
	loader := &mockLoader{
		CollectionFunc: func(_ context.Context, id, _, _ string) (models.CollectionDetail, error) {
			if id == "old" {
				close(oldStarted)
				<-releaseOld
				return models.CollectionDetail{}, errors.New("timeout")
			}
			return detail("new", 1), nil
		},
	}
	v := NewViewer(loader, nil, nil)

	oldDone := make(chan error)
	go func() { oldDone <- v.Open(context.Background(), "old") }()
	<-oldStarted
	require.NoError(t, v.Open(context.Background(), "new"))
	close(releaseOld)
	<-oldDone

	assert.Equal(t, StateReviewing, v.Snapshot().State)
	assert.Empty(t, v.Redirect())
}

func TestViewer_ReopenResetsState(t *testing.T) {
	v := NewViewer(staticLoader(detail("bio", 3), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))
	v.Apply(CmdNext)
	v.Apply(CmdFlip)

	require.NoError(t, v.Open(context.Background(), "bio"))
	s := v.Snapshot()
	assert.Equal(t, 0, s.Index)
	assert.False(t, s.Flipped)
}

func TestViewer_PassesIdentity(t *testing.T) {
	var gotUser, gotToken string
	loader := &mockLoader{
		CollectionFunc: func(_ context.Context, _, userID, token string) (models.CollectionDetail, error) {
			gotUser, gotToken = userID, token
			return detail("bio", 1), nil
		},
	}
	v := NewViewer(loader, fixedIdentity{token: "tok", user: &models.User{ID: "u1"}}, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))
	assert.Equal(t, "u1", gotUser)
	assert.Equal(t, "tok", gotToken)

	v = NewViewer(loader, fixedIdentity{}, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))
	assert.Empty(t, gotUser)
	assert.Empty(t, gotToken)
}

func TestViewer_MountAndClose(t *testing.T) {
	bus := NewInputBus()
	v := NewViewer(staticLoader(detail("bio", 3), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))

	v.Mount(bus)
	require.Equal(t, 1, bus.Len())

	bus.Dispatch(KeyArrowRight)
	bus.Dispatch(KeySpace)
	s := v.Snapshot()
	assert.Equal(t, 1, s.Index)
	assert.True(t, s.Flipped)

	v.Close()
	assert.Equal(t, 0, bus.Len())
	assert.Equal(t, 0, bus.Dispatch(KeyArrowRight))
	assert.Equal(t, StateIdle, v.Snapshot().State)
}

func TestViewer_RemountReleasesPrevious(t *testing.T) {
	bus := NewInputBus()
	v := NewViewer(staticLoader(detail("bio", 3), nil), nil, nil)
	v.Mount(bus)
	release := v.Mount(bus)
	assert.Equal(t, 1, bus.Len())

	release()
	release()
	assert.Equal(t, 0, bus.Len())
}

func TestViewer_CloseDropsInFlightLoad(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loader := &mockLoader{
		CollectionFunc: func(context.Context, string, string, string) (models.CollectionDetail, error) {
			close(started)
			<-release
			return detail("bio", 2), nil
		},
	}
	v := NewViewer(loader, nil, nil)
	done := make(chan error)
	go func() { done <- v.Open(context.Background(), "bio") }()
	<-started

	v.Close()
	close(release)
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateIdle, v.Snapshot().State)
}

func TestViewer_ConcurrentKeys(t *testing.T) {
	bus := NewInputBus()
	v := NewViewer(staticLoader(detail("bio", 4), nil), nil, nil)
	require.NoError(t, v.Open(context.Background(), "bio"))
	defer v.Mount(bus)()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				bus.Dispatch(KeyArrowRight)
			} else {
				bus.Dispatch(KeyArrowLeft)
			}
		}(i)
	}
	wg.Wait()

	s := v.Snapshot()
	assert.GreaterOrEqual(t, s.Index, 0)
	assert.Less(t, s.Index, 4)
}

func TestMessage(t *testing.T) {
	msgs := map[string]bool{}
	for _, err := range []error{
		ErrNoCollection,
		api.NewStatusError(http.StatusUnauthorized, ""),
		api.NewStatusError(http.StatusForbidden, ""),
		api.NewStatusError(http.StatusNotFound, ""),
		errors.New("dial tcp: timeout"),
	} {
		msgs[Message(err)] = true
	}
	assert.Len(t, msgs, 5)
	assert.Empty(t, Message(nil))
}

func TestInputBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInputBus()
	got := make(chan string, 4)
	unsub := bus.Subscribe(func(k string) { got <- k })

	assert.Equal(t, 1, bus.Dispatch("a"))
	unsub()
	assert.Equal(t, 0, bus.Dispatch("b"))

	select {
	case k := <-got:
		assert.Equal(t, "a", k)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
	assert.Empty(t, got)
}
