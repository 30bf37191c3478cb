package study

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the viewer's lifecycle state.
type State int

const (
	// StateIdle means no collection has been opened.
	StateIdle State = iota
	// StateLoading means a fetch for the current collection is in flight.
	StateLoading
	// StateEmpty means the collection has no cards.
	StateEmpty
	// StateReviewing means cards are loaded and navigable.
	StateReviewing
	// StateError means the fetch failed; the caller should leave the viewer.
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEmpty:
		return "empty"
	case StateReviewing:
		return "reviewing"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// DirectoryRoute is where the viewer sends the user when it cannot show a
// collection.
const DirectoryRoute = "/decks"

var (
	// ErrNoCollection is returned by Open for an empty collection id.
	ErrNoCollection = errors.New("no collection id")
	// ErrSuperseded is returned by Open when another Open started before
	// this one finished; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer collection")
)

// Loader fetches one collection with its cards.
type Loader interface {
	Collection(ctx context.Context, id, userID, token string) (models.CollectionDetail, error)
}

// Identity exposes the current session read-only.
type Identity interface {
	Token() string
	User() (models.User, bool)
}

// Snapshot is a consistent copy of the viewer state.
type Snapshot struct {
	CollectionID string
	Name         string
	State        State
	Card         models.Flashcard
	Index        int
	Total        int
	Flipped      bool
	Direction    Direction
	Progress     float64
	Err          error
}

// Viewer loads the cards of the current collection and runs review on them.
// It is safe for concurrent use. Only the most recently opened collection
// id may change the state.
type Viewer struct {
	loader   Loader
	identity Identity
	log      *zap.Logger

	mu       sync.Mutex
	gen      uint64
	id       string
	name     string
	state    State
	machine  *Machine
	err      error
	redirect string
	release  func()
}

// NewViewer constructs an idle Viewer. identity may be nil for anonymous
// browsing.
func NewViewer(loader Loader, identity Identity, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Viewer{loader: loader, identity: identity, log: log, machine: NewMachine(nil)}
}

// Open makes id the current collection and loads it. An empty id redirects
// to the directory without loading. If another Open starts before this one
// completes, this result is dropped and ErrSuperseded is returned.
func (v *Viewer) Open(ctx context.Context, id string) error {
	if id == "" {
		v.mu.Lock()
		v.reset()
		v.redirect = DirectoryRoute
		v.mu.Unlock()
		return ErrNoCollection
	}

	v.mu.Lock()
	gen := v.reset()
	v.id = id
	v.state = StateLoading
	v.mu.Unlock()

	var userID, token string
	if v.identity != nil {
		token = v.identity.Token()
		if u, ok := v.identity.User(); ok {
			userID = u.ID
		}
	}

	log := v.log.With(zap.String("study_session", uuid.NewString()), zap.String("collection", id))
	log.Debug("loading collection")
	detail, err := v.loader.Collection(ctx, id, userID, token)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		log.Debug("discarding stale collection response")
		return ErrSuperseded
	}
	if err != nil {
		log.Warn("error loading flashcards", zap.Error(err))
		v.state = StateError
		v.err = err
		v.redirect = DirectoryRoute
		return fmt.Errorf("load collection %s: %w", id, err)
	}

	v.name = detail.Collection.Name
	v.machine = NewMachine(detail.Flashcards)
	if v.machine.Len() == 0 {
		v.state = StateEmpty
	} else {
		v.state = StateReviewing
	}
	log.Info("collection loaded", zap.Int("cards", v.machine.Len()))
	return nil
}

// Apply runs cmd while reviewing. It reports false in any other state or
// for an unknown command.
func (v *Viewer) Apply(cmd Command) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReviewing {
		return false
	}
	return v.machine.Apply(cmd)
}

// HandleKey applies the command bound to key.
func (v *Viewer) HandleKey(key string) bool {
	cmd, ok := KeyCommand(key)
	if !ok {
		return false
	}
	return v.Apply(cmd)
}

// Mount subscribes the viewer to key events on bus until the returned func
// or Close is called. Mounting again releases the previous subscription.
func (v *Viewer) Mount(bus *InputBus) func() {
	unsubscribe := bus.Subscribe(func(key string) { v.HandleKey(key) })

	v.mu.Lock()
	prev := v.release
	v.release = unsubscribe
	v.mu.Unlock()
	if prev != nil {
		prev()
	}
	return unsubscribe
}

// Close releases the key subscription and discards the review state.
// In-flight loads finishing after Close are dropped.
func (v *Viewer) Close() {
	v.mu.Lock()
	release := v.release
	v.release = nil
	v.reset()
	v.mu.Unlock()
	if release != nil {
		release()
	}
}

// reset invalidates in-flight loads and returns the viewer to idle.
// It returns the new generation. v.mu must be held.
func (v *Viewer) reset() uint64 {
	v.gen++
	v.id = ""
	v.name = ""
	v.state = StateIdle
	v.machine = NewMachine(nil)
	v.err = nil
	v.redirect = ""
	return v.gen
}

// Snapshot returns the current state.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	card, _ := v.machine.Card()
	return Snapshot{
		CollectionID: v.id,
		Name:         v.name,
		State:        v.state,
		Card:         card,
		Index:        v.machine.Index(),
		Total:        v.machine.Len(),
		Flipped:      v.machine.Flipped(),
		Direction:    v.machine.Direction(),
		Progress:     v.machine.Progress(),
		Err:          v.err,
	}
}

// Redirect is the route the caller should navigate to, or "" to stay.
func (v *Viewer) Redirect() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.redirect
}

// Message maps a load error to the text shown before redirecting.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCollection):
		return "No collection selected."
	case errors.Is(err, api.ErrAuth):
		return "Please log in to view this collection."
	case errors.Is(err, api.ErrPermission):
		return "This collection is private."
	case errors.Is(err, api.ErrNotFound):
		return "This collection no longer exists."
	default:
		return "Could not load flashcards. Please try again later."
	}
}
