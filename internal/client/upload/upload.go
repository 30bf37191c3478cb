// Package upload submits a single PDF to the generation API and routes the
// resulting flashcards into a new or an existing collection.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/models"
	"go.uber.org/zap"
)

// Mode selects where generated cards go.
type Mode int

const (
	// ModeNew creates a collection named by the request.
	ModeNew Mode = iota + 1
	// ModeExisting appends to a collection the caller owns.
	ModeExisting
)

// User-facing messages.
const (
	MsgAuth       = "Your session has expired. Please log in again."
	MsgPermission = "You can only add flashcards to your own collections."
	MsgNotFound   = "The selected collection no longer exists."
	MsgFailed     = "Failed to generate flashcards. Please try again."
)

// ValidationError is malformed input that is never sent to the network.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// Request is one submission.
type Request struct {
	// Files are paths to the documents; exactly one is accepted.
	Files []string
	// Mode is the routing mode.
	Mode Mode
	// CollectionName names a new collection (ModeNew).
	CollectionName string
	// IsPublic is the visibility of a new collection (ModeNew).
	IsPublic bool
	// CollectionID targets an existing collection (ModeExisting).
	CollectionID string
}

// Validate checks req without touching the network or the filesystem.
func Validate(req Request) error {
	switch {
	case len(req.Files) == 0:
		return invalid("Please select a PDF file to upload.")
	case len(req.Files) > 1:
		return invalid("Only one PDF can be uploaded at a time.")
	case !strings.EqualFold(filepath.Ext(req.Files[0]), ".pdf"):
		return invalid("Only PDF files are supported.")
	case strings.TrimSpace(req.CollectionName) != "" && req.CollectionID != "":
		return invalid("Choose either a new collection or an existing one, not both.")
	}
	switch req.Mode {
	case ModeNew:
		if strings.TrimSpace(req.CollectionName) == "" {
			return invalid("Please enter a name for the new collection.")
		}
	case ModeExisting:
		if req.CollectionID == "" {
			return invalid("Please select a collection.")
		}
	default:
		return invalid("Choose a destination collection.")
	}
	return nil
}

// Generator is the remote generation endpoint.
type Generator interface {
	Generate(ctx context.Context, token string, gr api.GenerateRequest) (models.Collection, error)
}

// ProgressFunc receives advisory progress percentages in [0, 100].
type ProgressFunc func(percent int)

// Flow runs submissions. It never retries.
type Flow struct {
	gen  Generator
	log  *zap.Logger
	tick time.Duration
}

// Option configures a Flow.
type Option func(*Flow)

// WithTick sets the interval of the advisory progress ticker.
func WithTick(d time.Duration) Option {
	return func(f *Flow) { f.tick = d }
}

// New returns a Flow submitting through gen.
func New(gen Generator, log *zap.Logger, opts ...Option) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Flow{gen: gen, log: log, tick: 400 * time.Millisecond}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Generate validates req, uploads the document and returns the id of the
// collection that received the cards. progress may be nil.
func (f *Flow) Generate(ctx context.Context, req Request, token string, progress ProgressFunc) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}

	file, err := os.Open(req.Files[0])
	if err != nil {
		return "", invalid(fmt.Sprintf("Cannot read %s.", filepath.Base(req.Files[0])))
	}
	defer file.Close()

	gr := api.GenerateRequest{
		FileName: filepath.Base(req.Files[0]),
		File:     file,
	}
	if req.Mode == ModeExisting {
		gr.CollectionID = req.CollectionID
	} else {
		gr.CollectionName = strings.TrimSpace(req.CollectionName)
		gr.IsPublic = req.IsPublic
	}

	stop := f.report(progress)
	col, err := f.gen.Generate(ctx, token, gr)
	stop(err == nil)
	if err != nil {
		f.log.Warn("generation failed", zap.String("file", gr.FileName), zap.Error(err))
		return "", err
	}
	f.log.Info("flashcards generated", zap.String("collection", col.ID))
	return col.ID, nil
}

// report starts the cosmetic progress ticker. The returned func stops it and
// reports 100 when done is true.
func (f *Flow) report(progress ProgressFunc) func(done bool) {
	if progress == nil {
		return func(bool) {}
	}
	progress(0)

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(f.tick)
		defer t.Stop()
		pct := 0
		for {
			select {
			case <-quit:
				return
			case <-t.C:
				pct = advance(pct)
				progress(pct)
			}
		}
	}()

	return func(done bool) {
		close(quit)
		wg.Wait()
		if done {
			progress(100)
		}
	}
}

// advance moves the advisory percentage towards, but never to, 100.
func advance(pct int) int {
	step := (95 - pct) / 5
	if step < 1 {
		step = 1
	}
	if pct+step > 95 {
		return 95
	}
	return pct + step
}

// Message maps an error from Generate to the message shown to the user.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, api.ErrAuth):
		return MsgAuth
	case errors.Is(err, api.ErrPermission):
		return MsgPermission
	case errors.Is(err, api.ErrNotFound):
		return MsgNotFound
	default:
		return MsgFailed
	}
}
