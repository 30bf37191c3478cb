// Package shell is the interactive terminal front end. Every page of the
// client is a route, reachable by its command or with "open <path>".
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/GophCards/internal/callback"
	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/client/directory"
	"github.com/atinyakov/GophCards/internal/client/prompt"
	"github.com/atinyakov/GophCards/internal/client/session"
	"github.com/atinyakov/GophCards/internal/client/study"
	"github.com/atinyakov/GophCards/internal/client/upload"
	"github.com/atinyakov/GophCards/internal/models"
	"go.uber.org/zap"
)

// Routes.
const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteUpload   = "/upload"
	RouteDecks    = "/decks"
	routeStudy    = "/collections/"
)

const helpText = `Commands:
  home                 show the welcome page
  login | register     sign in or create an account
  sso                  sign in through the browser
  whoami | logout      show or end the session
  decks                list collections
  study <n|id>         study a collection from the list
  upload               generate flashcards from a PDF
  new-deck             create an empty collection
  add-card <n|id>      add flashcards to one of your collections
  open <path>          navigate by path, e.g. open /collections/<id>
  help | exit`

// Session is the authentication state the shell reads and drives.
type Session interface {
	Ready() <-chan struct{}
	Status() session.Status
	Token() string
	User() (models.User, bool)
	Err() string
	Login(ctx context.Context, identifier, secret string) bool
	Register(ctx context.Context, req models.RegisterRequest) bool
	Logout(ctx context.Context)
	AcceptToken(ctx context.Context, token string) error
}

// API is the remote surface used by the pages.
type API interface {
	directory.Source
	study.Loader
	upload.Generator
	CreateCollection(ctx context.Context, token string, req models.NewCollectionRequest) (models.Collection, error)
	AddFlashcards(ctx context.Context, token, collectionID string, cards []models.Flashcard) error
}

// Config wires a Shell.
type Config struct {
	In      io.Reader
	Out     io.Writer
	Session Session
	API     API
	Logger  *zap.Logger
	// CallbackAddr is where the sso command listens.
	CallbackAddr string
	// CallbackTimeout bounds how long sso waits for the browser.
	CallbackTimeout time.Duration
	// NoColor disables ANSI colors.
	NoColor bool
	// UploadOptions configure the upload flow.
	UploadOptions []upload.Option
}

// Shell is the REPL.
type Shell struct {
	scanner *bufio.Scanner
	out     io.Writer
	forms   *prompt.Prompter
	sess    Session
	api     API
	dir     *directory.Directory
	flow    *upload.Flow
	viewer  *study.Viewer
	bus     *study.InputBus
	log     *zap.Logger
	colors  palette

	callbackAddr    string
	callbackTimeout time.Duration

	route string
	// refs maps list numbers from the last "decks" output to ids.
	refs []string
}

// New constructs a Shell from cfg.
func New(cfg Config) *Shell {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.CallbackTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	sc := bufio.NewScanner(cfg.In)
	return &Shell{
		scanner:         sc,
		out:             cfg.Out,
		forms:           prompt.NewFromScanner(sc, cfg.Out),
		sess:            cfg.Session,
		api:             cfg.API,
		dir:             directory.New(cfg.API, log.Named("directory")),
		flow:            upload.New(cfg.API, log.Named("upload"), cfg.UploadOptions...),
		viewer:          study.NewViewer(cfg.API, cfg.Session, log.Named("study")),
		bus:             study.NewInputBus(),
		log:             log,
		colors:          newPalette(cfg.NoColor),
		callbackAddr:    cfg.CallbackAddr,
		callbackTimeout: timeout,
		route:           RouteHome,
	}
}

// Route is the current route.
func (s *Shell) Route() string { return s.route }

// Run reads commands until exit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	select {
	case <-s.sess.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.home()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(s.out, "gophcards> ")
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}
		if quit := s.Execute(ctx, s.scanner.Text()); quit {
			fmt.Fprintln(s.out, "Bye")
			return nil
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "exit", "quit":
		return true
	case "home":
		s.Navigate(ctx, RouteHome)
	case "login":
		s.Navigate(ctx, RouteLogin)
	case "register":
		s.Navigate(ctx, RouteRegister)
	case "decks", "ls":
		s.Navigate(ctx, RouteDecks)
	case "upload":
		s.Navigate(ctx, RouteUpload)
	case "study":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: study <n|id>")
			return false
		}
		s.Navigate(ctx, routeStudy+s.resolve(args[1]))
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: open <path>")
			return false
		}
		s.Navigate(ctx, args[1])
	case "sso":
		s.sso(ctx)
	case "whoami":
		s.whoami()
	case "logout":
		s.sess.Logout(ctx)
		s.colors.ok.Fprintln(s.out, "Logged out.")
		s.route = RouteHome
	case "new-deck":
		s.newDeck(ctx)
	case "add-card":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: add-card <n|id>")
			return false
		}
		s.addCards(ctx, s.resolve(args[1]))
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return false
}

// Navigate renders the page at path.
func (s *Shell) Navigate(ctx context.Context, path string) {
	u, err := url.Parse(path)
	if err != nil {
		s.colors.fail.Fprintln(s.out, "Page not found.")
		return
	}
	p := "/" + strings.Trim(u.Path, "/")

	switch {
	case p == RouteHome:
		s.route = RouteHome
		s.home()
	case p == RouteLogin:
		s.route = RouteLogin
		s.login(ctx)
	case p == RouteRegister:
		s.route = RouteRegister
		s.register(ctx)
	case p == RouteDecks:
		s.route = RouteDecks
		s.decks(ctx)
	case p == RouteUpload:
		if !s.requireAuth(ctx) {
			return
		}
		s.route = RouteUpload
		s.upload(ctx)
	case p == callback.SuccessPath:
		s.acceptToken(ctx, u.Query().Get("token"))
	case p == strings.TrimSuffix(routeStudy, "/") || strings.HasPrefix(p, routeStudy):
		s.study(ctx, strings.TrimPrefix(strings.TrimPrefix(p, "/collections"), "/"))
	default:
		s.colors.fail.Fprintln(s.out, "Page not found.")
	}
}

// requireAuth guards protected routes. It waits out the loading state so a
// session still being restored is not mistaken for a logged-out one.
func (s *Shell) requireAuth(ctx context.Context) bool {
	select {
	case <-s.sess.Ready():
	case <-ctx.Done():
		return false
	}
	if s.sess.Status() == session.StatusAuthenticated {
		return true
	}
	s.colors.fail.Fprintln(s.out, "Please log in to continue. Type 'login', 'register' or 'sso'.")
	s.route = RouteLogin
	return false
}

// resolve turns a list number from the last listing into an id.
func (s *Shell) resolve(ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(s.refs) {
		return s.refs[n-1]
	}
	return ref
}

func (s *Shell) home() {
	s.colors.title.Fprintln(s.out, "GophCards: AI-powered flashcards from your PDFs")
	if u, ok := s.sess.User(); ok {
		fmt.Fprintf(s.out, "Welcome back, %s.\n", u.DisplayName())
	} else {
		fmt.Fprintln(s.out, "Type 'login' or 'register' to get started, or 'decks' to browse public collections.")
	}
	fmt.Fprintln(s.out, "Type 'help' for a list of commands.")
}

func (s *Shell) login(ctx context.Context) {
	f, err := s.forms.Login()
	if s.formFailed(err) {
		return
	}
	if !s.sess.Login(ctx, f.Identifier, f.Password) {
		s.colors.fail.Fprintln(s.out, s.sess.Err())
		return
	}
	s.greet()
	s.Navigate(ctx, RouteDecks)
}

func (s *Shell) register(ctx context.Context) {
	req, err := s.forms.Register()
	if s.formFailed(err) {
		return
	}
	if !s.sess.Register(ctx, req) {
		s.colors.fail.Fprintln(s.out, s.sess.Err())
		return
	}
	s.greet()
	s.Navigate(ctx, RouteDecks)
}

func (s *Shell) greet() {
	if u, ok := s.sess.User(); ok {
		s.colors.ok.Fprintf(s.out, "Logged in as %s.\n", u.DisplayName())
	}
}

func (s *Shell) acceptToken(ctx context.Context, token string) {
	err := s.sess.AcceptToken(ctx, token)
	switch {
	case errors.Is(err, session.ErrNoToken):
		s.colors.fail.Fprintln(s.out, "Authentication failed. No token received.")
		s.route = RouteLogin
	case err != nil:
		s.colors.fail.Fprintln(s.out, "Authentication failed. Please try again.")
		s.route = RouteLogin
	default:
		s.colors.ok.Fprintln(s.out, "Authentication successful!")
		s.greet()
		s.Navigate(ctx, RouteDecks)
	}
}

func (s *Shell) sso(ctx context.Context) {
	srv, err := callback.Listen(s.callbackAddr, s.sess, s.log.Named("callback"))
	if err != nil {
		s.colors.fail.Fprintf(s.out, "Cannot start the sign-in listener: %v\n", err)
		return
	}
	defer func() { _ = srv.Close(context.Background()) }()

	fmt.Fprintln(s.out, "Finish signing in with your browser. The sign-in page must redirect to:")
	s.colors.title.Fprintln(s.out, "  "+srv.URL())
	fmt.Fprintln(s.out, "Waiting...")

	wctx, cancel := context.WithTimeout(ctx, s.callbackTimeout)
	defer cancel()
	if err := srv.Wait(wctx); err != nil {
		s.log.Info("sso did not complete", zap.Error(err))
		if errors.Is(err, callback.ErrNoToken) {
			s.colors.fail.Fprintln(s.out, "Authentication failed. No token received.")
		} else {
			s.colors.fail.Fprintln(s.out, "Authentication failed. Please try again.")
		}
		s.route = RouteLogin
		return
	}
	s.colors.ok.Fprintln(s.out, "Authentication successful!")
	s.greet()
	s.Navigate(ctx, RouteDecks)
}

func (s *Shell) whoami() {
	u, ok := s.sess.User()
	if !ok {
		fmt.Fprintln(s.out, "Not logged in.")
		return
	}
	fmt.Fprintf(s.out, "%s (@%s) <%s>\n", u.DisplayName(), u.Username, u.Email)
}

func (s *Shell) decks(ctx context.Context) {
	l := s.dir.List(ctx, s.sess.Token())
	authenticated := s.sess.Status() == session.StatusAuthenticated

	s.refs = s.refs[:0]
	if authenticated {
		for _, c := range l.Owned {
			s.refs = append(s.refs, c.ID)
		}
	}
	for _, c := range l.Public {
		s.refs = append(s.refs, c.ID)
	}
	s.colors.listing(s.out, l, authenticated)
}

func (s *Shell) upload(ctx context.Context) {
	owned := s.dir.ListOwned(ctx, s.sess.Token())
	req, err := s.forms.Upload(owned)
	if s.formFailed(err) {
		return
	}

	id, err := s.flow.Generate(ctx, req, s.sess.Token(), func(pct int) {
		fmt.Fprintf(s.out, "\rGenerating flashcards... %3d%%", pct)
	})
	fmt.Fprintln(s.out)
	if err != nil {
		s.colors.fail.Fprintln(s.out, upload.Message(err))
		s.expireOnAuth(ctx, err)
		return
	}
	s.colors.ok.Fprintln(s.out, "Flashcards generated!")
	s.Navigate(ctx, routeStudy+id)
}

func (s *Shell) newDeck(ctx context.Context) {
	if !s.requireAuth(ctx) {
		return
	}
	req, err := s.forms.NewDeck()
	if s.formFailed(err) {
		return
	}
	c, err := s.api.CreateCollection(ctx, s.sess.Token(), req)
	if err != nil {
		s.colors.fail.Fprintln(s.out, remoteMessage(err, "Could not create the collection. Please try again."))
		s.expireOnAuth(ctx, err)
		return
	}
	s.colors.ok.Fprintf(s.out, "Created %q (%s).\n", c.Name, c.ID)
}

func (s *Shell) addCards(ctx context.Context, id string) {
	if !s.requireAuth(ctx) {
		return
	}
	cards, err := s.forms.Cards()
	if s.formFailed(err) {
		return
	}
	if len(cards) == 0 {
		fmt.Fprintln(s.out, "No cards added.")
		return
	}
	if err := s.api.AddFlashcards(ctx, s.sess.Token(), id, cards); err != nil {
		s.colors.fail.Fprintln(s.out, remoteMessage(err, "Could not add the flashcards. Please try again."))
		s.expireOnAuth(ctx, err)
		return
	}
	s.colors.ok.Fprintf(s.out, "Added %d flashcards.\n", len(cards))
}

// formFailed prints form errors and reports whether there was one.
func (s *Shell) formFailed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, prompt.ErrAborted) {
		fmt.Fprintln(s.out)
		return true
	}
	var ve *prompt.ValidationError
	var ue *upload.ValidationError
	switch {
	case errors.As(err, &ve):
		s.colors.fail.Fprintln(s.out, ve.Message)
	case errors.As(err, &ue):
		s.colors.fail.Fprintln(s.out, ue.Message)
	default:
		s.colors.fail.Fprintln(s.out, err.Error())
	}
	return true
}

// expireOnAuth ends a session the API no longer accepts.
func (s *Shell) expireOnAuth(ctx context.Context, err error) {
	if !api.IsAuthError(err) {
		return
	}
	s.sess.Logout(ctx)
	s.route = RouteLogin
	fmt.Fprintln(s.out, "Type 'login' to sign in again.")
}

func remoteMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, api.ErrAuth):
		return upload.MsgAuth
	case errors.Is(err, api.ErrPermission):
		return upload.MsgPermission
	case errors.Is(err, api.ErrNotFound):
		return upload.MsgNotFound
	}
	return fallback
}
