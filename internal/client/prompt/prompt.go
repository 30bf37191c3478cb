// Package prompt reads the client's forms (login, registration, upload,
// new collection, new card) from an interactive terminal and validates
// them before anything reaches the network.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/GophCards/internal/client/upload"
	"github.com/atinyakov/GophCards/internal/models"
)

// ErrAborted is returned when input ends before a form is complete.
var ErrAborted = errors.New("input closed")

// Prompter asks questions on out and reads answers line by line from in.
type Prompter struct {
	scanner  *bufio.Scanner
	out      io.Writer
	validate *Validator
}

// New returns a Prompter over in and out.
func New(in io.Reader, out io.Writer) *Prompter {
	return NewFromScanner(bufio.NewScanner(in), out)
}

// NewFromScanner shares an existing scanner, so a shell and its forms
// consume the same input stream.
func NewFromScanner(s *bufio.Scanner, out io.Writer) *Prompter {
	return &Prompter{scanner: s, out: out, validate: NewValidator()}
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	line, err := p.readLine(label)
	return strings.TrimSpace(line), err
}

// AskSecret is Ask without trimming, for passwords.
func (p *Prompter) AskSecret(label string) (string, error) {
	return p.readLine(label)
}

func (p *Prompter) readLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrAborted
	}
	return p.scanner.Text(), nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	ans, err := p.Ask(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Login reads the login form.
func (p *Prompter) Login() (LoginForm, error) {
	var f LoginForm
	var err error
	if f.Identifier, err = p.Ask("Email or username: "); err != nil {
		return f, err
	}
	if f.Password, err = p.AskSecret("Password: "); err != nil {
		return f, err
	}
	return f, p.validate.Validate(f)
}

// Register reads the registration form and returns the API payload.
func (p *Prompter) Register() (models.RegisterRequest, error) {
	var f RegisterForm
	fields := []struct {
		label  string
		dst    *string
		secret bool
	}{
		{"Full name: ", &f.Name, false},
		{"Username: ", &f.Username, false},
		{"Email: ", &f.Email, false},
		{"Password: ", &f.Password, true},
		{"Confirm password: ", &f.ConfirmPassword, true},
	}
	for _, fld := range fields {
		ask := p.Ask
		if fld.secret {
			ask = p.AskSecret
		}
		v, err := ask(fld.label)
		if err != nil {
			return models.RegisterRequest{}, err
		}
		*fld.dst = v
	}
	if err := p.validate.Validate(f); err != nil {
		return models.RegisterRequest{}, err
	}
	return models.RegisterRequest{
		Name:     f.Name,
		Username: f.Username,
		Email:    f.Email,
		Password: f.Password,
	}, nil
}

// NewDeck reads the form for an empty collection.
func (p *Prompter) NewDeck() (models.NewCollectionRequest, error) {
	var f NewDeckForm
	var err error
	if f.Name, err = p.Ask("Collection name: "); err != nil {
		return models.NewCollectionRequest{}, err
	}
	if f.Description, err = p.Ask("Description (optional): "); err != nil {
		return models.NewCollectionRequest{}, err
	}
	if f.IsPublic, err = p.Confirm("Make it public?"); err != nil {
		return models.NewCollectionRequest{}, err
	}
	if err := p.validate.Validate(f); err != nil {
		return models.NewCollectionRequest{}, err
	}
	return models.NewCollectionRequest{Name: f.Name, Description: f.Description, IsPublic: f.IsPublic}, nil
}

// Cards reads flashcards until an empty question.
func (p *Prompter) Cards() ([]models.Flashcard, error) {
	var cards []models.Flashcard
	for {
		q, err := p.Ask("Question (empty to finish): ")
		if err != nil {
			return nil, err
		}
		if q == "" {
			return cards, nil
		}
		a, err := p.Ask("Answer: ")
		if err != nil {
			return nil, err
		}
		f := CardForm{Question: q, Answer: a}
		if err := p.validate.Validate(f); err != nil {
			return nil, err
		}
		cards = append(cards, models.Flashcard{Question: f.Question, Answer: f.Answer})
	}
}

// Upload reads the upload dialog: the document, then either a new
// collection or one of owned. The result is checked by upload.Validate.
func (p *Prompter) Upload(owned []models.Collection) (upload.Request, error) {
	var req upload.Request

	path, err := p.Ask("PDF file: ")
	if err != nil {
		return req, err
	}
	if path != "" {
		req.Files = []string{path}
	}

	req.Mode = upload.ModeNew
	if len(owned) > 0 {
		existing, err := p.Confirm("Add to an existing collection?")
		if err != nil {
			return req, err
		}
		if existing {
			req.Mode = upload.ModeExisting
		}
	}

	if req.Mode == upload.ModeExisting {
		for i, c := range owned {
			fmt.Fprintf(p.out, "  %d) %s (%d cards)\n", i+1, c.Name, c.CardCount)
		}
		ans, err := p.Ask("Collection number: ")
		if err != nil {
			return req, err
		}
		if n, convErr := strconv.Atoi(ans); convErr == nil && n >= 1 && n <= len(owned) {
			req.CollectionID = owned[n-1].ID
		}
	} else {
		if req.CollectionName, err = p.Ask("New collection name: "); err != nil {
			return req, err
		}
		if req.IsPublic, err = p.Confirm("Make it public?"); err != nil {
			return req, err
		}
	}
	return req, upload.Validate(req)
}
