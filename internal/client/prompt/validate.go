package prompt

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,20}$`)
	passwordRe = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

// ValidationError is a form error shown inline; the form is never sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LoginForm is the login page.
type LoginForm struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

// RegisterForm is the registration page.
type RegisterForm struct {
	Name            string `validate:"required"`
	Username        string `validate:"required,username"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,strongpassword"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// NewDeckForm creates an empty collection.
type NewDeckForm struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	IsPublic    bool
}

// CardForm is one hand-written flashcard.
type CardForm struct {
	Question string `validate:"required"`
	Answer   string `validate:"required"`
}

var messages = map[string]string{
	"Identifier.required":     "Email/username and password are required",
	"Password.required":       "Email/username and password are required",
	"Name.required":           "Name is required",
	"Name.max":                "Name must be at most 100 characters",
	"Description.max":         "Description must be at most 500 characters",
	"Username.required":       "Username is required",
	"Username.username":       "Username must be 3-20 characters and can only contain letters, numbers, underscores, or dots",
	"Email.required":          "Please enter a valid email address",
	"Email.email":             "Please enter a valid email address",
	"Password.strongpassword": "Password must be at least 8 characters with 1 uppercase, 1 lowercase, 1 number, and 1 special character",
	"ConfirmPassword.eqfield": "Passwords do not match",
	"Question.required":       "Question is required",
	"Answer.required":         "Answer is required",
}

// Validator checks forms with the go-playground validator and the custom
// username and strongpassword tags.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the custom tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate returns the first failing field as a *ValidationError.
func (val *Validator) Validate(form any) error {
	err := val.v.Struct(form)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err
	}
	fe := ves[0]
	msg, ok := messages[fe.Namespace()+"."+fe.Tag()]
	if !ok {
		msg, ok = messages[fe.Field()+"."+fe.Tag()]
	}
	if !ok {
		msg = "Invalid " + strings.ToLower(fe.Field())
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// strongPassword requires at least 8 characters drawn from letters, digits
// and @$!%*?& with one of each class.
func strongPassword(s string) bool {
	if !passwordRe.MatchString(s) {
		return false
	}
	return strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(s, "0123456789") &&
		strings.ContainsAny(s, "@$!%*?&")
}
