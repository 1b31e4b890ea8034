package subscriber

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	nameMinLength = 3
	nameMaxLength = 256
	// forbiddenNameCharacters are rejected anywhere in a name.
	forbiddenNameCharacters = "<>\"`'%;\\{}"
)

var emailValidator = validator.New()

// Email is a validated email address.
type Email struct {
	address string
}

// ParseEmail validates s as an email address. Surrounding whitespace is
// rejected, not stripped.
func ParseEmail(s string) (Email, error) {
	if s == "" || s != strings.TrimSpace(s) {
		return Email{}, ErrInvalidSubscriberEmail
	}
	if err := emailValidator.Var(s, "required,email"); err != nil {
		return Email{}, ErrInvalidSubscriberEmail
	}
	return Email{address: s}, nil
}

func (e Email) String() string { return e.address }

// Name is a subscriber display name.
type Name struct {
	value string
}

// ParseName trims s and checks length bounds and forbidden characters.
func ParseName(s string) (Name, error) {
	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	if n < nameMinLength || n > nameMaxLength {
		return Name{}, ErrInvalidSubscriberName
	}
	if strings.ContainsAny(trimmed, forbiddenNameCharacters) {
		return Name{}, ErrInvalidSubscriberName
	}
	return Name{value: trimmed}, nil
}

func (n Name) String() string { return n.value }
