package valueobject

import (
	"net/mail"
	"strings"

	domainerror "github.com/fixora/gatekeeper/domain/error"
)

// MinPasswordLength applies when a password is set, never on login.
const MinPasswordLength = 6

// Credentials is a login attempt. Only presence is checked here; the
// password policy belongs to account creation and password change.
type Credentials struct {
	email    string
	password string
}

func NewCredentials(email, password string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domainerror.ErrInvalidRequest("Email is required")
	}
	if password == "" {
		return nil, domainerror.ErrInvalidRequest("Password is required")
	}
	return &Credentials{
		email:    email,
		password: password,
	}, nil
}

func (c *Credentials) Email() string {
	return c.email
}

func (c *Credentials) Password() string {
	return c.password
}

// ValidateEmail checks the address is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return domainerror.ErrInvalidEmail(email)
	}
	return nil
}

// ValidatePassword enforces the password policy for new passwords.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domainerror.ErrInvalidPassword("Password must be at least 6 characters")
	}
	return nil
}
