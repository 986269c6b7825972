package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"inkpress/internal/apperr"
)

const (
	MinUsernameLen = 5
	MaxUsernameLen = 20
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

var validate = validator.New()

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return apperr.Invalid("Invalid email address")
	}
	return nil
}

// ValidateUsername checks a username before it is lowercased and stored.
func ValidateUsername(username string) error {
	if n := len(username); n < MinUsernameLen || n > MaxUsernameLen {
		return apperr.Invalid("Username must be between 5 and 20 characters")
	}
	if strings.ContainsAny(username, " \t\n") {
		return apperr.Invalid("Username cannot contain spaces")
	}
	if err := validate.Var(username, "alphanum"); err != nil {
		return apperr.Invalid("Username can only contain letters and numbers")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return apperr.Invalid("Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLen {
		return apperr.Invalid("Password must be at most 72 bytes")
	}
	return nil
}

func ValidateProfilePicture(url string) error {
	if err := validate.Var(url, "required,url,max=2048"); err != nil {
		return apperr.Invalid("Profile picture must be a valid URL")
	}
	return nil
}
