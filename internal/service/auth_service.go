package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/store"
	"inkpress/internal/user"
)

// maxUsernameAttempts bounds the retries when a derived username collides.
const maxUsernameAttempts = 5

type AuthService struct {
	users  store.Users
	issuer *auth.Issuer
}

func NewAuthService(users store.Users, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type FederatedInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Session is a signed-in user together with their session token.
type Session struct {
	User  *user.User
	Token string
}

// Signup creates a regular account. It does not sign the user in; clients
// call Signin afterwards.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*user.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Invalid("All fields are required")
	}
	u, err := newAccount(in.Username, in.Email, in.Password)
	if err != nil {
		// A registered email is a conflict whatever else is wrong with the input.
		if apperr.Is(err, apperr.Validation) && s.emailTaken(ctx, in.Email) {
			return nil, apperr.Wrap(apperr.Conflict, "User already exists", err)
		}
		return nil, err
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Setup creates the first account as an admin. It is refused once any
// account exists. The count here only picks the error for the common case;
// the store decides under concurrency.
func (s *AuthService) Setup(ctx context.Context, in SignupInput) (*user.User, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "counting users", err)
	}
	if count != 0 {
		return nil, apperr.New(apperr.Forbidden, "Setup not allowed; users already exist")
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Invalid("All fields are required")
	}
	u, err := newAccount(in.Username, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateFirstAdmin(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrSetupClosed):
			return nil, apperr.Wrap(apperr.Forbidden, "Setup not allowed; users already exist", err)
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.Wrap(apperr.Conflict, "User already exists", err)
		}
		return nil, apperr.Wrap(apperr.Internal, "creating admin", err)
	}
	log.Info().Str("user_id", u.ID).Msg("initial admin created")
	return u, nil
}

func (s *AuthService) Signin(ctx context.Context, in SigninInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Invalid("All fields are required")
	}
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "loading user", err)
	}
	if !user.VerifyPassword(in.Password, u.PasswordHash) {
		return nil, apperr.New(apperr.BadCredentials, "Wrong credentials")
	}
	return s.session(u)
}

// FederatedUpsert signs in the account for an email asserted by an upstream
// identity provider, creating it on first use. The provider's verification
// of the email is trusted as is.
func (s *AuthService) FederatedUpsert(ctx context.Context, in FederatedInput) (*Session, error) {
	email := user.NormalizeEmail(in.Email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.session(existing)
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Wrap(apperr.Internal, "loading user", err)
	}

	password, err := user.RandomPassword()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generating password", err)
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hashing password", err)
	}

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		username, err := user.DeriveUsername(in.DisplayName)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "deriving username", err)
		}
		u := &user.User{
			Username:       username,
			Email:          email,
			PasswordHash:   hash,
			ProfilePicture: strings.TrimSpace(in.AvatarURL),
		}
		err = s.users.Create(ctx, u)
		if err == nil {
			log.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("federated account created")
			return s.session(u)
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.Internal, "creating user", err)
		}
		// Either the username collided or a concurrent request created the
		// account for this email first.
		if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil {
			return s.session(existing)
		}
		log.Debug().Str("username", username).Int("attempt", attempt).Msg("derived username taken")
	}
	return nil, apperr.Wrap(apperr.Internal, "allocating username",
		fmt.Errorf("no free username after %d attempts", maxUsernameAttempts))
}

func (s *AuthService) session(u *user.User) (*Session, error) {
	token, err := s.issuer.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "signing token", err)
	}
	return &Session{User: u, Token: token}, nil
}

func (s *AuthService) create(ctx context.Context, u *user.User) error {
	err := s.users.Create(ctx, u)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrDuplicate) {
		if _, getErr := s.users.GetByEmail(ctx, u.Email); getErr == nil {
			return apperr.Wrap(apperr.Conflict, "User already exists", err)
		}
		return apperr.Wrap(apperr.Conflict, "Username is already taken", err)
	}
	return apperr.Wrap(apperr.Internal, "creating user", err)
}

func (s *AuthService) emailTaken(ctx context.Context, email string) bool {
	_, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	return err == nil
}

// newAccount validates signup fields and returns an unsaved user with a
// hashed password.
func newAccount(username, email, password string) (*user.User, error) {
	if err := user.ValidateUsername(username); err != nil {
		return nil, err
	}
	email = user.NormalizeEmail(email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := user.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hashing password", err)
	}
	return &user.User{
		Username:     strings.ToLower(username),
		Email:        email,
		PasswordHash: hash,
	}, nil
}
