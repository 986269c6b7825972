package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/store"
	"inkpress/internal/user"
)

const (
	defaultPageSize = 9
	maxPageSize     = 100
)

type UserService struct {
	users store.Users
	now   func() time.Time
}

func NewUserService(users store.Users) *UserService {
	return &UserService{users: users, now: time.Now}
}

// UpdateInput is a partial profile update; nil or empty fields are ignored.
// IsAdmin may only be set by an admin.
type UpdateInput struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	Password       *string `json:"password,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	IsAdmin        *bool   `json:"isAdmin,omitempty"`
}

type ListQuery struct {
	StartIndex int
	Limit      int
	Sort       string
}

type ListResult struct {
	Users          []user.User `json:"users"`
	TotalUsers     int64       `json:"totalUsers"`
	LastMonthUsers int64       `json:"lastMonthUsers"`
}

func (s *UserService) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return u, nil
}

// Update applies in to the user with the given id on behalf of caller. The
// caller must already have passed the self-or-admin check.
func (s *UserService) Update(ctx context.Context, caller auth.Principal, id string, in UpdateInput) (*user.User, error) {
	var changes user.Changes

	if in.Password != nil && *in.Password != "" {
		if err := user.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := user.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "hashing password", err)
		}
		changes.PasswordHash = &hash
	}
	if in.Username != nil && *in.Username != "" {
		if err := user.ValidateUsername(*in.Username); err != nil {
			return nil, err
		}
		username := strings.ToLower(*in.Username)
		changes.Username = &username
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := user.NormalizeEmail(*in.Email)
		if err := user.ValidateEmail(email); err != nil {
			return nil, err
		}
		changes.Email = &email
	}
	if in.ProfilePicture != nil && *in.ProfilePicture != "" {
		if err := user.ValidateProfilePicture(*in.ProfilePicture); err != nil {
			return nil, err
		}
		changes.ProfilePicture = in.ProfilePicture
	}
	if in.IsAdmin != nil {
		if err := auth.AdminOnly(caller); err != nil {
			return nil, err
		}
		changes.IsAdmin = in.IsAdmin
	}

	if changes.Empty() {
		return nil, apperr.Invalid("No changes provided")
	}

	updated, err := s.users.Update(ctx, id, changes)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

// Delete removes the account permanently.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// List returns a page of users ordered by creation time along with the total
// number of users and how many joined during the last month.
func (s *UserService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.StartIndex
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, store.ListOptions{
		Offset:    offset,
		Limit:     limit,
		Ascending: q.Sort == "asc",
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing users", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "counting users", err)
	}
	lastMonth, err := s.users.CountCreatedSince(ctx, s.now().AddDate(0, -1, 0))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "counting recent users", err)
	}
	if users == nil {
		users = []user.User{}
	}
	return &ListResult{Users: users, TotalUsers: total, LastMonthUsers: lastMonth}, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, "User not found", err)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Wrap(apperr.Conflict, "Username or email is already taken", err)
	default:
		return apperr.Wrap(apperr.Internal, "user store", err)
	}
}
