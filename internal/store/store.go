// Package store persists user records. Email and username uniqueness is
// enforced by unique indexes, and violations come back as ErrDuplicate.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inkpress/internal/user"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
	// ErrSetupClosed means accounts already exist or another first-admin
	// setup committed first.
	ErrSetupClosed = errors.New("setup already completed")
)

type ListOptions struct {
	Offset    int
	Limit     int
	Ascending bool
}

type Users interface {
	Create(ctx context.Context, u *user.User) error
	CreateFirstAdmin(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, id string, changes user.Changes) (*user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]user.User, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type GormUsers struct {
	db *gorm.DB
}

func NewGormUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (s *GormUsers) Create(ctx context.Context, u *user.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

// CreateFirstAdmin stores u as an admin only while the users table is empty.
// The fixed-key bootstrap row makes concurrent callers collide on a primary
// key, so exactly one of them commits.
func (s *GormUsers) CreateFirstAdmin(ctx context.Context, u *user.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&user.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count != 0 {
			return ErrSetupClosed
		}
		// A marker left by an earlier setup whose accounts were all deleted.
		if err := tx.Where("id = ?", user.BootstrapID).Delete(&user.Bootstrap{}).Error; err != nil {
			return err
		}
		u.IsAdmin = true
		if err := tx.Create(u).Error; err != nil {
			return translate(err)
		}
		marker := user.Bootstrap{ID: user.BootstrapID, UserID: u.ID}
		if err := tx.Create(&marker).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSetupClosed
			}
			return err
		}
		return nil
	})
}

func (s *GormUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.first(s.db.WithContext(ctx).Where("email = ?", email))
}

// Update applies changes to the user and returns the stored result.
func (s *GormUsers) Update(ctx context.Context, id string, changes user.Changes) (*user.User, error) {
	var updated *user.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&user.User{}).Where("id = ?", id).Updates(changes.Columns())
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var err error
		updated, err = s.first(tx.Where("id = ?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormUsers) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&user.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormUsers) List(ctx context.Context, opts ListOptions) ([]user.User, error) {
	order := "created_at DESC"
	if opts.Ascending {
		order = "created_at ASC"
	}
	var users []user.User
	err := s.db.WithContext(ctx).
		Order(order).
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormUsers) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&user.User{}).Count(&count).Error
	return count, err
}

func (s *GormUsers) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&user.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (s *GormUsers) first(q *gorm.DB) (*user.User, error) {
	var u user.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}
