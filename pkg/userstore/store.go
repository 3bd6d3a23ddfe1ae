// Package userstore persists platform accounts.
package userstore

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/user"
)

// ErrUserNotFound is returned when a user lookup finds no matching record.
var ErrUserNotFound = errors.New("user not found")

// Store defines the interface for account persistence.
type Store interface {
	// CreateUser inserts the user and writes the generated ID back.
	// It accepts an IDB so account creation can share a transaction with
	// wallet creation.
	CreateUser(ctx context.Context, idb bun.IDB, usr *user.User) error
	GetUser(ctx context.Context, opts ...QueryOption) (*user.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*user.User, error)
	CountUsersByKind(ctx context.Context) (map[user.Kind]int, error)
	ListUsersByAffiliate(ctx context.Context, affiliateID int64) ([]*user.User, error)
	DeleteUser(ctx context.Context, idb bun.IDB, userID int64) error
}

// QueryOptions defines options for querying users.
type QueryOptions struct {
	ID       *int64
	Email    *string
	Username *string
}

// QueryOption is a functional option for querying users.
type QueryOption func(*QueryOptions)

// WithID sets the user ID filter.
func WithID(id int64) QueryOption {
	return func(opts *QueryOptions) {
		opts.ID = &id
	}
}

// WithEmail sets the email filter.
func WithEmail(email string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Email = &email
	}
}

// WithUsername sets the username filter.
func WithUsername(username string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Username = &username
	}
}
