package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/user"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the user store.
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) CreateUser(ctx context.Context, idb bun.IDB, usr *user.User) error {
	if idb == nil {
		idb = s.db
	}
	dao := toUserDao(usr)

	_, err := idb.NewInsert().
		Model(dao).
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	usr.ID = dao.ID
	usr.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetUser(ctx context.Context, opts ...QueryOption) (*user.User, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dao := new(UserDao)
	query := s.db.NewSelect().Model(dao)

	if options.ID != nil {
		query = query.Where("u.id = ?", *options.ID)
	}
	if options.Email != nil {
		query = query.Where("u.email = ?", *options.Email)
	}
	if options.Username != nil {
		query = query.Where("u.username = ?", *options.Username)
	}

	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(dao), nil
}

func (s *pgStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*UserDao)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (s *pgStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*UserDao)(nil)).
		Where("username = ?", username).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ListUsers(ctx context.Context, limit, offset int) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*user.User, len(daos))
	for i := range daos {
		users[i] = toUser(&daos[i])
	}
	return users, nil
}

func (s *pgStore) CountUsersByKind(ctx context.Context) (map[user.Kind]int, error) {
	var rows []struct {
		Kind  string `bun:"kind"`
		Count int    `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*UserDao)(nil)).
		Column("kind").
		ColumnExpr("COUNT(*) AS count").
		Group("kind").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	counts := make(map[user.Kind]int, len(rows))
	for _, row := range rows {
		counts[user.Kind(row.Kind)] = row.Count
	}
	return counts, nil
}

func (s *pgStore) ListUsersByAffiliate(ctx context.Context, affiliateID int64) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("affiliate_id = ?", affiliateID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred users: %w", err)
	}
	users := make([]*user.User, len(daos))
	for i := range daos {
		users[i] = toUser(&daos[i])
	}
	return users, nil
}

func (s *pgStore) DeleteUser(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	res, err := idb.NewDelete().
		Model((*UserDao)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
