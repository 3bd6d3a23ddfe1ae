package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrRoundNotFound is returned when a round lookup finds no row.
	ErrRoundNotFound = errors.New("game round not found")
	// ErrRoundExists is returned when an insert hits an already settled
	// (user_id, round_id) pair.
	ErrRoundExists = errors.New("game round already settled")
)

// Round is one settled play: the outcome of the draw and the wallet balance
// after the play was applied.
type Round struct {
	ID         int64
	UserID     int64
	Game       string
	RoundID    string
	Won        bool
	Prize      decimal.Decimal
	VaultPrize *decimal.Decimal
	Balance    decimal.Decimal
	CreatedAt  time.Time
}

// RoundStore persists settled plays.
type RoundStore interface {
	// InsertRound records a settled play. A duplicate (user_id, round_id)
	// returns ErrRoundExists so the caller can fall back to the stored
	// result.
	InsertRound(ctx context.Context, idb bun.IDB, round *Round) error
	// GetRound returns a previously settled play for idempotent replays.
	GetRound(ctx context.Context, userID int64, roundID string) (*Round, error)
	ListRounds(ctx context.Context, userID int64, limit int) ([]*Round, error)
	CountRoundsSince(ctx context.Context, since time.Time) (int64, error)
	// DeleteUserData removes the user's rounds as part of an admin cascade
	// delete.
	DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error
}

type pgRoundStore struct {
	db *bun.DB
}

// NewRoundStore creates a new postgres implementation of the round store.
func NewRoundStore(db *bun.DB) RoundStore {
	return &pgRoundStore{db: db}
}

func (s *pgRoundStore) InsertRound(ctx context.Context, idb bun.IDB, round *Round) error {
	if idb == nil {
		idb = s.db
	}

	dao := &GameRoundDao{
		UserID:     round.UserID,
		Game:       round.Game,
		RoundID:    round.RoundID,
		Won:        round.Won,
		Prize:      round.Prize,
		VaultPrize: round.VaultPrize,
		Balance:    round.Balance,
	}
	_, err := idb.NewInsert().
		Model(dao).
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrRoundExists
		}
		return fmt.Errorf("failed to insert game round: %w", err)
	}

	round.ID = dao.ID
	round.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgRoundStore) GetRound(ctx context.Context, userID int64, roundID string) (*Round, error) {
	dao := new(GameRoundDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Where("round_id = ?", roundID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get game round: %w", err)
	}
	return toRound(dao), nil
}

func (s *pgRoundStore) ListRounds(ctx context.Context, userID int64, limit int) ([]*Round, error) {
	var daos []GameRoundDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list game rounds: %w", err)
	}
	rounds := make([]*Round, len(daos))
	for i := range daos {
		rounds[i] = toRound(&daos[i])
	}
	return rounds, nil
}

func (s *pgRoundStore) CountRoundsSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*GameRoundDao)(nil)).
		Where("created_at >= ?", since).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count game rounds: %w", err)
	}
	return int64(count), nil
}

func (s *pgRoundStore) DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	_, err := idb.NewDelete().
		Model((*GameRoundDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete game rounds: %w", err)
	}
	return nil
}
