package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ErrVaultNotFound is returned when a vault lookup finds no row.
var ErrVaultNotFound = errors.New("vault not found")

// Store defines cofre persistence. Contribute and Distribute take a bun.IDB
// so they run inside the settlement transaction.
type Store interface {
	// Contribute upserts the game's vault row and applies the house net
	// result for one play: balance += houseNet, total_contributed +=
	// max(0, houseNet), game_count += 1. Returns the row after the update.
	Contribute(ctx context.Context, idb bun.IDB, gameName string, houseNet decimal.Decimal) (*GameVault, error)
	// Distribute debits amount from the vault and logs the payout.
	Distribute(ctx context.Context, idb bun.IDB, gameName string, userID int64, amount decimal.Decimal, gameCount int64) (*Prize, error)

	GetVault(ctx context.Context, gameName string) (*GameVault, error)
	ListVaults(ctx context.Context) ([]*GameVault, error)
	// AdjustBalance applies an admin correction to the vault balance.
	AdjustBalance(ctx context.Context, gameName string, delta decimal.Decimal) (*GameVault, error)
	ListPrizes(ctx context.Context, gameName string, limit int) ([]*Prize, error)
	// DeleteUserData removes the user's prize records as part of an admin
	// cascade delete.
	DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error
}

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the vault store.
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Contribute(ctx context.Context, idb bun.IDB, gameName string, houseNet decimal.Decimal) (*GameVault, error) {
	if idb == nil {
		idb = s.db
	}

	contributed := houseNet
	if contributed.IsNegative() {
		contributed = decimal.Zero
	}

	dao := &GameVaultDao{
		GameName:         gameName,
		Balance:          houseNet,
		TotalContributed: contributed,
		TotalDistributed: decimal.Zero,
		GameCount:        1,
	}
	err := idb.NewInsert().
		Model(dao).
		On("CONFLICT (game_name) DO UPDATE").
		Set("balance = v.balance + EXCLUDED.balance").
		Set("total_contributed = v.total_contributed + EXCLUDED.total_contributed").
		Set("game_count = v.game_count + 1").
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to contribute to vault %s: %w", gameName, err)
	}

	return toGameVault(dao), nil
}

func (s *pgStore) Distribute(ctx context.Context, idb bun.IDB, gameName string, userID int64, amount decimal.Decimal, gameCount int64) (*Prize, error) {
	if idb == nil {
		idb = s.db
	}

	dao := new(GameVaultDao)
	err := idb.NewUpdate().
		Model(dao).
		Set("balance = balance - ?", amount).
		Set("total_distributed = total_distributed + ?", amount).
		Set("last_distribution = NOW()").
		Where("game_name = ?", gameName).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to debit vault %s: %w", gameName, err)
	}

	prizeDao := &VaultPrizeDao{
		GameName:      gameName,
		UserID:        userID,
		Amount:        amount,
		BalanceBefore: dao.Balance.Add(amount),
		BalanceAfter:  dao.Balance,
		GameCount:     gameCount,
	}
	if _, err := idb.NewInsert().
		Model(prizeDao).
		Returning("id, created_at").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to log vault prize: %w", err)
	}

	return toPrize(prizeDao), nil
}

func (s *pgStore) GetVault(ctx context.Context, gameName string) (*GameVault, error) {
	dao := new(GameVaultDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("game_name = ?", gameName).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return toGameVault(dao), nil
}

func (s *pgStore) ListVaults(ctx context.Context) ([]*GameVault, error) {
	var daos []GameVaultDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("game_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	vaults := make([]*GameVault, len(daos))
	for i := range daos {
		vaults[i] = toGameVault(&daos[i])
	}
	return vaults, nil
}

func (s *pgStore) AdjustBalance(ctx context.Context, gameName string, delta decimal.Decimal) (*GameVault, error) {
	dao := new(GameVaultDao)
	err := s.db.NewUpdate().
		Model(dao).
		Set("balance = balance + ?", delta).
		Where("game_name = ?", gameName).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to adjust vault: %w", err)
	}
	return toGameVault(dao), nil
}

func (s *pgStore) ListPrizes(ctx context.Context, gameName string, limit int) ([]*Prize, error) {
	var daos []VaultPrizeDao
	q := s.db.NewSelect().
		Model(&daos).
		Order("id DESC").
		Limit(limit)
	if gameName != "" {
		q = q.Where("game_name = ?", gameName)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list vault prizes: %w", err)
	}
	prizes := make([]*Prize, len(daos))
	for i := range daos {
		prizes[i] = toPrize(&daos[i])
	}
	return prizes, nil
}

func (s *pgStore) DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	_, err := idb.NewDelete().
		Model((*VaultPrizeDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete vault prizes: %w", err)
	}
	return nil
}
