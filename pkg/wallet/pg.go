package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// balanceEffective is the SQL predicate selecting ledger rows that are
// reflected in the wallet balance. Withdrawals debit the wallet when the
// request is accepted, so their pending rows already count; a failed
// withdrawal flips to 'failed' and the balance is credited back.
const balanceEffective = "(t.status IN ('success', 'approved') OR (t.type = 'withdraw' AND t.status = 'pending'))"

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the wallet store.
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

func (s *pgStore) CreateWallet(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	dao := &WalletDao{UserID: userID, Balance: decimal.Zero}
	_, err := idb.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (s *pgStore) GetWallet(ctx context.Context, userID int64) (*Wallet, error) {
	dao := new(WalletDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &Wallet{UserID: dao.UserID, Balance: dao.Balance, UpdatedAt: dao.UpdatedAt}, nil
}

func (s *pgStore) LockWallet(ctx context.Context, idb bun.IDB, userID int64) (*Wallet, error) {
	if idb == nil {
		idb = s.db
	}
	dao := new(WalletDao)
	err := idb.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &Wallet{UserID: dao.UserID, Balance: dao.Balance, UpdatedAt: dao.UpdatedAt}, nil
}

func (s *pgStore) ApplyDelta(ctx context.Context, idb bun.IDB, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if idb == nil {
		idb = s.db
	}
	dao := new(WalletDao)
	err := idb.NewUpdate().
		Model(dao).
		Set("balance = balance + ?", delta).
		Set("updated_at = NOW()").
		Where("user_id = ?", userID).
		Returning("balance").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return dao.Balance, nil
}

func (s *pgStore) InsertTransaction(ctx context.Context, idb bun.IDB, tx *Transaction) error {
	if idb == nil {
		idb = s.db
	}
	dao := toTransactionDao(tx)
	_, err := idb.NewInsert().
		Model(dao).
		Returning("id, created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	tx.ID = dao.ID
	tx.CreatedAt = dao.CreatedAt
	tx.UpdatedAt = dao.UpdatedAt
	return nil
}

func (s *pgStore) TransitionStatus(ctx context.Context, idb bun.IDB, id int64, to TxStatus, from ...TxStatus) (bool, error) {
	if idb == nil {
		idb = s.db
	}
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}
	res, err := idb.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("status IN (?)", bun.In(states)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to transition transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *pgStore) SetTransactionEndToEnd(ctx context.Context, idb bun.IDB, id int64, endToEndID string) error {
	if idb == nil {
		idb = s.db
	}
	_, err := idb.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("end_to_end_id = ?", endToEndID).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set end_to_end_id: %w", err)
	}
	return nil
}

func (s *pgStore) SetTransactionExternalID(ctx context.Context, idb bun.IDB, id int64, externalID string) error {
	if idb == nil {
		idb = s.db
	}
	_, err := idb.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("external_id = ?", externalID).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set external_id: %w", err)
	}
	return nil
}

func (s *pgStore) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	dao := new(TransactionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return toTransaction(dao), nil
}

func (s *pgStore) GetTransactionByExternalID(ctx context.Context, txType TxType, externalID string) (*Transaction, error) {
	dao := new(TransactionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("t.type = ?", string(txType)).
		Where("t.external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by external id: %w", err)
	}
	return toTransaction(dao), nil
}

func (s *pgStore) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*Transaction, error) {
	var daos []TransactionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return toTransactions(daos), nil
}

func (s *pgStore) ListByTypeAndStatus(ctx context.Context, txType TxType, status TxStatus, limit int) ([]*Transaction, error) {
	var daos []TransactionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("type = ?", string(txType)).
		Where("status = ?", string(status)).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s transactions: %w", txType, status, err)
	}
	return toTransactions(daos), nil
}

func (s *pgStore) ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]*Transaction, error) {
	var daos []TransactionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions between: %w", err)
	}
	return toTransactions(daos), nil
}

func (s *pgStore) GetWalletLedgerSum(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	var balance, ledger decimal.Decimal
	err := s.db.NewSelect().
		Model((*WalletDao)(nil)).
		Column("balance").
		ColumnExpr("COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.user_id = w.user_id AND "+balanceEffective+"), 0)").
		Where("w.user_id = ?", userID).
		Scan(ctx, &balance, &ledger)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to read wallet ledger sum: %w", err)
	}
	return balance, ledger, nil
}

func (s *pgStore) ListWalletUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*WalletDao)(nil)).
		Column("user_id").
		Order("user_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet user ids: %w", err)
	}
	return ids, nil
}

func (s *pgStore) TotalsByType(ctx context.Context) (map[TxType]decimal.Decimal, error) {
	var rows []struct {
		Type  string          `bun:"type"`
		Total decimal.Decimal `bun:"total"`
	}
	err := s.db.NewSelect().
		Model((*TransactionDao)(nil)).
		Column("type").
		ColumnExpr("COALESCE(SUM(t.amount), 0) AS total").
		Where(balanceEffective).
		Group("type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to total transactions: %w", err)
	}

	totals := make(map[TxType]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[TxType(row.Type)] = row.Total
	}
	return totals, nil
}

func (s *pgStore) DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	if _, err := idb.NewDelete().
		Model((*TransactionDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user transactions: %w", err)
	}
	if _, err := idb.NewDelete().
		Model((*WalletDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user wallet: %w", err)
	}
	return nil
}

func toTransactions(daos []TransactionDao) []*Transaction {
	txs := make([]*Transaction, len(daos))
	for i := range daos {
		txs[i] = toTransaction(&daos[i])
	}
	return txs
}
