package affiliate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the affiliate store.
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) CreateAffiliate(ctx context.Context, idb bun.IDB, aff *Affiliate) error {
	if idb == nil {
		idb = s.db
	}
	dao := &AffiliateDao{
		UserID:        aff.UserID,
		Code:          aff.Code,
		DepositRate:   aff.DepositRate,
		LossRate:      aff.LossRate,
		ManagerID:     aff.ManagerID,
		TotalEarnings: decimal.Zero,
	}
	if _, err := idb.NewInsert().Model(dao).Returning("created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create affiliate: %w", err)
	}
	aff.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetAffiliate(ctx context.Context, userID int64) (*Affiliate, error) {
	dao := new(AffiliateDao)
	err := s.db.NewSelect().Model(dao).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	return toAffiliate(dao), nil
}

func (s *pgStore) GetAffiliateByCode(ctx context.Context, code string) (*Affiliate, error) {
	dao := new(AffiliateDao)
	err := s.db.NewSelect().Model(dao).Where("code = ?", code).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to get affiliate by code: %w", err)
	}
	return toAffiliate(dao), nil
}

func (s *pgStore) ListAffiliates(ctx context.Context, managerID *int64) ([]*Affiliate, error) {
	var daos []AffiliateDao
	q := s.db.NewSelect().Model(&daos).Order("user_id ASC")
	if managerID != nil {
		q = q.Where("manager_id = ?", *managerID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list affiliates: %w", err)
	}
	affs := make([]*Affiliate, len(daos))
	for i := range daos {
		affs[i] = toAffiliate(&daos[i])
	}
	return affs, nil
}

func (s *pgStore) CreateManager(ctx context.Context, idb bun.IDB, mgr *Manager) error {
	if idb == nil {
		idb = s.db
	}
	dao := &ManagerDao{
		UserID:        mgr.UserID,
		CutRate:       mgr.CutRate,
		TotalEarnings: decimal.Zero,
	}
	if _, err := idb.NewInsert().Model(dao).Returning("created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	mgr.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetManager(ctx context.Context, userID int64) (*Manager, error) {
	dao := new(ManagerDao)
	err := s.db.NewSelect().Model(dao).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrManagerNotFound
		}
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}
	return toManager(dao), nil
}

func (s *pgStore) RecordGameEvent(ctx context.Context, idb bun.IDB, userID int64, game string, wager, prize decimal.Decimal) error {
	return s.insertEvent(ctx, idb, &CommissionEventDao{
		Kind:   string(EventGame),
		UserID: userID,
		Game:   game,
		Amount: wager,
		Prize:  prize,
	})
}

func (s *pgStore) RecordDepositEvent(ctx context.Context, idb bun.IDB, userID int64, amount decimal.Decimal) error {
	return s.insertEvent(ctx, idb, &CommissionEventDao{
		Kind:   string(EventDeposit),
		UserID: userID,
		Amount: amount,
		Prize:  decimal.Zero,
	})
}

func (s *pgStore) insertEvent(ctx context.Context, idb bun.IDB, dao *CommissionEventDao) error {
	if idb == nil {
		idb = s.db
	}
	if _, err := idb.NewInsert().Model(dao).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record commission event: %w", err)
	}
	return nil
}

func (s *pgStore) ListUnprocessedEvents(ctx context.Context, limit int) ([]*Event, error) {
	var daos []CommissionEventDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("processed_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list commission events: %w", err)
	}
	events := make([]*Event, len(daos))
	for i := range daos {
		events[i] = toEvent(&daos[i])
	}
	return events, nil
}

func (s *pgStore) MarkEventProcessed(ctx context.Context, idb bun.IDB, eventID int64, at time.Time) error {
	if idb == nil {
		idb = s.db
	}
	res, err := idb.NewUpdate().
		Model((*CommissionEventDao)(nil)).
		Set("processed_at = ?", at).
		Where("id = ?", eventID).
		Where("processed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark commission event processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("commission event %d already processed", eventID)
	}
	return nil
}

func (s *pgStore) InsertAffiliateCommission(ctx context.Context, idb bun.IDB, c *Commission) error {
	if idb == nil {
		idb = s.db
	}
	dao := &AffiliateCommissionDao{CommissionDao: commissionDao(c)}
	if _, err := idb.NewInsert().Model(dao).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert affiliate commission: %w", err)
	}
	c.ID = dao.ID
	c.CreatedAt = dao.CreatedAt

	_, err := idb.NewUpdate().
		Model((*AffiliateDao)(nil)).
		Set("total_earnings = total_earnings + ?", c.Amount).
		Where("user_id = ?", c.EarnerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update affiliate earnings: %w", err)
	}
	return nil
}

func (s *pgStore) InsertManagerCommission(ctx context.Context, idb bun.IDB, c *Commission) error {
	if idb == nil {
		idb = s.db
	}
	dao := &ManagerCommissionDao{CommissionDao: commissionDao(c)}
	if _, err := idb.NewInsert().Model(dao).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert manager commission: %w", err)
	}
	c.ID = dao.ID
	c.CreatedAt = dao.CreatedAt

	_, err := idb.NewUpdate().
		Model((*ManagerDao)(nil)).
		Set("total_earnings = total_earnings + ?", c.Amount).
		Where("user_id = ?", c.EarnerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update manager earnings: %w", err)
	}
	return nil
}

func commissionDao(c *Commission) CommissionDao {
	return CommissionDao{
		EarnerID: c.EarnerID,
		SourceID: c.SourceID,
		EventID:  c.EventID,
		Kind:     string(c.Kind),
		Base:     c.Base,
		Rate:     c.Rate,
		Amount:   c.Amount,
	}
}

func (s *pgStore) ListAffiliateCommissions(ctx context.Context, earnerID int64, limit int) ([]*Commission, error) {
	var daos []AffiliateCommissionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("earner_id = ?", earnerID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliate commissions: %w", err)
	}
	out := make([]*Commission, len(daos))
	for i := range daos {
		out[i] = toCommission(&daos[i].CommissionDao)
	}
	return out, nil
}

func (s *pgStore) ListManagerCommissions(ctx context.Context, earnerID int64, limit int) ([]*Commission, error) {
	var daos []ManagerCommissionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("earner_id = ?", earnerID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list manager commissions: %w", err)
	}
	out := make([]*Commission, len(daos))
	for i := range daos {
		out[i] = toCommission(&daos[i].CommissionDao)
	}
	return out, nil
}

func (s *pgStore) DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	if _, err := idb.NewDelete().
		Model((*AffiliateCommissionDao)(nil)).
		Where("earner_id = ? OR source_id = ?", userID, userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete affiliate commissions: %w", err)
	}
	if _, err := idb.NewDelete().
		Model((*ManagerCommissionDao)(nil)).
		Where("earner_id = ? OR source_id = ?", userID, userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete manager commissions: %w", err)
	}
	if _, err := idb.NewDelete().
		Model((*CommissionEventDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete commission events: %w", err)
	}
	if _, err := idb.NewDelete().
		Model((*AffiliateDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete affiliate: %w", err)
	}
	if _, err := idb.NewDelete().
		Model((*ManagerDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete manager: %w", err)
	}
	return nil
}
