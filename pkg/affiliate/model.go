package affiliate

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// AffiliateDao is a data access object that maps directly to the
// 'affiliates' table in PostgreSQL.
type AffiliateDao struct {
	bun.BaseModel `bun:"table:affiliates,alias:a"`
	UserID        int64           `bun:"user_id,pk"`
	Code          string          `bun:"code,notnull,unique,type:varchar(32)"`
	DepositRate   decimal.Decimal `bun:"deposit_rate,notnull,type:numeric(5,2)"`
	LossRate      decimal.Decimal `bun:"loss_rate,notnull,type:numeric(5,2)"`
	ManagerID     *int64          `bun:"manager_id"`
	TotalEarnings decimal.Decimal `bun:"total_earnings,notnull,type:numeric(14,2)"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

// ManagerDao is a data access object that maps directly to the 'managers'
// table in PostgreSQL.
type ManagerDao struct {
	bun.BaseModel `bun:"table:managers,alias:m"`
	UserID        int64           `bun:"user_id,pk"`
	CutRate       decimal.Decimal `bun:"cut_rate,notnull,type:numeric(5,2)"`
	TotalEarnings decimal.Decimal `bun:"total_earnings,notnull,type:numeric(14,2)"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

// CommissionEventDao is a data access object that maps directly to the
// 'commission_events' outbox table in PostgreSQL.
type CommissionEventDao struct {
	bun.BaseModel `bun:"table:commission_events,alias:ce"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Kind          string          `bun:"kind,notnull,type:varchar(16)"`
	UserID        int64           `bun:"user_id,notnull"`
	Game          string          `bun:"game,type:varchar(64)"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:numeric(14,2)"`
	Prize         decimal.Decimal `bun:"prize,notnull,type:numeric(14,2)"`
	ProcessedAt   *time.Time      `bun:"processed_at"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

// CommissionDao is a data access object shared by the 'affiliate_commissions'
// and 'manager_commissions' tables; the concrete table is picked per query.
type CommissionDao struct {
	ID        int64           `bun:"id,pk,autoincrement"`
	EarnerID  int64           `bun:"earner_id,notnull"`
	SourceID  int64           `bun:"source_id,notnull"`
	EventID   int64           `bun:"event_id,notnull"`
	Kind      string          `bun:"kind,notnull,type:varchar(16)"`
	Base      decimal.Decimal `bun:"base,notnull,type:numeric(14,2)"`
	Rate      decimal.Decimal `bun:"rate,notnull,type:numeric(5,2)"`
	Amount    decimal.Decimal `bun:"amount,notnull,type:numeric(14,2)"`
	CreatedAt time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

// AffiliateCommissionDao maps to the 'affiliate_commissions' table.
type AffiliateCommissionDao struct {
	bun.BaseModel `bun:"table:affiliate_commissions,alias:ac"`
	CommissionDao
}

// ManagerCommissionDao maps to the 'manager_commissions' table.
type ManagerCommissionDao struct {
	bun.BaseModel `bun:"table:manager_commissions,alias:mc"`
	CommissionDao
}

func toAffiliate(dao *AffiliateDao) *Affiliate {
	return &Affiliate{
		UserID:        dao.UserID,
		Code:          dao.Code,
		DepositRate:   dao.DepositRate,
		LossRate:      dao.LossRate,
		ManagerID:     dao.ManagerID,
		TotalEarnings: dao.TotalEarnings,
		CreatedAt:     dao.CreatedAt,
	}
}

func toManager(dao *ManagerDao) *Manager {
	return &Manager{
		UserID:        dao.UserID,
		CutRate:       dao.CutRate,
		TotalEarnings: dao.TotalEarnings,
		CreatedAt:     dao.CreatedAt,
	}
}

func toEvent(dao *CommissionEventDao) *Event {
	return &Event{
		ID:          dao.ID,
		Kind:        EventKind(dao.Kind),
		UserID:      dao.UserID,
		Game:        dao.Game,
		Amount:      dao.Amount,
		Prize:       dao.Prize,
		ProcessedAt: dao.ProcessedAt,
		CreatedAt:   dao.CreatedAt,
	}
}

func toCommission(dao *CommissionDao) *Commission {
	return &Commission{
		ID:        dao.ID,
		EarnerID:  dao.EarnerID,
		SourceID:  dao.SourceID,
		EventID:   dao.EventID,
		Kind:      EventKind(dao.Kind),
		Base:      dao.Base,
		Rate:      dao.Rate,
		Amount:    dao.Amount,
		CreatedAt: dao.CreatedAt,
	}
}
