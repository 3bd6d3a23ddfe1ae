package wallet

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// WalletDao is a data access object that maps directly to the 'wallets'
// table in PostgreSQL.
type WalletDao struct {
	bun.BaseModel `bun:"table:wallets,alias:w"`
	UserID        int64           `bun:"user_id,pk"`
	Balance       decimal.Decimal `bun:"balance,notnull,type:numeric(14,2)"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// TransactionDao is a data access object that maps directly to the
// 'transactions' table in PostgreSQL.
type TransactionDao struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`
	ID            int64           `bun:"id,pk,autoincrement"`
	UserID        int64           `bun:"user_id,notnull"`
	Type          string          `bun:"type,notnull,type:varchar(32)"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:numeric(14,2)"`
	Status        string          `bun:"status,notnull,default:'pending',type:varchar(16)"`
	Reference     string          `bun:"reference,unique,notnull,type:varchar(64)"`
	Description   string          `bun:"description,type:varchar(255)"`
	Game          string          `bun:"game,type:varchar(64)"`
	ExternalID    *string         `bun:"external_id,type:varchar(128)"`
	PixKey        *string         `bun:"pix_key,type:varchar(140)"`
	PixKeyType    *string         `bun:"pix_key_type,type:varchar(16)"`
	EndToEndID    *string         `bun:"end_to_end_id,type:varchar(64)"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

func toTransactionDao(tx *Transaction) *TransactionDao {
	return &TransactionDao{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Status:      string(tx.Status),
		Reference:   tx.Reference,
		Description: tx.Description,
		Game:        tx.Game,
		ExternalID:  tx.ExternalID,
		PixKey:      tx.PixKey,
		PixKeyType:  tx.PixKeyType,
		EndToEndID:  tx.EndToEndID,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toTransaction(dao *TransactionDao) *Transaction {
	return &Transaction{
		ID:          dao.ID,
		UserID:      dao.UserID,
		Type:        TxType(dao.Type),
		Amount:      dao.Amount,
		Status:      TxStatus(dao.Status),
		Reference:   dao.Reference,
		Description: dao.Description,
		Game:        dao.Game,
		ExternalID:  dao.ExternalID,
		PixKey:      dao.PixKey,
		PixKeyType:  dao.PixKeyType,
		EndToEndID:  dao.EndToEndID,
		CreatedAt:   dao.CreatedAt,
		UpdatedAt:   dao.UpdatedAt,
	}
}
