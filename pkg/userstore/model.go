package userstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/user"
)

// UserDao is a data access object that maps directly to the 'users' table in
// PostgreSQL.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Email         string    `bun:"email,unique,notnull,type:varchar(255)"`
	Username      string    `bun:"username,unique,notnull,type:varchar(64)"`
	PasswordHash  string    `bun:"password_hash,notnull,type:varchar(128)"`
	Kind          string    `bun:"kind,notnull,default:'regular',type:varchar(16)"`
	AffiliateID   *int64    `bun:"affiliate_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toUserDao(usr *user.User) *UserDao {
	return &UserDao{
		ID:           usr.ID,
		Email:        usr.Email,
		Username:     usr.Username,
		PasswordHash: usr.PasswordHash,
		Kind:         string(usr.Kind),
		AffiliateID:  usr.AffiliateID,
		CreatedAt:    usr.CreatedAt,
	}
}

func toUser(dao *UserDao) *user.User {
	return &user.User{
		ID:           dao.ID,
		Email:        dao.Email,
		Username:     dao.Username,
		PasswordHash: dao.PasswordHash,
		Kind:         user.Kind(dao.Kind),
		AffiliateID:  dao.AffiliateID,
		CreatedAt:    dao.CreatedAt,
	}
}
