package notify

import (
	"time"

	"github.com/uptrace/bun"
)

// Subscription is one browser's web-push registration.
type Subscription struct {
	ID        int64
	UserID    int64
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

// PushSubscriptionDao is a data access object that maps directly to the
// 'push_subscriptions' table in PostgreSQL.
type PushSubscriptionDao struct {
	bun.BaseModel `bun:"table:push_subscriptions,alias:ps"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        int64     `bun:"user_id,notnull"`
	Endpoint      string    `bun:"endpoint,notnull,unique"`
	P256dh        string    `bun:"p256dh,notnull"`
	Auth          string    `bun:"auth,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toSubscription(dao *PushSubscriptionDao) *Subscription {
	return &Subscription{
		ID:        dao.ID,
		UserID:    dao.UserID,
		Endpoint:  dao.Endpoint,
		P256dh:    dao.P256dh,
		Auth:      dao.Auth,
		CreatedAt: dao.CreatedAt,
	}
}
