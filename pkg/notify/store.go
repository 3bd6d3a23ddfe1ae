package notify

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// SubscriptionStore persists web-push registrations.
type SubscriptionStore interface {
	// Save upserts a registration keyed by endpoint.
	Save(ctx context.Context, sub *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	Delete(ctx context.Context, endpoint string) error
	// DeleteUserData removes the user's registrations as part of an admin
	// cascade delete.
	DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error
}

type pgSubscriptionStore struct {
	db *bun.DB
}

// NewSubscriptionStore creates a new postgres implementation of the
// subscription store.
func NewSubscriptionStore(db *bun.DB) SubscriptionStore {
	return &pgSubscriptionStore{db: db}
}

func (s *pgSubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	dao := &PushSubscriptionDao{
		UserID:   sub.UserID,
		Endpoint: sub.Endpoint,
		P256dh:   sub.P256dh,
		Auth:     sub.Auth,
	}
	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (endpoint) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("p256dh = EXCLUDED.p256dh").
		Set("auth = EXCLUDED.auth").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *pgSubscriptionStore) List(ctx context.Context) ([]*Subscription, error) {
	var daos []PushSubscriptionDao
	if err := s.db.NewSelect().Model(&daos).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	subs := make([]*Subscription, len(daos))
	for i := range daos {
		subs[i] = toSubscription(&daos[i])
	}
	return subs, nil
}

func (s *pgSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	_, err := s.db.NewDelete().
		Model((*PushSubscriptionDao)(nil)).
		Where("endpoint = ?", endpoint).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *pgSubscriptionStore) DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error {
	if idb == nil {
		idb = s.db
	}
	_, err := idb.NewDelete().
		Model((*PushSubscriptionDao)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete push subscriptions: %w", err)
	}
	return nil
}
