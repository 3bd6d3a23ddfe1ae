package notify

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
)

// PushSender broadcasts web-push notifications to every registered browser.
type PushSender struct {
	store      SubscriptionStore
	subscriber string
	publicKey  string
	privateKey string
	logger     *zap.Logger
}

// NewPushSender creates a VAPID web-push sender.
func NewPushSender(store SubscriptionStore, subscriber, publicKey, privateKey string, logger *zap.Logger) *PushSender {
	return &PushSender{
		store:      store,
		subscriber: subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
		logger:     logger,
	}
}

// Broadcast sends the event to all registered subscriptions. Registrations
// the push service reports gone are removed.
func (p *PushSender) Broadcast(ctx context.Context, ev Event) {
	subs, err := p.store.List(ctx)
	if err != nil {
		p.logger.Error("failed to list push subscriptions", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to encode push payload", zap.Error(err))
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      p.subscriber,
			VAPIDPublicKey:  p.publicKey,
			VAPIDPrivateKey: p.privateKey,
			TTL:             60,
		})
		if err != nil {
			metrics.PushDeliveries.WithLabelValues("error").Inc()
			p.logger.Warn("push delivery failed",
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err))
			continue
		}
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			metrics.PushDeliveries.WithLabelValues("gone").Inc()
			if err := p.store.Delete(ctx, sub.Endpoint); err != nil {
				p.logger.Warn("failed to drop stale subscription", zap.Error(err))
			}
		default:
			metrics.PushDeliveries.WithLabelValues("sent").Inc()
		}
	}
}
