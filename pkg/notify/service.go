package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier builds events for the domain services and delivers them through
// the SSE hub and, when configured, web push. Delivery is best effort and
// never fails the calling operation.
type Notifier struct {
	hub    *Hub
	push   *PushSender
	logger *zap.Logger
}

// NewNotifier creates a notifier. push may be nil when web push is disabled.
func NewNotifier(hub *Hub, push *PushSender, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, push: push, logger: logger}
}

// NotifyDeposit announces a confirmed deposit to the back office.
func (n *Notifier) NotifyDeposit(ctx context.Context, userID int64, amount decimal.Decimal) {
	n.emit(ctx, Event{
		Type:      EventDeposit,
		UserID:    userID,
		Amount:    amount,
		Message:   fmt.Sprintf("Depósito de R$ %s confirmado", amount.StringFixed(2)),
		CreatedAt: time.Now(),
	})
}

// NotifyWithdrawRequest announces a withdrawal waiting for approval.
func (n *Notifier) NotifyWithdrawRequest(ctx context.Context, userID int64, amount decimal.Decimal) {
	n.emit(ctx, Event{
		Type:      EventWithdrawRequest,
		UserID:    userID,
		Amount:    amount,
		Message:   fmt.Sprintf("Saque de R$ %s aguardando aprovação", amount.StringFixed(2)),
		CreatedAt: time.Now(),
	})
}

// NotifyVaultPrize announces a cofre payout.
func (n *Notifier) NotifyVaultPrize(ctx context.Context, userID int64, game string, amount decimal.Decimal) {
	n.emit(ctx, Event{
		Type:      EventVaultPrize,
		UserID:    userID,
		Game:      game,
		Amount:    amount,
		Message:   fmt.Sprintf("Prêmio do cofre de R$ %s pago", amount.StringFixed(2)),
		CreatedAt: time.Now(),
	})
}

func (n *Notifier) emit(ctx context.Context, ev Event) {
	if err := n.hub.Publish(ctx, ev); err != nil {
		n.logger.Warn("failed to publish notification",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
	if n.push != nil {
		go n.push.Broadcast(context.WithoutCancel(ctx), ev)
	}
}
