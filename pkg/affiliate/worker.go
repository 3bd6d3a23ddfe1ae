package affiliate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

var hundred = decimal.NewFromInt(100)

// Worker drains the commission outbox: for each event it resolves the
// player's referring affiliate, computes the commission, credits the
// affiliate's wallet and the manager's cascading cut, and marks the event
// processed, all in one transaction per event.
type Worker struct {
	store   Store
	users   userstore.Store
	wallets wallet.Store
	logger  *zap.Logger

	interval  time.Duration
	batchSize int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a commission worker sweeping the outbox every interval.
func NewWorker(store Store, users userstore.Store, wallets wallet.Store, interval time.Duration, batchSize int, logger *zap.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		store:     store,
		users:     users,
		wallets:   wallets,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) sweep(ctx context.Context) {
	events, err := w.store.ListUnprocessedEvents(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list commission events", zap.Error(err))
		return
	}

	for _, ev := range events {
		if err := w.ProcessEvent(ctx, ev); err != nil {
			w.logger.Error("failed to process commission event",
				zap.Int64("event_id", ev.ID),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
			metrics.CommissionEvents.WithLabelValues("error").Inc()
			continue
		}
		metrics.CommissionEvents.WithLabelValues("processed").Inc()
	}
}

// ProcessEvent settles one outbox event. Events for users without a
// referring affiliate are marked processed without payout.
func (w *Worker) ProcessEvent(ctx context.Context, ev *Event) error {
	player, err := w.users.GetUser(ctx, userstore.WithID(ev.UserID))
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			// Player deleted since the event was written.
			return w.store.MarkEventProcessed(ctx, nil, ev.ID, time.Now())
		}
		return err
	}
	if player.AffiliateID == nil {
		return w.store.MarkEventProcessed(ctx, nil, ev.ID, time.Now())
	}

	aff, err := w.store.GetAffiliate(ctx, *player.AffiliateID)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			return w.store.MarkEventProcessed(ctx, nil, ev.ID, time.Now())
		}
		return err
	}

	base, rate := commissionBase(ev, aff)
	amount := base.Mul(rate).Div(hundred).Round(2)
	if amount.IsZero() {
		return w.store.MarkEventProcessed(ctx, nil, ev.ID, time.Now())
	}

	return w.wallets.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := w.credit(ctx, tx, ev, &Commission{
			EarnerID: aff.UserID,
			SourceID: ev.UserID,
			EventID:  ev.ID,
			Kind:     ev.Kind,
			Base:     base,
			Rate:     rate,
			Amount:   amount,
		}, wallet.TxAffiliateCommission, false); err != nil {
			return err
		}

		if aff.ManagerID != nil {
			mgr, err := w.store.GetManager(ctx, *aff.ManagerID)
			switch {
			case errors.Is(err, ErrManagerNotFound):
				// Affiliate points at a deleted manager; skip the cut.
			case err != nil:
				return err
			default:
				cut := amount.Mul(mgr.CutRate).Div(hundred).Round(2)
				if !cut.IsZero() {
					if err := w.credit(ctx, tx, ev, &Commission{
						EarnerID: mgr.UserID,
						SourceID: ev.UserID,
						EventID:  ev.ID,
						Kind:     ev.Kind,
						Base:     amount,
						Rate:     mgr.CutRate,
						Amount:   cut,
					}, wallet.TxManagerCommission, true); err != nil {
						return err
					}
				}
			}
		}

		return w.store.MarkEventProcessed(ctx, tx, ev.ID, time.Now())
	})
}

// commissionBase returns the signed commission base and the applicable rate.
// Game events use the player's net loss, so a net win produces a negative
// commission (clawback).
func commissionBase(ev *Event, aff *Affiliate) (decimal.Decimal, decimal.Decimal) {
	if ev.Kind == EventDeposit {
		return ev.Amount, aff.DepositRate
	}
	return ev.Amount.Sub(ev.Prize), aff.LossRate
}

func (w *Worker) credit(ctx context.Context, tx bun.Tx, ev *Event, c *Commission, txType wallet.TxType, manager bool) error {
	if manager {
		if err := w.store.InsertManagerCommission(ctx, tx, c); err != nil {
			return err
		}
	} else {
		if err := w.store.InsertAffiliateCommission(ctx, tx, c); err != nil {
			return err
		}
	}

	if _, err := w.wallets.ApplyDelta(ctx, tx, c.EarnerID, c.Amount); err != nil {
		return err
	}
	return w.wallets.InsertTransaction(ctx, tx, &wallet.Transaction{
		UserID:      c.EarnerID,
		Type:        txType,
		Amount:      c.Amount,
		Status:      wallet.StatusSuccess,
		Reference:   fmt.Sprintf("commission:%d:%d", ev.ID, c.EarnerID),
		Description: commissionDescription(ev.Kind),
		Game:        ev.Game,
	})
}

func commissionDescription(kind EventKind) string {
	if kind == EventDeposit {
		return "Comissão sobre depósito"
	}
	return "Comissão sobre jogadas"
}
