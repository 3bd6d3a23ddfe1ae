// Package payments implements PIX deposits and withdrawals through the
// HorsePay processor, including the webhook consumer that settles them.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/horsepay"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

var (
	minDeposit  = decimal.RequireFromString("1.00")
	minWithdraw = decimal.RequireFromString("10.00")
)

// Gateway is the payment-processor surface the service needs; satisfied by
// *horsepay.Client.
type Gateway interface {
	CreateDepositOrder(ctx context.Context, payerName string, amount decimal.Decimal, callbackURL string) (*horsepay.DepositOrder, error)
	Withdraw(ctx context.Context, amount decimal.Decimal, pixKey, pixType, callbackURL string) (*horsepay.WithdrawResult, error)
}

// DepositRecorder appends a deposit commission event inside the webhook
// settlement transaction.
type DepositRecorder interface {
	RecordDepositEvent(ctx context.Context, idb bun.IDB, userID int64, amount decimal.Decimal) error
}

// AdminNotifier pushes back-office alerts after a payment settles.
type AdminNotifier interface {
	NotifyDeposit(ctx context.Context, userID int64, amount decimal.Decimal)
	NotifyWithdrawRequest(ctx context.Context, userID int64, amount decimal.Decimal)
}

// Service orchestrates the deposit and withdraw flows.
type Service struct {
	wallets     wallet.Store
	users       userstore.Store
	gateway     Gateway
	commissions DepositRecorder
	notifier    AdminNotifier
	callbackURL string
	logger      *zap.Logger
}

// NewService creates a payments service. commissions and notifier may be
// nil, disabling the respective side effects.
func NewService(
	wallets wallet.Store,
	users userstore.Store,
	gateway Gateway,
	commissions DepositRecorder,
	notifier AdminNotifier,
	callbackURL string,
	logger *zap.Logger,
) *Service {
	return &Service{
		wallets:     wallets,
		users:       users,
		gateway:     gateway,
		commissions: commissions,
		notifier:    notifier,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Deposit creates a HorsePay charge and a pending ledger row. The wallet is
// only credited when the webhook confirms payment.
func (s *Service) Deposit(ctx context.Context, principal *auth.Principal, amount decimal.Decimal) (*wallet.Transaction, string, error) {
	if amount.LessThan(minDeposit) {
		return nil, "", apperrors.BadRequestError(
			fmt.Errorf("deposit %s below minimum %s", amount, minDeposit),
			"Valor mínimo de depósito é R$ 1,00")
	}

	usr, err := s.users.GetUser(ctx, userstore.WithID(principal.UserID))
	if err != nil {
		return nil, "", apperrors.GeneralError(err)
	}

	order, err := s.gateway.CreateDepositOrder(ctx, usr.Username, amount, s.callbackURL)
	if err != nil {
		metrics.Payments.WithLabelValues("deposit", "gateway_error").Inc()
		return nil, "", apperrors.DependencyError(err, "Falha ao gerar cobrança PIX")
	}

	externalID := strconv.FormatInt(order.ExternalID, 10)
	tx := &wallet.Transaction{
		UserID:      principal.UserID,
		Type:        wallet.TxDeposit,
		Amount:      amount,
		Status:      wallet.StatusPending,
		Reference:   "deposit:" + uuid.NewString(),
		Description: "Depósito via PIX",
		ExternalID:  &externalID,
	}
	if err := s.wallets.InsertTransaction(ctx, nil, tx); err != nil {
		return nil, "", apperrors.GeneralError(err)
	}

	metrics.Payments.WithLabelValues("deposit", "created").Inc()
	return tx, order.CopyPast, nil
}

// Withdraw debits the wallet up front and records a pending withdrawal.
//
// Regular users' withdrawals go straight to HorsePay; a transfer failure
// reverts the debit. Affiliate and manager withdrawals stay pending until an
// admin approves them.
func (s *Service) Withdraw(ctx context.Context, principal *auth.Principal, amount decimal.Decimal, pixKey, pixType string) (*wallet.Transaction, error) {
	if amount.LessThan(minWithdraw) {
		return nil, apperrors.BadRequestError(
			fmt.Errorf("withdraw %s below minimum %s", amount, minWithdraw),
			"Valor mínimo de saque é R$ 10,00")
	}
	if pixKey == "" || !validPixType(pixType) {
		return nil, apperrors.BadRequestError(
			fmt.Errorf("invalid pix key %q type %q", pixKey, pixType),
			"Chave PIX inválida")
	}

	tx := &wallet.Transaction{
		UserID:      principal.UserID,
		Type:        wallet.TxWithdraw,
		Amount:      amount.Neg(),
		Status:      wallet.StatusPending,
		Reference:   "withdraw:" + uuid.NewString(),
		Description: "Saque via PIX",
		PixKey:      &pixKey,
		PixKeyType:  &pixType,
	}
	err := s.wallets.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
		w, err := s.wallets.LockWallet(ctx, dbTx, principal.UserID)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return apperrors.NotFoundError(err, "Carteira não encontrada")
			}
			return err
		}
		if w.Balance.LessThan(amount) {
			return apperrors.UnprocessableError(
				fmt.Errorf("balance %s below withdraw %s", w.Balance, amount),
				"Saldo insuficiente")
		}
		if _, err := s.wallets.ApplyDelta(ctx, dbTx, principal.UserID, amount.Neg()); err != nil {
			return err
		}
		return s.wallets.InsertTransaction(ctx, dbTx, tx)
	})
	if err != nil {
		return nil, serviceError(err)
	}

	if principal.Kind == user.KindAffiliate || principal.Kind == user.KindManager {
		// Held for manual approval; the admin surface releases or cancels.
		metrics.Payments.WithLabelValues("withdraw", "awaiting_approval").Inc()
		if s.notifier != nil {
			s.notifier.NotifyWithdrawRequest(ctx, principal.UserID, amount)
		}
		return tx, nil
	}

	if err := s.Dispatch(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Dispatch sends a pending withdrawal to HorsePay. On gateway failure the
// row is marked failed and the debited amount returned to the wallet.
func (s *Service) Dispatch(ctx context.Context, tx *wallet.Transaction) error {
	amount := tx.Amount.Abs()
	result, err := s.gateway.Withdraw(ctx, amount, deref(tx.PixKey), deref(tx.PixKeyType), s.callbackURL)
	if err != nil {
		s.logger.Error("horsepay withdraw failed, reverting",
			zap.Int64("transaction_id", tx.ID),
			zap.Error(err))
		metrics.Payments.WithLabelValues("withdraw", "gateway_error").Inc()
		if revertErr := s.revertWithdrawal(ctx, tx.ID); revertErr != nil {
			s.logger.Error("failed to revert withdrawal",
				zap.Int64("transaction_id", tx.ID),
				zap.Error(revertErr))
		}
		return apperrors.DependencyError(err, "Falha ao processar saque PIX")
	}

	externalID := strconv.FormatInt(result.ExternalID, 10)
	if err := s.wallets.SetTransactionExternalID(ctx, nil, tx.ID, externalID); err != nil {
		return apperrors.GeneralError(err)
	}
	tx.ExternalID = &externalID
	metrics.Payments.WithLabelValues("withdraw", "dispatched").Inc()
	return nil
}

// revertWithdrawal marks the row failed and returns the money. The pending
// withdrawal already reduced the effective balance, so the credit here is
// the status flip plus the wallet delta.
func (s *Service) revertWithdrawal(ctx context.Context, txID int64) error {
	return s.wallets.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
		tx, err := s.wallets.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.LockWallet(ctx, dbTx, tx.UserID); err != nil {
			return err
		}
		// The conditional update decides inside the transaction whether the
		// row is still open; a duplicate "failed" callback loses the race
		// here and must not refund a second time.
		flipped, err := s.wallets.TransitionStatus(ctx, dbTx, tx.ID, wallet.StatusFailed,
			wallet.StatusPending, wallet.StatusApproved)
		if err != nil || !flipped {
			return err
		}
		_, err = s.wallets.ApplyDelta(ctx, dbTx, tx.UserID, tx.Amount.Neg())
		return err
	})
}

// ConfirmDeposit settles a paid deposit: status flip, wallet credit and
// commission event in one transaction. Replayed confirmations are no-ops.
func (s *Service) ConfirmDeposit(ctx context.Context, externalID, endToEndID string) error {
	tx, err := s.wallets.GetTransactionByExternalID(ctx, wallet.TxDeposit, externalID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			return apperrors.NotFoundError(err, "Transação não encontrada")
		}
		return apperrors.GeneralError(err)
	}
	if tx.Status != wallet.StatusPending {
		return nil
	}

	var settled bool
	err = s.wallets.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
		if _, err := s.wallets.LockWallet(ctx, dbTx, tx.UserID); err != nil {
			return err
		}
		// Two concurrent deliveries of the same callback both pass the
		// pre-check above; the conditional update lets exactly one of them
		// credit the wallet.
		flipped, err := s.wallets.TransitionStatus(ctx, dbTx, tx.ID, wallet.StatusSuccess, wallet.StatusPending)
		if err != nil || !flipped {
			return err
		}
		settled = true
		if endToEndID != "" {
			if err := s.wallets.SetTransactionEndToEnd(ctx, dbTx, tx.ID, endToEndID); err != nil {
				return err
			}
		}
		if _, err := s.wallets.ApplyDelta(ctx, dbTx, tx.UserID, tx.Amount); err != nil {
			return err
		}
		if s.commissions != nil {
			return s.commissions.RecordDepositEvent(ctx, dbTx, tx.UserID, tx.Amount)
		}
		return nil
	})
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if !settled {
		return nil
	}

	metrics.Payments.WithLabelValues("deposit", "confirmed").Inc()
	if s.notifier != nil {
		s.notifier.NotifyDeposit(ctx, tx.UserID, tx.Amount)
	}
	return nil
}

// FailDeposit marks an unpaid or refused deposit failed. Nothing to revert;
// pending deposits never touched the balance.
func (s *Service) FailDeposit(ctx context.Context, externalID string) error {
	tx, err := s.wallets.GetTransactionByExternalID(ctx, wallet.TxDeposit, externalID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			return apperrors.NotFoundError(err, "Transação não encontrada")
		}
		return apperrors.GeneralError(err)
	}
	flipped, err := s.wallets.TransitionStatus(ctx, nil, tx.ID, wallet.StatusFailed, wallet.StatusPending)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if !flipped {
		return nil
	}
	metrics.Payments.WithLabelValues("deposit", "failed").Inc()
	return nil
}

// SettleWithdrawal finalizes a dispatched withdrawal from a webhook: paid
// marks it success, anything else reverts the debit.
func (s *Service) SettleWithdrawal(ctx context.Context, externalID, endToEndID string, paid bool) error {
	tx, err := s.wallets.GetTransactionByExternalID(ctx, wallet.TxWithdraw, externalID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			return apperrors.NotFoundError(err, "Transação não encontrada")
		}
		return apperrors.GeneralError(err)
	}
	if tx.Status != wallet.StatusPending && tx.Status != wallet.StatusApproved {
		return nil
	}

	if !paid {
		if err := s.revertWithdrawal(ctx, tx.ID); err != nil {
			return apperrors.GeneralError(err)
		}
		metrics.Payments.WithLabelValues("withdraw", "reverted").Inc()
		return nil
	}

	var settled bool
	err = s.wallets.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
		flipped, err := s.wallets.TransitionStatus(ctx, dbTx, tx.ID, wallet.StatusSuccess,
			wallet.StatusPending, wallet.StatusApproved)
		if err != nil || !flipped {
			return err
		}
		settled = true
		if endToEndID != "" {
			return s.wallets.SetTransactionEndToEnd(ctx, dbTx, tx.ID, endToEndID)
		}
		return nil
	})
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if settled {
		metrics.Payments.WithLabelValues("withdraw", "settled").Inc()
	}
	return nil
}

// History returns the user's ledger, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]*wallet.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	txs, err := s.wallets.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return txs, nil
}

func validPixType(t string) bool {
	switch t {
	case "cpf", "cnpj", "email", "phone", "random":
		return true
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func serviceError(err error) error {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return apperrors.GeneralError(err)
}
