package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/frahmantamala/voucher-store/internal"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/core/events"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
)

// Reconciler folds gateway state, pushed by webhook or pulled by polling, into the payment row
// and raises payment.paid for transactions that are still in flight.
type Reconciler struct {
	payments     RepositoryAPI
	transactions TransactionRepository
	gateway      paymentgateway.API
	publisher    events.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewReconciler(payments RepositoryAPI, transactions TransactionRepository, gateway paymentgateway.API, publisher events.Publisher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		payments:     payments,
		transactions: transactions,
		gateway:      gateway,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

func (r *Reconciler) HandleWebhook(ctx context.Context, payload *WebhookPayload) (*ReconcileResult, error) {
	p, err := r.payments.FindByOrderID(ctx, payload.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		r.logger.Warn("callback for unknown order", "order_id", payload.OrderID, "status", payload.Status)
		return &ReconcileResult{Processed: false}, nil
	}

	status := paymentgateway.ParseStatus(payload.Status)
	return r.apply(ctx, p, status, paymentgateway.ParseTimestamp(payload.PaidAt), payload.Raw)
}

// Poll re-reads the order from the gateway on behalf of its owner or an admin.
func (r *Reconciler) Poll(ctx context.Context, orderID string, requester *internal.User) (*PollResponse, error) {
	p, err := r.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, internal.ErrPaymentNotFound
	}
	tx, err := r.transactions.FindByID(ctx, p.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx == nil || !requester.CanAccess(tx.UserID) {
		return nil, internal.ErrPaymentNotFound
	}

	remote, err := r.gateway.GetPaymentStatus(ctx, orderID)
	if err != nil {
		r.logger.Warn("payment status poll failed", "order_id", orderID, "error", err)
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeUpstream {
			return nil, appErr
		}
		return nil, internal.NewUpstreamError("Failed to check payment status", internal.ErrCodePaymentGateway, err)
	}

	if _, err := r.apply(ctx, p, remote.Status, remote.PaidAt, remote.Raw); err != nil {
		return nil, err
	}

	updated, err := r.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment: %w", err)
	}
	if updated == nil {
		updated = p
	}
	return &PollResponse{Payment: PaymentStatus{
		OrderID: updated.OrderID,
		Status:  updated.Status,
		Amount:  updated.Amount,
		PaidAt:  updated.PaidAt,
	}}, nil
}

// SweepPending polls payments still pending after olderThan and returns how many were reconciled.
func (r *Reconciler) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	pending, err := r.payments.ListPendingBefore(ctx, r.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending payments: %w", err)
	}

	reconciled := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return reconciled, ctx.Err()
		}
		remote, err := r.gateway.GetPaymentStatus(ctx, p.OrderID)
		if err != nil {
			r.logger.Warn("sweep poll failed", "order_id", p.OrderID, "error", err)
			continue
		}
		if _, err := r.apply(ctx, p, remote.Status, remote.PaidAt, remote.Raw); err != nil {
			r.logger.Error("sweep apply failed", "order_id", p.OrderID, "error", err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func (r *Reconciler) apply(ctx context.Context, p *paymentDatamodel.Payment, status paymentgateway.Status, paidAt *time.Time, raw map[string]interface{}) (*ReconcileResult, error) {
	updates := map[string]interface{}{
		"gateway_status": status.Raw,
	}

	newStatus := p.Status
	if local, ok := status.Local(); ok {
		if p.Status == paymentDatamodel.StatusPaid && local != paymentDatamodel.StatusPaid {
			// paid is final locally
			r.logger.Warn("ignoring status regression for paid order", "order_id", p.OrderID, "gateway_status", status.Raw)
		} else {
			newStatus = local
			updates["status"] = local
		}
	} else {
		r.logger.Warn("unrecognised gateway status", "order_id", p.OrderID, "gateway_status", status.Raw)
	}

	if status.Kind == paymentgateway.StatusPaid && newStatus == paymentDatamodel.StatusPaid {
		at := r.now()
		if paidAt != nil {
			at = *paidAt
		} else if p.PaidAt != nil {
			at = *p.PaidAt
		}
		updates["paid_at"] = at
	}

	if len(raw) > 0 {
		metadata, err := mergeMetadata(p.WebhookMetadata, raw)
		if err != nil {
			r.logger.Warn("failed to merge gateway metadata", "order_id", p.OrderID, "error", err)
		} else {
			updates["webhook_metadata"] = metadata
		}
	}

	if err := r.payments.Update(ctx, p.ID, updates); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	r.logger.Info("payment reconciled",
		"order_id", p.OrderID,
		"previous_status", p.Status,
		"status", newStatus,
		"gateway_status", status.Raw)

	result := &ReconcileResult{Processed: true, PaymentStatus: newStatus}
	if newStatus != paymentDatamodel.StatusPaid {
		return result, nil
	}

	tx, err := r.transactions.FindByID(ctx, p.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx == nil || !transactionDatamodel.IsInFlight(tx.Status) {
		return result, nil
	}

	result.FulfillmentTriggered = true
	if r.publisher == nil {
		return result, nil
	}
	event := events.NewPaymentPaidEvent(tx.ID, tx.TransactionID, p.OrderID, p.Amount)
	if err := r.publisher.PublishSync(ctx, event); err != nil {
		r.logger.Error("fulfillment trigger failed", "transaction_id", tx.TransactionID, "error", err)
		result.FulfillmentError = err.Error()
	}
	return result, nil
}

func mergeMetadata(existing datatypes.JSON, raw map[string]interface{}) (datatypes.JSON, error) {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			merged = map[string]interface{}{}
		}
	}
	for k, v := range raw {
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
