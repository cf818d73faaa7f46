package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/frahmantamala/voucher-store/internal"
)

const (
	TypeFulfillTransaction = "fulfillment:transaction"
	QueueCritical          = "critical"
)

type TaskPayload struct {
	TransactionID int64 `json:"transaction_id"`
}

func TaskID(transactionID int64) string {
	return fmt.Sprintf("fulfill-%d", transactionID)
}

func NewFulfillTask(transactionID int64) (*asynq.Task, error) {
	data, err := json.Marshal(TaskPayload{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFulfillTransaction, data), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher enqueues fulfillment on asynq. The task id is derived from the transaction so
// duplicate triggers collapse into one task.
type QueueDispatcher struct {
	client   Enqueuer
	maxRetry int
	logger   *slog.Logger
}

func NewQueueDispatcher(client Enqueuer, maxRetry int, logger *slog.Logger) *QueueDispatcher {
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &QueueDispatcher{client: client, maxRetry: maxRetry, logger: logger}
}

func (d *QueueDispatcher) Trigger(ctx context.Context, transactionID int64) error {
	task, err := NewFulfillTask(transactionID)
	if err != nil {
		return fmt.Errorf("build fulfillment task: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.TaskID(TaskID(transactionID)),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(d.maxRetry),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			d.logger.Info("fulfillment task already queued", "transaction_id", transactionID)
			return nil
		}
		return fmt.Errorf("enqueue fulfillment task: %w", err)
	}

	d.logger.Info("fulfillment task enqueued", "transaction_id", transactionID, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// TaskHandler consumes fulfillment tasks in the worker process.
type TaskHandler struct {
	fulfiller Fulfiller
	logger    *slog.Logger
}

func NewTaskHandler(fulfiller Fulfiller, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{fulfiller: fulfiller, logger: logger}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.TransactionID <= 0 {
		return fmt.Errorf("invalid transaction id %d: %w", payload.TransactionID, asynq.SkipRetry)
	}

	res, err := h.fulfiller.Fulfill(ctx, payload.TransactionID)
	if err != nil {
		if errors.Is(err, internal.ErrTransactionNotFound) || errors.Is(err, internal.ErrVoucherNotFound) {
			return fmt.Errorf("fulfill transaction %d: %v: %w", payload.TransactionID, err, asynq.SkipRetry)
		}
		// the transaction is already marked failed; retrying would only hit the claimed attempt
		if res != nil && res.Outcome == OutcomeFailed {
			h.logger.Warn("fulfillment task failed", "transaction_id", payload.TransactionID, "error", err)
			return fmt.Errorf("fulfill transaction %d: %v: %w", payload.TransactionID, err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("fulfillment task processed",
		"transaction_id", payload.TransactionID,
		"outcome", res.Outcome,
		"status", res.Status)
	return nil
}

// NewServeMux routes fulfillment tasks to h.
func NewServeMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeFulfillTransaction, h)
	return mux
}
