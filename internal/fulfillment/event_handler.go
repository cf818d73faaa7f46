package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/voucher-store/internal/core/events"
)

type EventHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewEventHandler(dispatcher Dispatcher, logger *slog.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, logger: logger}
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentPaid, h.HandlePaymentPaid)
}

func (h *EventHandler) HandlePaymentPaid(ctx context.Context, event events.Event) error {
	transactionID, ok := events.TransactionIDFrom(event)
	if !ok {
		return fmt.Errorf("payment paid event %s has no transaction id", event.EventID())
	}

	h.logger.Info("handling payment paid event",
		"event_id", event.EventID(),
		"transaction_id", transactionID)

	return h.dispatcher.Trigger(ctx, transactionID)
}
