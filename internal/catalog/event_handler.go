package catalog

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/voucher-store/internal/core/events"
)

type EventHandler struct {
	cache  Cache
	logger *slog.Logger
}

func NewEventHandler(cache Cache, logger *slog.Logger) *EventHandler {
	if cache == nil {
		cache = noopCache{}
	}
	return &EventHandler{cache: cache, logger: logger}
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeCatalogChanged, h.HandleCatalogChanged)
}

func (h *EventHandler) HandleCatalogChanged(ctx context.Context, event events.Event) error {
	h.logger.Info("handling catalog changed event", "event_id", event.EventID())
	return h.cache.Invalidate(ctx)
}
