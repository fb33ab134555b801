package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/events"
)

// RegisterRelay subscribes the hub to ticket events so that a committed
// message append fans out to the ticket's room. Broadcast failures are logged
// and swallowed: the write already succeeded and the next page load recovers
// the full history from the store.
func RegisterRelay(dispatcher events.Dispatcher, hub *Hub, logger *zap.Logger) {
	dispatcher.Subscribe(events.EventTicketMessageAdded, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.MessageAddedPayload)
		if !ok {
			logger.Error("unexpected payload for message event", zap.String("ticket_id", event.TicketID))
			return nil
		}
		if err := hub.Broadcast(TicketRoom(event.TicketID), EventChatMessage, payload); err != nil {
			logger.Warn("chat broadcast failed",
				zap.String("ticket_id", event.TicketID), zap.Error(err))
		}
		return nil
	})
}
