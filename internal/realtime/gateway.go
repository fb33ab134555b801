package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/observability"
)

// AppendFunc persists an inbound chat frame through the ticket service. The
// service handles authorization, validation, persistence and the follow-up
// broadcast; the gateway only hands the frame over.
type AppendFunc func(ctx context.Context, senderID string, role domain.Role, ticketID, content string, attachments []ChatAttachment) error

// Gateway owns the websocket protocol: it reads client frames, drives the
// room router, and routes chat sends into the persisted append path.
type Gateway struct {
	router     *Router
	appendMsg  AppendFunc
	logger     *zap.Logger
	metrics    *observability.Metrics
	sendBuffer int
}

// NewGateway constructs the gateway.
func NewGateway(router *Router, appendMsg AppendFunc, logger *zap.Logger, metrics *observability.Metrics, sendBuffer int) *Gateway {
	return &Gateway{
		router:     router,
		appendMsg:  appendMsg,
		logger:     logger,
		metrics:    metrics,
		sendBuffer: sendBuffer,
	}
}

// HandleConn services one websocket connection until it closes. Identity is
// taken from the authenticated upgrade request, never from frames. Disconnect,
// clean or not, triggers a full LeaveAll.
func (g *Gateway) HandleConn(conn Conn, userID string, role domain.Role) {
	client := NewClient(conn, g.sendBuffer)
	if g.metrics != nil {
		g.metrics.SocketConnections.Inc()
	}
	go client.WriteLoop()

	defer func() {
		g.router.LeaveAll(client)
		client.Close()
		if g.metrics != nil {
			g.metrics.SocketConnections.Dec()
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.logger.Debug("unreadable frame", zap.String("user_id", userID), zap.Error(err))
			continue
		}

		switch frame.Event {
		case EventJoinTicket:
			g.handleJoin(client, frame.Data, userID, role)
		case EventLeaveTicket:
			// Leaving one ticket view exits everything; per-room leave is
			// deliberately not offered.
			g.router.LeaveAll(client)
		case EventChatMessage:
			g.handleChat(frame.Data, userID, role)
		case EventReceivedConfirm:
			g.logger.Debug("client confirmed delivery",
				zap.String("user_id", userID), zap.ByteString("data", frame.Data))
		default:
			g.logger.Debug("unknown frame event",
				zap.String("event", frame.Event), zap.String("user_id", userID))
		}
	}
}

func (g *Gateway) handleJoin(client *Client, data json.RawMessage, userID string, role domain.Role) {
	var join JoinTicketData
	if err := json.Unmarshal(data, &join); err != nil || join.TicketID == "" {
		g.logger.Debug("malformed join-ticket frame", zap.String("user_id", userID))
		return
	}

	g.router.JoinTicketRoom(client, join.TicketID, userID, role)
	g.logger.Info("joined ticket room",
		zap.String("user_id", userID), zap.String("ticket_id", join.TicketID))

	ack, err := json.Marshal(JoinedTicketData{TicketID: join.TicketID, Success: true})
	if err != nil {
		return
	}
	client.Receive(Envelope{Event: EventJoinedTicket, Data: ack})
}

func (g *Gateway) handleChat(data json.RawMessage, userID string, role domain.Role) {
	var chat ChatMessageData
	if err := json.Unmarshal(data, &chat); err != nil || chat.TicketID == "" {
		g.logger.Debug("malformed chat-message frame", zap.String("user_id", userID))
		return
	}

	// All chat sends persist first; the broadcast fires after the write
	// commits, same as the HTTP path.
	if err := g.appendMsg(context.Background(), userID, role, chat.TicketID, chat.Content, chat.Attachments); err != nil {
		g.logger.Warn("chat frame rejected",
			zap.String("user_id", userID),
			zap.String("ticket_id", chat.TicketID),
			zap.Error(err))
	}
}
