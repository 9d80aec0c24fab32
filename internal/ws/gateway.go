package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"serveease-chat/internal/auth"
	"serveease-chat/internal/chat"
	"serveease-chat/internal/models"
	"serveease-chat/internal/observability"
	"serveease-chat/internal/repositories"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway admits realtime connections and relays their events through the
// chat service. Authorization is re-checked per event, never carried over
// from a previous join.
type Gateway struct {
	hub      *Hub
	svc      *chat.Service
	users    repositories.UserRepository
	verifier *auth.Verifier
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, svc *chat.Service, users repositories.UserRepository, verifier *auth.Verifier) *Gateway {
	return &Gateway{hub: hub, svc: svc, users: users, verifier: verifier}
}

// Handle authenticates the handshake, upgrades the connection and runs its
// event loop. Admission failures reject before any event handler runs.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("serveease-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing authorization token"})
		return
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		message := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			message = "token expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
		return
	}

	user, err := g.users.GetUser(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unknown or inactive account"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := newConn(wsConn, user)
	g.hub.Register(conn)
	observability.IncWSActive()
	observability.IncWSEvent("connect")
	log.Printf("ws: user %d connected from %s", user.ID, observability.IPFromRequest(c.Request))

	g.hub.ToAllExcept(conn, models.ServerEvent{
		Type: models.EventUserOnline,
		Data: models.PresenceEvent{UserID: user.ID, Name: user.Name},
	})

	go conn.writePump()
	g.readLoop(ctx, conn)

	g.hub.Unregister(conn)
	if err := g.svc.ClearTyping(ctx, conn.UserID, conn.UserName); err != nil {
		log.Printf("ws: clear typing for user %d: %v", conn.UserID, err)
	}
	g.hub.ToAllExcept(conn, models.ServerEvent{
		Type: models.EventUserOffline,
		Data: models.PresenceEvent{UserID: user.ID, Name: user.Name},
	})
	conn.close()
	observability.DecWSActive()
	observability.IncWSEvent("disconnect")
}

func (g *Gateway) readLoop(ctx context.Context, conn *Conn) {
	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ws: read from user %d: %v", conn.UserID, err)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			g.sendError(conn, "malformed event")
			continue
		}
		g.dispatch(ctx, conn, event)
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *Conn, event models.ClientEvent) {
	observability.IncWSEvent(event.Type)

	switch event.Type {
	case models.EventJoinConversation:
		var payload models.ConversationPayload
		if !g.decode(conn, event.Data, &payload) {
			return
		}
		g.handleJoin(ctx, conn, payload.ConversationID)

	case models.EventLeaveConversation:
		var payload models.ConversationPayload
		if !g.decode(conn, event.Data, &payload) {
			return
		}
		g.hub.LeaveRoom(payload.ConversationID, conn)

	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if !g.decode(conn, event.Data, &payload) {
			return
		}
		g.handleSend(ctx, conn, payload)

	case models.EventTypingStart, models.EventTypingStop:
		var payload models.ConversationPayload
		if !g.decode(conn, event.Data, &payload) {
			return
		}
		isTyping := event.Type == models.EventTypingStart
		if err := g.svc.SetTyping(ctx, conn.UserID, conn.UserName, payload.ConversationID, isTyping); err != nil {
			g.replyError(conn, err)
		}

	case models.EventMarkMessagesRead:
		var payload models.MarkReadPayload
		if !g.decode(conn, event.Data, &payload) {
			return
		}
		if _, err := g.svc.MarkRead(ctx, conn.UserID, payload.ConversationID, payload.MessageIDs); err != nil {
			g.replyError(conn, err)
		}

	default:
		g.sendError(conn, "unknown event type")
	}
}

// handleJoin re-verifies participancy, joins the room, then clears the
// caller's backlog in one bulk mark-read that announces itself to the room.
func (g *Gateway) handleJoin(ctx context.Context, conn *Conn, conversationID int) {
	if err := g.svc.AuthorizeParticipant(ctx, conversationID, conn.UserID); err != nil {
		g.replyError(conn, err)
		return
	}
	g.hub.JoinRoom(conversationID, conn)
	if _, err := g.svc.MarkRead(ctx, conn.UserID, conversationID, nil); err != nil {
		g.replyError(conn, err)
	}
}

func (g *Gateway) handleSend(ctx context.Context, conn *Conn, payload models.SendMessagePayload) {
	_, err := g.svc.SendMessage(ctx, conn.UserID, payload.ConversationID, chat.SendMessageInput{
		Content:          payload.Content,
		MessageType:      payload.MessageType,
		FileURL:          payload.FileURL,
		FileName:         payload.FileName,
		FileSize:         payload.FileSize,
		ReplyToMessageID: payload.ReplyToMessageID,
	})
	if err != nil {
		g.replyError(conn, err)
		return
	}
	observability.IncMessageSent("ws")
}

func (g *Gateway) decode(conn *Conn, data json.RawMessage, out any) bool {
	if len(data) == 0 {
		g.sendError(conn, "missing event payload")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		g.sendError(conn, "malformed event payload")
		return false
	}
	return true
}

// replyError maps a service error to an error event for the requester only.
// Infrastructure failures surface as a generic message; details stay in logs.
func (g *Gateway) replyError(conn *Conn, err error) {
	switch {
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrInvalidMessageType),
		errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrMessageNotFound):
		g.sendError(conn, err.Error())
	default:
		log.Printf("ws: event from user %d failed: %v", conn.UserID, err)
		g.sendError(conn, "internal error")
	}
}

func (g *Gateway) sendError(conn *Conn, message string) {
	conn.Enqueue(models.ServerEvent{Type: models.EventError, Data: models.ErrorEvent{Message: message}})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
