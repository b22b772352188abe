package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

// TokenVerifier authenticates the token presented at connect time.
type TokenVerifier interface {
	Verify(token string) (int, error)
}

// SessionHandler upgrades websocket connections and runs their
// lifecycle: verify identity, register presence, subscribe the session
// to its group rooms, dispatch inbound intents, tear down on close.
type SessionHandler struct {
	hub    *Hub
	router *Router
	groups repositories.GroupRepository
	tokens TokenVerifier
	log    *logrus.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(hub *Hub, router *Router, groups repositories.GroupRepository, tokens TokenVerifier, log *logrus.Logger) *SessionHandler {
	if log == nil {
		log = logrus.New()
	}
	return &SessionHandler{hub: hub, router: router, groups: groups, tokens: tokens, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and brings the session to Active.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := h.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(userID, conn)
	h.hub.Register(client)
	observability.IncWSEvent("connect")

	// Subscribe to the rooms of every current membership. Later
	// membership changes reach the session through explicit
	// join_group/leave_group pushes, not through reconnects.
	groupIDs, err := h.groups.GroupIDsForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("load group rooms")
	}
	for _, groupID := range groupIDs {
		h.hub.JoinRoom(groupID, client)
	}

	h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"conn_id": client.ID,
		"rooms":   len(groupIDs),
	}).Info("session active")

	go client.WritePump()
	go h.readLoop(client)
}

func (h *SessionHandler) readLoop(client *Client) {
	defer func() {
		h.hub.Drop(client)
		observability.IncWSEvent("disconnect")
		h.log.WithFields(logrus.Fields{
			"user_id": client.UserID,
			"conn_id": client.ID,
		}).Info("session closed")
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var event models.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.log.WithError(err).WithField("user_id", client.UserID).Warn("malformed client event")
			continue
		}
		h.dispatch(context.Background(), client, event)
	}
}

func (h *SessionHandler) dispatch(ctx context.Context, client *Client, event models.ClientEvent) {
	var err error
	switch event.Type {
	case models.IntentSendMessage:
		_, err = h.router.Send(ctx, client.UserID, SendIntent{
			ReceiverID: event.ReceiverID,
			GroupID:    event.GroupID,
			Content:    event.Content,
			Timestamp:  event.Timestamp,
		})
	case models.IntentMarkRead:
		err = h.router.MarkRead(ctx, client.UserID, event.SenderID)
	case models.IntentEditMessage:
		err = h.router.Edit(ctx, client.UserID, event.MessageID, event.Content)
	case models.IntentDeleteMessage:
		err = h.router.Delete(ctx, client.UserID, event.MessageID)
	case models.IntentJoinGroup:
		var member bool
		member, err = h.groups.IsMember(ctx, event.GroupID, client.UserID)
		if err == nil && member {
			h.hub.JoinRoom(event.GroupID, client)
		}
	case models.IntentLeaveGroup:
		h.hub.LeaveRoom(event.GroupID, client)
	default:
		h.log.WithField("type", event.Type).Warn("unknown client event")
		return
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id": client.UserID,
			"intent":  event.Type,
		}).Warn("intent rejected")
	}
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
