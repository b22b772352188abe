package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"messenger-service/internal/crypt"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

var (
	// ErrEmptyContent rejects blank message bodies before persistence.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrInvalidTarget rejects sends that name neither or both of a
	// receiver and a group.
	ErrInvalidTarget = errors.New("exactly one of receiver or group must be set")
	// ErrForbidden rejects edit/delete by anyone but the sender.
	ErrForbidden = errors.New("only the sender may modify a message")
)

// SendIntent is an outbound-message request from a client.
type SendIntent struct {
	ReceiverID int
	GroupID    int
	Content    string
	Timestamp  time.Time
}

// Router is the delivery state machine: it seals and persists each
// intent, then fans the result out to the live connections it resolves.
// Persistence is the durability boundary; fan-out is best effort and an
// unreachable target is never an error.
type Router struct {
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	users    repositories.UserRepository
	codec    *crypt.Codec
	hub      *Hub
	log      *logrus.Logger
}

// NewRouter constructs a Router.
func NewRouter(messages repositories.MessageRepository, groups repositories.GroupRepository, users repositories.UserRepository, codec *crypt.Codec, hub *Hub, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.New()
	}
	return &Router{messages: messages, groups: groups, users: users, codec: codec, hub: hub, log: log}
}

// Send validates, seals and persists a message, then pushes it to the
// resolved targets: the group room, or both ends of a private pair (the
// sender's other devices stay in sync that way). For private messages
// the stored status is delivered when the receiver is online at the
// time of the check; a receiver connecting right after simply sees the
// message as sent until their next history fetch.
func (r *Router) Send(ctx context.Context, senderID int, intent SendIntent) (models.Message, error) {
	if strings.TrimSpace(intent.Content) == "" {
		return models.Message{}, ErrEmptyContent
	}
	if (intent.ReceiverID == 0) == (intent.GroupID == 0) {
		return models.Message{}, ErrInvalidTarget
	}

	sealed, err := r.codec.Seal(intent.Content)
	if err != nil {
		return models.Message{}, fmt.Errorf("seal content: %w", err)
	}

	ts := intent.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	msg := models.Message{
		SenderID:  senderID,
		Content:   sealed,
		Timestamp: ts,
		Status:    models.StatusSent,
	}
	if intent.GroupID != 0 {
		groupID := intent.GroupID
		msg.GroupID = &groupID
	} else {
		receiverID := intent.ReceiverID
		msg.ReceiverID = &receiverID
		if r.hub.IsOnline(receiverID) {
			msg.Status = models.StatusDelivered
		}
	}

	persisted, err := r.messages.Create(ctx, msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("persist message: %w", err)
	}

	persisted.Content = intent.Content
	persisted.SenderName = r.senderName(ctx, senderID)

	observability.IncWSEvent(models.EventReceiveMessage)
	r.fanOut(persisted, models.ServerEvent{Type: models.EventReceiveMessage, Message: &persisted})
	return persisted, nil
}

// Edit re-seals the new content and marks the message edited, then
// notifies the same targets a send would reach.
func (r *Router) Edit(ctx context.Context, editorID, messageID int, newContent string) error {
	if strings.TrimSpace(newContent) == "" {
		return ErrEmptyContent
	}

	msg, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != editorID {
		return ErrForbidden
	}

	sealed, err := r.codec.Seal(newContent)
	if err != nil {
		return fmt.Errorf("seal content: %w", err)
	}
	if err := r.messages.UpdateContent(ctx, messageID, sealed); err != nil {
		return err
	}

	observability.IncWSEvent(models.EventMessageUpdated)
	r.fanOut(msg, models.ServerEvent{Type: models.EventMessageUpdated, MessageID: messageID, Content: newContent})
	return nil
}

// Delete removes a message permanently and tells the same targets to
// drop it from their views.
func (r *Router) Delete(ctx context.Context, deleterID, messageID int) error {
	msg, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != deleterID {
		return ErrForbidden
	}

	if err := r.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	observability.IncWSEvent(models.EventMessageDeleted)
	r.fanOut(msg, models.ServerEvent{Type: models.EventMessageDeleted, MessageID: messageID})
	return nil
}

// MarkRead advances every unread message from peerID to readerID to
// read in one bulk update. The peer is notified once per conversation,
// not per message, and only when something actually changed.
func (r *Router) MarkRead(ctx context.Context, readerID, peerID int) error {
	changed, err := r.messages.MarkConversationRead(ctx, peerID, readerID)
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	if changed == 0 {
		return nil
	}

	observability.IncWSEvent(models.EventMessagesRead)
	r.hub.SendToUser(peerID, models.ServerEvent{Type: models.EventMessagesRead, ReaderID: readerID})
	return nil
}

// NotifyGroupCreated tells every online member about a new group and
// subscribes their live connections to the room immediately, closing
// the gap between creation and first delivery.
func (r *Router) NotifyGroupCreated(group models.Group, memberIDs []int) {
	event := models.ServerEvent{Type: models.EventGroupCreated, GroupID: group.ID, GroupName: group.Name}
	for _, userID := range memberIDs {
		if !r.hub.IsOnline(userID) {
			continue
		}
		r.hub.SubscribeUser(group.ID, userID)
		r.hub.SendToUser(userID, event)
	}
	observability.IncWSEvent(models.EventGroupCreated)
}

// NotifyGroupLeft drops the user's live connections from the room after
// a membership row was removed elsewhere.
func (r *Router) NotifyGroupLeft(groupID, userID int) {
	r.hub.UnsubscribeUser(groupID, userID)
}

func (r *Router) fanOut(msg models.Message, event models.ServerEvent) {
	if msg.IsGroup() {
		r.hub.BroadcastToRoom(*msg.GroupID, event)
		return
	}
	if msg.ReceiverID != nil {
		r.hub.SendToUser(*msg.ReceiverID, event)
	}
	r.hub.SendToUser(msg.SenderID, event)
}

func (r *Router) senderName(ctx context.Context, senderID int) string {
	user, err := r.users.GetByID(ctx, senderID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", senderID).Warn("resolve sender name")
		return ""
	}
	return user.Username
}
