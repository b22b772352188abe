package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository abstracts message persistence. Content passed in
// and out of this layer is always the sealed blob.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	UpdateContent(ctx context.Context, messageID int, sealed string) error
	Delete(ctx context.Context, messageID int) error
	MarkConversationRead(ctx context.Context, peerID, readerID int) (int64, error)
	ListPrivate(ctx context.Context, userID, otherID int) ([]models.Message, error)
	ListGroup(ctx context.Context, groupID int) ([]models.Message, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a message and returns it with the assigned id.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, group_id, content, timestamp, status)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		msg.SenderID, msg.ReceiverID, msg.GroupID, msg.Content, msg.Timestamp, msg.Status).
		Scan(&msg.ID)
	return msg, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, sender_id, receiver_id, group_id, content, timestamp, is_edited, status
         FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateContent replaces the sealed content and sets the edited flag.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, sealed string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content=$1, is_edited=TRUE WHERE id=$2`, sealed, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Delete removes a message permanently. No tombstone is kept.
func (r *MessageRepo) Delete(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkConversationRead bulk-advances every not-yet-read message from
// peerID to readerID and reports how many rows changed. Status never
// regresses because only rows below read are touched.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, peerID, readerID int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status=$1 WHERE sender_id=$2 AND receiver_id=$3 AND status != $1`,
		models.StatusRead, peerID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListPrivate returns the conversation between two users in timestamp order.
func (r *MessageRepo) ListPrivate(ctx context.Context, userID, otherID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, sender_id, receiver_id, group_id, content, timestamp, is_edited, status
         FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
         ORDER BY timestamp ASC`, userID, otherID)
	return msgs, err
}

// ListGroup returns group messages in timestamp order with the sender
// name joined in for display.
func (r *MessageRepo) ListGroup(ctx context.Context, groupID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT m.id, m.sender_id, m.receiver_id, m.group_id, m.content, m.timestamp, m.is_edited, m.status,
                u.username AS sender_name
         FROM messages m
         JOIN users u ON u.id = m.sender_id
         WHERE m.group_id=$1 ORDER BY m.timestamp ASC`, groupID)
	return msgs, err
}
