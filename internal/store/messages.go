// internal/store/messages.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"smartlocker-workers/internal/models"
)

// Messages persists outbound WhatsApp messages.
type Messages struct {
	db *sql.DB
}

func NewMessages(db *sql.DB) *Messages {
	return &Messages{db: db}
}

func (s *Messages) Create(ctx context.Context, msg *models.OutboundMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbound_messages
			(id, session_id, recipient, kind, body, requires_response, response_options, status, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		msg.ID, msg.SessionID, msg.Recipient, msg.Kind, msg.Body,
		msg.RequiresResponse, pq.Array(msg.ResponseOptions), msg.Status,
		nullIfEmpty(msg.BookingID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Messages) Get(ctx context.Context, id string) (*models.OutboundMessage, error) {
	row := s.db.QueryRowContext(ctx, selectMessage+` WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return msg, nil
}

// PendingApprovals returns sent approval prompts still waiting for a reply.
func (s *Messages) PendingApprovals(ctx context.Context) ([]*models.OutboundMessage, error) {
	rows, err := s.db.QueryContext(ctx, selectMessage+`
		WHERE kind = $1
		  AND requires_response
		  AND status = $2
		  AND (received_response IS NULL OR received_response = '')
		ORDER BY sent_at ASC`,
		models.MessageKindApproval, models.MessageStatusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	var messages []*models.OutboundMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Messages) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $2, sent_at = $3
		WHERE id = $1`,
		id, models.MessageStatusSent, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}
	return nil
}

func (s *Messages) MarkFailed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $2
		WHERE id = $1`,
		id, models.MessageStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}

// RecordResponse is first-write-wins: the conditional update only lands when
// no response has been recorded yet.
func (s *Messages) RecordResponse(ctx context.Context, id, response string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET received_response = $2, response_at = $3
		WHERE id = $1 AND (received_response IS NULL OR received_response = '')`,
		id, response, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireApproval marks a still-unanswered approval prompt as expired. A
// prompt that already received a reply is left untouched.
func (s *Messages) ExpireApproval(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $2
		WHERE id = $1
		  AND status = $3
		  AND (received_response IS NULL OR received_response = '')`,
		id, models.MessageStatusExpired, models.MessageStatusSent,
	)
	if err != nil {
		return fmt.Errorf("failed to expire approval message: %w", err)
	}
	return nil
}

const selectMessage = `
	SELECT id, session_id, recipient, kind, body, requires_response, response_options,
	       status, received_response, response_at, booking_id, sent_at, created_at
	FROM outbound_messages`

func scanMessage(row rowScanner) (*models.OutboundMessage, error) {
	var msg models.OutboundMessage
	var receivedResponse, bookingID sql.NullString
	var responseAt, sentAt sql.NullTime

	err := row.Scan(
		&msg.ID, &msg.SessionID, &msg.Recipient, &msg.Kind, &msg.Body,
		&msg.RequiresResponse, pq.Array(&msg.ResponseOptions),
		&msg.Status, &receivedResponse, &responseAt, &bookingID, &sentAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.ReceivedResponse = receivedResponse.String
	msg.BookingID = bookingID.String
	if responseAt.Valid {
		msg.ResponseAt = &responseAt.Time
	}
	if sentAt.Valid {
		msg.SentAt = &sentAt.Time
	}
	return &msg, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
