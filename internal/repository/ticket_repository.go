package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-boutique/support-service/internal/domain"
)

// TicketFilter captures dashboard and listing parameters.
type TicketFilter struct {
	OwnerID         *string
	AssigneeID      *string
	Kinds           []domain.TicketKind
	Statuses        []domain.TicketStatus
	ReplyStatuses   []domain.ReplyStatus
	IncludeArchived bool
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. The ticket is an aggregate:
// GetByID always returns the full message history in one fetch keyed by ticket
// id, and messages are only ever written through their parent ticket.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, seed *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	AppendMessage(ctx context.Context, ticketID string, msg *domain.Message, replyStatus domain.ReplyStatus) error
	GetMessage(ctx context.Context, ticketID, messageID string) (*domain.Message, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	AssignStaff(ctx context.Context, ticketID, staffID string) error
	SetArchived(ctx context.Context, ticketID string, archived bool) error
	Delete(ctx context.Context, ticketID string) ([]string, error)
	RemoveAttachment(ctx context.Context, ticketID, messageID, attachmentID string) (string, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, seed *domain.Message) error {
	measurements, err := marshalOpt(ticket.Measurements)
	if err != nil {
		return err
	}
	preferences, err := marshalOpt(ticket.Preferences)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (owner_user_id, title, kind, order_id, status, reply_status, priority, measurements, preferences)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.OwnerID,
		ticket.Title,
		ticket.Kind,
		ticket.OrderID,
		ticket.Status,
		ticket.ReplyStatus,
		ticket.Priority,
		measurements,
		preferences,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	seed.TicketID = ticket.ID
	if err := insertMessageTx(ctx, tx, seed); err != nil {
		return err
	}

	const touch = `UPDATE tickets SET last_message_at=$1 WHERE id=$2`
	if _, err := tx.Exec(ctx, touch, seed.CreatedAt, ticket.ID); err != nil {
		return err
	}
	ticket.LastMessageAt = seed.CreatedAt
	ticket.Messages = []domain.Message{*seed}

	return tx.Commit(ctx)
}

// AppendMessage inserts the message and updates the ticket's derived fields in
// a single transaction. Concurrent appends serialize on the ticket row, so the
// last commit owns reply_status and last_message_at, which by construction
// match the newest message.
func (r *ticketRepository) AppendMessage(ctx context.Context, ticketID string, msg *domain.Message, replyStatus domain.ReplyStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	msg.TicketID = ticketID
	if err := insertMessageTx(ctx, tx, msg); err != nil {
		return err
	}

	const update = `
        UPDATE tickets
        SET reply_status=$1, last_message_at=$2, version=version+1, updated_at=NOW()
        WHERE id=$3`
	cmd, err := tx.Exec(ctx, update, replyStatus, msg.CreatedAt, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

func insertMessageTx(ctx context.Context, tx pgx.Tx, msg *domain.Message) error {
	const insertMessage = `
        INSERT INTO ticket_messages (ticket_id, sender_user_id, content, is_read)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertMessage,
		msg.TicketID,
		msg.SenderID,
		msg.Content,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.MessageID = msg.ID
		const insertAttachment = `
            INSERT INTO message_attachments (message_id, url, kind)
            VALUES ($1,$2,$3)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertAttachment, att.MessageID, att.URL, att.Kind).
			Scan(&att.ID, &att.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, owner_user_id, title, kind, order_id, status, reply_status, priority,
               assigned_staff_id, measurements, preferences, is_archived, last_message_at,
               version, created_at, updated_at
        FROM tickets WHERE id=$1`

	var (
		ticket       domain.Ticket
		measurements []byte
		preferences  []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Title,
		&ticket.Kind,
		&ticket.OrderID,
		&ticket.Status,
		&ticket.ReplyStatus,
		&ticket.Priority,
		&ticket.AssignedTo,
		&measurements,
		&preferences,
		&ticket.Archived,
		&ticket.LastMessageAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalOpt(measurements, &ticket.Measurements); err != nil {
		return nil, err
	}
	if err := unmarshalOpt(preferences, &ticket.Preferences); err != nil {
		return nil, err
	}

	messages, err := r.messagesForTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Messages = messages
	return &ticket, nil
}

func (r *ticketRepository) messagesForTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const msgQuery = `
        SELECT id, ticket_id, sender_user_id, content, is_read, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, msgQuery, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	index := map[string]int{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.SenderID, &msg.Content, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		index[msg.ID] = len(messages)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const attQuery = `
        SELECT a.id, a.message_id, a.url, a.kind, a.created_at
        FROM message_attachments a
        JOIN ticket_messages m ON m.id = a.message_id
        WHERE m.ticket_id=$1 ORDER BY a.created_at ASC`
	attRows, err := r.pool.Query(ctx, attQuery, ticketID)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()

	for attRows.Next() {
		var att domain.Attachment
		if err := attRows.Scan(&att.ID, &att.MessageID, &att.URL, &att.Kind, &att.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[att.MessageID]; ok {
			messages[i].Attachments = append(messages[i].Attachments, att)
		}
	}
	return messages, attRows.Err()
}

func (r *ticketRepository) GetMessage(ctx context.Context, ticketID, messageID string) (*domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_user_id, content, is_read, created_at
        FROM ticket_messages WHERE id=$1 AND ticket_id=$2`
	var msg domain.Message
	if err := r.pool.QueryRow(ctx, query, messageID, ticketID).Scan(
		&msg.ID, &msg.TicketID, &msg.SenderID, &msg.Content, &msg.IsRead, &msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	const attQuery = `
        SELECT id, message_id, url, kind, created_at
        FROM message_attachments WHERE message_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, attQuery, msg.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.ID, &att.MessageID, &att.URL, &att.Kind, &att.CreatedAt); err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	return &msg, rows.Err()
}

// ListWithFilter returns ticket summaries without message history. Dashboard
// ordering puts tickets waiting on support first, most recently active on top.
func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, owner_user_id, title, kind, order_id, status, reply_status, priority,
                    assigned_staff_id, is_archived, last_message_at, version, created_at, updated_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_user_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_staff_id=$%d", len(args)))
	}
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, len(filter.Kinds))
		for i, kind := range filter.Kinds {
			args = append(args, kind)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ReplyStatuses) > 0 {
		placeholders := make([]string, len(filter.ReplyStatuses))
		for i, rs := range filter.ReplyStatuses {
			args = append(args, rs)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("reply_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if !filter.IncludeArchived {
		clauses = append(clauses, "is_archived = FALSE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s
        ORDER BY (reply_status = 'waiting_support') DESC, last_message_at DESC
        LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.Title,
			&ticket.Kind,
			&ticket.OrderID,
			&ticket.Status,
			&ticket.ReplyStatus,
			&ticket.Priority,
			&ticket.AssignedTo,
			&ticket.Archived,
			&ticket.LastMessageAt,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.pool, query, status, ticketID)
}

func (r *ticketRepository) AssignStaff(ctx context.Context, ticketID, staffID string) error {
	const query = `UPDATE tickets SET assigned_staff_id=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.pool, query, staffID, ticketID)
}

func (r *ticketRepository) SetArchived(ctx context.Context, ticketID string, archived bool) error {
	const query = `UPDATE tickets SET is_archived=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.pool, query, archived, ticketID)
}

// Delete removes the aggregate and returns the attachment URLs that referenced
// stored files, so the caller can purge them.
func (r *ticketRepository) Delete(ctx context.Context, ticketID string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const urlQuery = `
        SELECT a.url FROM message_attachments a
        JOIN ticket_messages m ON m.id = a.message_id
        WHERE m.ticket_id=$1`
	rows, err := tx.Query(ctx, urlQuery, ticketID)
	if err != nil {
		return nil, err
	}
	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			rows.Close()
			return nil, err
		}
		urls = append(urls, url)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, ticketID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return urls, nil
}

func (r *ticketRepository) RemoveAttachment(ctx context.Context, ticketID, messageID, attachmentID string) (string, error) {
	const query = `
        DELETE FROM message_attachments a
        USING ticket_messages m
        WHERE a.id=$1 AND a.message_id=$2 AND m.id=a.message_id AND m.ticket_id=$3
        RETURNING a.url`
	var url string
	if err := r.pool.QueryRow(ctx, query, attachmentID, messageID, ticketID).Scan(&url); err != nil {
		return "", err
	}
	return url, nil
}

func execOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func marshalOpt(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case *domain.Measurements:
		if typed == nil {
			return nil, nil
		}
	case *domain.Preferences:
		if typed == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalOpt[T any](data []byte, target **T) error {
	if len(data) == 0 {
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*target = &value
	return nil
}
