package message

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, club_id, user_id, content, type, event_id, edited, edited_at, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, clubID, userID int, content, msgType string, eventID *int) (*Message, error) {
	var m Message
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO club_messages (club_id, user_id, content, type, event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		clubID, userID, content, msgType, eventID,
	).StructScan(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Message, error) {
	var m Message
	err := r.db.GetContext(ctx, &m,
		`SELECT `+messageColumns+` FROM club_messages WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetWithUser(ctx context.Context, id int) (*MessageWithUser, error) {
	var m MessageWithUser
	err := r.db.GetContext(ctx, &m, `
		SELECT m.id, m.club_id, m.user_id, m.content, m.type, m.event_id, m.edited, m.edited_at, m.created_at,
		       u.first_name, u.last_name,
		       COUNT(r.id) AS reply_count
		FROM club_messages m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN club_message_replies r ON r.message_id = m.id
		WHERE m.id = $1 AND m.deleted_at IS NULL
		GROUP BY m.id, u.first_name, u.last_name
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForClub pages the club board newest-first. A Before cursor restricts
// the page to messages older than the given message.
func (r *repository) ListForClub(ctx context.Context, clubID int, f ListFilter) ([]MessageWithUser, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	where := []string{"m.club_id = $1", "m.deleted_at IS NULL"}
	args := []interface{}{clubID}

	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, "m.type = $"+strconv.Itoa(len(args)))
	}
	if f.Before > 0 {
		args = append(args, f.Before)
		where = append(where, "m.created_at < (SELECT created_at FROM club_messages WHERE id = $"+strconv.Itoa(len(args))+")")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM club_messages m WHERE `+whereClause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.club_id, m.user_id, m.content, m.type, m.event_id, m.edited, m.edited_at, m.created_at,
		       u.first_name, u.last_name,
		       COUNT(r.id) AS reply_count
		FROM club_messages m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN club_message_replies r ON r.message_id = m.id
		WHERE ` + whereClause + `
		GROUP BY m.id, u.first_name, u.last_name
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	messages := []MessageWithUser{}
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *repository) RepliesFor(ctx context.Context, messageIDs []int) ([]Reply, error) {
	replies := []Reply{}
	if len(messageIDs) == 0 {
		return replies, nil
	}

	err := r.db.SelectContext(ctx, &replies, `
		SELECT r.id, r.message_id, r.user_id, r.content, u.first_name, u.last_name, r.created_at
		FROM club_message_replies r
		JOIN users u ON u.id = r.user_id
		WHERE r.message_id = ANY($1)
		ORDER BY r.created_at
	`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *repository) UpdateContent(ctx context.Context, id int, content string) (*Message, error) {
	var m Message
	err := r.db.QueryRowxContext(ctx, `
		UPDATE club_messages
		SET content = $1, edited = TRUE, edited_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING `+messageColumns,
		content, id,
	).StructScan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SoftDelete hides the message without losing the moderation trail.
func (r *repository) SoftDelete(ctx context.Context, id, deletedBy int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE club_messages SET deleted_at = NOW(), deleted_by = $1
		WHERE id = $2 AND deleted_at IS NULL
	`, deletedBy, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *repository) CreateReply(ctx context.Context, messageID, userID int, content string) (*Reply, error) {
	var id int
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO club_message_replies (message_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, messageID, userID, content).Scan(&id)
	if err != nil {
		return nil, err
	}

	var reply Reply
	err = r.db.GetContext(ctx, &reply, `
		SELECT r.id, r.message_id, r.user_id, r.content, u.first_name, u.last_name, r.created_at
		FROM club_message_replies r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}
