package event

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrRSVPNotFound  = errors.New("RSVP not found")
	ErrStatusChanged = errors.New("event status changed concurrently")
)

const eventColumns = `id, club_id, organizer_id, title, description, starts_at, duration_minutes, location_name, location_address, format, max_participants, rsvp_deadline, status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, organizerID int, in CreateEventRequest) (*Event, error) {
	query := `
		INSERT INTO events (club_id, organizer_id, title, description, starts_at, duration_minutes,
		                    location_name, location_address, format, max_participants, rsvp_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + eventColumns

	var ev Event
	err := tx.QueryRowxContext(ctx, query,
		in.ClubID, organizerID, in.Title, in.Description, in.StartsAt, in.DurationMinutes,
		in.LocationName, in.LocationAddress, in.Format, in.MaxParticipants, in.RSVPDeadline,
	).StructScan(&ev)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Event, error) {
	var ev Event
	err := r.db.GetContext(ctx, &ev,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *repository) GetWithCounts(ctx context.Context, id int) (*EventWithCounts, error) {
	var ev EventWithCounts
	err := r.db.GetContext(ctx, &ev, `
		SELECT e.*, c.name AS club_name,
		       COUNT(rs.id) FILTER (WHERE rs.status = 'attending') AS attending_count
		FROM events e
		JOIN clubs c ON c.id = e.club_id
		LEFT JOIN event_rsvps rs ON rs.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.id, c.name
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *repository) List(ctx context.Context, clubID int, upcomingOnly bool, page, limit int) ([]EventWithCounts, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := []string{"1=1"}
	args := []interface{}{}

	if clubID > 0 {
		args = append(args, clubID)
		where = append(where, "e.club_id = $"+strconv.Itoa(len(args)))
	}
	if upcomingOnly {
		where = append(where, "e.starts_at > NOW()", "e.status = 'scheduled'")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM events e WHERE `+whereClause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT e.*, c.name AS club_name,
		       COUNT(rs.id) FILTER (WHERE rs.status = 'attending') AS attending_count
		FROM events e
		JOIN clubs c ON c.id = e.club_id
		LEFT JOIN event_rsvps rs ON rs.event_id = e.id
		WHERE ` + whereClause + `
		GROUP BY e.id, c.name
		ORDER BY e.starts_at
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, (page-1)*limit)

	events := []EventWithCounts{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *repository) Update(ctx context.Context, id int, in UpdateEventRequest) (*Event, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.StartsAt != nil {
		add("starts_at", *in.StartsAt)
	}
	if in.DurationMinutes != nil {
		add("duration_minutes", *in.DurationMinutes)
	}
	if in.LocationName != nil {
		add("location_name", *in.LocationName)
	}
	if in.LocationAddress != nil {
		add("location_address", *in.LocationAddress)
	}
	if in.MaxParticipants != nil {
		add("max_participants", *in.MaxParticipants)
	}
	if in.RSVPDeadline != nil {
		add("rsvp_deadline", *in.RSVPDeadline)
	}

	args = append(args, id)
	query := `UPDATE events SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + eventColumns

	var ev Event
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&ev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateStatus moves the event between statuses; the WHERE clause on the
// current status makes the transition race-safe.
func (r *repository) UpdateStatus(ctx context.Context, id int, from, to string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE events SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

const upsertRSVPQuery = `
	INSERT INTO event_rsvps (event_id, user_id, status)
	VALUES ($1, $2, $3)
	ON CONFLICT (event_id, user_id) DO UPDATE SET status = EXCLUDED.status
	RETURNING id, event_id, user_id, status, created_at
`

func (r *repository) UpsertRSVP(ctx context.Context, eventID, userID int, status string) (*RSVP, error) {
	var rsvp RSVP
	err := r.db.QueryRowxContext(ctx, upsertRSVPQuery, eventID, userID, status).StructScan(&rsvp)
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (r *repository) UpsertRSVPTx(ctx context.Context, tx *sqlx.Tx, eventID, userID int, status string) (*RSVP, error) {
	var rsvp RSVP
	err := tx.QueryRowxContext(ctx, upsertRSVPQuery, eventID, userID, status).StructScan(&rsvp)
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (r *repository) DeleteRSVP(ctx context.Context, eventID, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_rsvps WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRSVPNotFound
	}
	return nil
}

func (r *repository) ListRSVPs(ctx context.Context, eventID int) ([]RSVPWithUser, error) {
	rsvps := []RSVPWithUser{}
	err := r.db.SelectContext(ctx, &rsvps, `
		SELECT rs.id, rs.event_id, rs.user_id, rs.status, rs.created_at,
		       u.first_name, u.last_name
		FROM event_rsvps rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.event_id = $1
		ORDER BY rs.created_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	return rsvps, nil
}

func (r *repository) AttendingCount(ctx context.Context, eventID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM event_rsvps
		WHERE event_id = $1 AND status = 'attending'
	`, eventID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
