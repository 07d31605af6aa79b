package club

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	ErrClubNotFound        = errors.New("club not found")
	ErrNotAMember          = errors.New("user is not a member of this club")
	ErrJoinRequestNotFound = errors.New("join request not found or already processed")
)

const clubColumns = `id, name, description, sport, location_name, location_address, is_private, owner_id, is_active, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateClubTx(ctx context.Context, tx *sqlx.Tx, ownerID int, in CreateClubRequest) (*Club, error) {
	query := `
		INSERT INTO clubs (name, description, sport, location_name, location_address, is_private, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + clubColumns

	var club Club
	err := tx.QueryRowxContext(ctx, query,
		in.Name, in.Description, in.Sport, in.LocationName, in.LocationAddress, in.IsPrivate, ownerID,
	).StructScan(&club)
	if err != nil {
		return nil, err
	}

	return &club, nil
}

func (r *repository) GetClubByID(ctx context.Context, id int) (*Club, error) {
	var club Club
	err := r.db.GetContext(ctx, &club,
		`SELECT `+clubColumns+` FROM clubs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *repository) UpdateClub(ctx context.Context, id int, in UpdateClubRequest) (*Club, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.LocationName != nil {
		add("location_name", *in.LocationName)
	}
	if in.LocationAddress != nil {
		add("location_address", *in.LocationAddress)
	}
	if in.IsPrivate != nil {
		add("is_private", *in.IsPrivate)
	}

	args = append(args, id)
	query := `UPDATE clubs SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` AND is_active = TRUE RETURNING ` + clubColumns

	var club Club
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&club)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *repository) DeactivateClub(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE clubs SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrClubNotFound
	}
	return nil
}

func (r *repository) BrowseClubs(ctx context.Context, sport, search string, page, limit int) ([]ClubWithMemberCount, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := []string{"c.is_active = TRUE"}
	args := []interface{}{}

	if sport != "" {
		args = append(args, sport)
		where = append(where, "c.sport = $"+strconv.Itoa(len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, "c.name ILIKE $"+strconv.Itoa(len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM clubs c WHERE `+whereClause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT c.*, COUNT(m.id) FILTER (WHERE m.is_active) AS member_count
		FROM clubs c
		LEFT JOIN club_members m ON m.club_id = c.id
		WHERE ` + whereClause + `
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, (page-1)*limit)

	clubs := []ClubWithMemberCount{}
	if err := r.db.SelectContext(ctx, &clubs, query, args...); err != nil {
		return nil, 0, err
	}

	return clubs, total, nil
}

func (r *repository) ListClubsForUser(ctx context.Context, userID int) ([]Club, error) {
	clubs := []Club{}
	err := r.db.SelectContext(ctx, &clubs, `
		SELECT c.`+strings.ReplaceAll(clubColumns, ", ", ", c.")+`
		FROM clubs c
		JOIN club_members m ON m.club_id = c.id
		WHERE m.user_id = $1 AND m.is_active = TRUE AND c.is_active = TRUE
		ORDER BY c.name
	`, userID)
	if err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *repository) AddMember(ctx context.Context, clubID, userID int, role string) (*Member, error) {
	query := `
		INSERT INTO club_members (club_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (club_id, user_id) DO UPDATE SET is_active = TRUE, role = EXCLUDED.role
		RETURNING id, club_id, user_id, role, is_active, joined_at
	`

	var member Member
	err := r.db.QueryRowxContext(ctx, query, clubID, userID, role).StructScan(&member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) AddMemberTx(ctx context.Context, tx *sqlx.Tx, clubID, userID int, role string) (*Member, error) {
	query := `
		INSERT INTO club_members (club_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (club_id, user_id) DO UPDATE SET is_active = TRUE, role = EXCLUDED.role
		RETURNING id, club_id, user_id, role, is_active, joined_at
	`

	var member Member
	err := tx.QueryRowxContext(ctx, query, clubID, userID, role).StructScan(&member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) GetMemberRole(ctx context.Context, clubID, userID int) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, `
		SELECT role FROM club_members
		WHERE club_id = $1 AND user_id = $2 AND is_active = TRUE
	`, clubID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotAMember
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *repository) RemoveMember(ctx context.Context, clubID, userID int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE club_members SET is_active = FALSE
		WHERE club_id = $1 AND user_id = $2 AND is_active = TRUE
	`, clubID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotAMember
	}
	return nil
}

func (r *repository) UpdateMemberRole(ctx context.Context, clubID, userID int, role string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE club_members SET role = $1
		WHERE club_id = $2 AND user_id = $3 AND is_active = TRUE
	`, role, clubID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotAMember
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, clubID int) ([]MemberWithUser, error) {
	members := []MemberWithUser{}
	err := r.db.SelectContext(ctx, &members, `
		SELECT m.id, m.club_id, m.user_id, m.role, m.is_active, m.joined_at,
		       u.first_name, u.last_name, u.email
		FROM club_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.club_id = $1 AND m.is_active = TRUE
		ORDER BY m.joined_at
	`, clubID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) CreateJoinRequest(ctx context.Context, clubID, userID int, message string) (*JoinRequest, error) {
	var req JoinRequest
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO club_join_requests (club_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, club_id, user_id, message, status, created_at, processed_at
	`, clubID, userID, message).StructScan(&req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) HasPendingJoinRequest(ctx context.Context, clubID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM club_join_requests
			WHERE club_id = $1 AND user_id = $2 AND status = 'pending'
		)
	`, clubID, userID)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *repository) ListJoinRequests(ctx context.Context, clubID int) ([]JoinRequestWithUser, error) {
	requests := []JoinRequestWithUser{}
	err := r.db.SelectContext(ctx, &requests, `
		SELECT jr.id, jr.club_id, jr.user_id, jr.message, jr.status, jr.created_at, jr.processed_at,
		       u.first_name, u.last_name, u.email
		FROM club_join_requests jr
		JOIN users u ON u.id = jr.user_id
		WHERE jr.club_id = $1 AND jr.status = 'pending'
		ORDER BY jr.created_at
	`, clubID)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ClaimJoinRequestTx flips a pending join request to the given status; only
// one concurrent caller can win the claim.
func (r *repository) ClaimJoinRequestTx(ctx context.Context, tx *sqlx.Tx, requestID int, status string) (*JoinRequest, error) {
	var req JoinRequest
	err := tx.QueryRowxContext(ctx, `
		UPDATE club_join_requests
		SET status = $1, processed_at = NOW()
		WHERE id = $2 AND status = 'pending'
		RETURNING id, club_id, user_id, message, status, created_at, processed_at
	`, status, requestID).StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJoinRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
