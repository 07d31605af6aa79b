package coin

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, requester_id, club_id, package_id, package_name, package_coins, package_bonus_coins,
	package_total_coins, package_price_cents, payment_method, payment_details, status, admin_notes,
	processed_by, processed_at, coins_granted, created_at, updated_at`

// RequestRepository persists coin purchase requests.
type RequestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *PurchaseRequest) (*PurchaseRequest, error) {
	created := &PurchaseRequest{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO coin_purchase_requests
			(requester_id, club_id, package_id, package_name, package_coins, package_bonus_coins,
			 package_total_coins, package_price_cents, payment_method, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+requestColumns,
		req.RequesterID, req.ClubID, req.PackageID, req.PackageName, req.PackageCoins,
		req.PackageBonusCoins, req.PackageTotalCoins, req.PackagePriceCents,
		req.PaymentMethod, req.PaymentDetails,
	).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int) (*PurchaseRequest, error) {
	req := &PurchaseRequest{}
	err := r.db.GetContext(ctx, req,
		`SELECT `+requestColumns+` FROM coin_purchase_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests for the admin dashboard, newest first, with requester
// and club display names joined in. status filters when non-empty.
func (r *RequestRepository) List(ctx context.Context, status string, page, limit int) ([]PurchaseRequestWithNames, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	where := ""
	args := []interface{}{}
	if status != "" && status != "all" {
		where = `WHERE r.status = $1`
		args = append(args, status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM coin_purchase_requests r ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT r.*, u.first_name || ' ' || u.last_name AS requester_name, u.email AS requester_email, c.name AS club_name
		FROM coin_purchase_requests r
		JOIN users u ON u.id = r.requester_id
		LEFT JOIN clubs c ON c.id = r.club_id
		` + where + `
		ORDER BY r.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, (page-1)*limit)

	requests := []PurchaseRequestWithNames{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *RequestRepository) ListForUser(ctx context.Context, userID, page, limit int) ([]PurchaseRequest, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM coin_purchase_requests WHERE requester_id = $1`, userID)
	if err != nil {
		return nil, 0, err
	}

	requests := []PurchaseRequest{}
	err = r.db.SelectContext(ctx, &requests, `
		SELECT `+requestColumns+`
		FROM coin_purchase_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// claimTx atomically transitions a pending request to the given terminal
// status. Exactly one concurrent caller wins; the rest see sql.ErrNoRows.
func (r *RequestRepository) claimTx(ctx context.Context, tx *sqlx.Tx, id int, status RequestStatus, adminID int, notes string) (*PurchaseRequest, error) {
	req := &PurchaseRequest{}
	err := tx.QueryRowxContext(ctx, `
		UPDATE coin_purchase_requests
		SET status = $1, processed_by = $2, processed_at = NOW(), admin_notes = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
		RETURNING `+requestColumns,
		status, adminID, notes, id,
	).StructScan(req)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RequestRepository) setCoinsGrantedTx(ctx context.Context, tx *sqlx.Tx, id int, coins int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE coin_purchase_requests SET coins_granted = $1 WHERE id = $2`, coins, id)
	return err
}

type StatusStat struct {
	Status          RequestStatus `db:"status" json:"status"`
	Count           int           `db:"count" json:"count"`
	TotalCoins      int64         `db:"total_coins" json:"totalCoins"`
	TotalPriceCents int64         `db:"total_price_cents" json:"totalPriceCents"`
}

func (r *RequestRepository) Stats(ctx context.Context) ([]StatusStat, error) {
	stats := []StatusStat{}
	err := r.db.SelectContext(ctx, &stats, `
		SELECT status,
		       COUNT(*) AS count,
		       COALESCE(SUM(package_total_coins), 0) AS total_coins,
		       COALESCE(SUM(package_price_cents), 0) AS total_price_cents
		FROM coin_purchase_requests
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RequesterContact is the address notified once a request is processed.
type RequesterContact struct {
	Name  string `db:"name"`
	Email string `db:"email"`
}

func (r *RequestRepository) RequesterContact(ctx context.Context, requestID int) (*RequesterContact, error) {
	contact := &RequesterContact{}
	err := r.db.GetContext(ctx, contact, `
		SELECT u.first_name || ' ' || u.last_name AS name, u.email
		FROM coin_purchase_requests r
		JOIN users u ON u.id = r.requester_id
		WHERE r.id = $1
	`, requestID)
	if err != nil {
		return nil, err
	}
	return contact, nil
}
