package coin

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupServiceMock(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	svc := NewService(sqlxDB, NewLedger(sqlxDB), nil)

	closer := func() { sqlxDB.Close() }
	return svc, mock, closer
}

var requestRowColumns = []string{
	"id", "requester_id", "club_id", "package_id", "package_name", "package_coins",
	"package_bonus_coins", "package_total_coins", "package_price_cents", "payment_method",
	"payment_details", "status", "admin_notes", "processed_by", "processed_at",
	"coins_granted", "created_at", "updated_at",
}

func pendingRequestRow(id, requesterID int, status string, notes string, adminID int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(requestRowColumns).
		AddRow(id, requesterID, nil, "basic", "Basic", 100, 10, 110, 49900, "gcash",
			[]byte(`{}`), status, notes, adminID, now, 0, now, now)
}

func TestSubmitRequest_SnapshotsPackage(t *testing.T) {
	svc, mock, close := setupServiceMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_purchase_requests")).
		WithArgs(7, nil, "basic", "Basic", int64(100), int64(10), int64(110), int64(49900), "gcash", []byte(`{"ref":"GC-123"}`)).
		WillReturnRows(pendingRequestRow(1, 7, "pending", "", 0))

	req, err := svc.SubmitRequest(context.Background(), 7, nil, "basic", "gcash", Metadata{"ref": "GC-123"})
	require.NoError(t, err)
	require.Equal(t, "Basic", req.PackageName)
	require.Equal(t, int64(110), req.PackageTotalCoins)
	require.Equal(t, StatusPending, req.Status)
}

func TestSubmitRequest_UnknownPackage(t *testing.T) {
	svc, _, close := setupServiceMock(t)
	defer close()

	_, err := svc.SubmitRequest(context.Background(), 7, nil, "mega", "gcash", nil)
	require.ErrorIs(t, err, ErrUnknownPackage)
}

func TestSubmitRequest_InvalidPaymentMethod(t *testing.T) {
	svc, _, close := setupServiceMock(t)
	defer close()

	_, err := svc.SubmitRequest(context.Background(), 7, nil, "basic", "bitcoin", nil)
	require.Error(t, err)
}

func TestProcessRequest_ApproveCreditsWalletOnce(t *testing.T) {
	svc, mock, close := setupServiceMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE coin_purchase_requests SET status = $1, processed_by = $2, processed_at = NOW(), admin_notes = $3, updated_at = NOW() WHERE id = $4 AND status = 'pending' RETURNING")).
		WithArgs(StatusApproved, 99, "", 1).
		WillReturnRows(pendingRequestRow(1, 7, "approved", "", 99))

	// reference dedup check, then wallet credit
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM coin_transactions WHERE reference = $1)")).
		WithArgs("purchase_request:1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerUser, 7).
		WillReturnRows(walletRows(3, "user", 7, 0, 0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1")).
		WithArgs(int64(110), int64(110), int64(0), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(55, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE coin_purchase_requests SET coins_granted = $1 WHERE id = $2")).
		WithArgs(int64(110), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.ProcessRequest(ctx, 1, 99, ActionApprove, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, req.Status)
	require.Equal(t, int64(110), req.CoinsGranted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRequest_SecondApprovalConflicts(t *testing.T) {
	svc, mock, close := setupServiceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE coin_purchase_requests")).
		WithArgs(StatusApproved, 99, "", 1).
		WillReturnRows(sqlmock.NewRows(requestRowColumns)) // claim lost: no rows
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM coin_purchase_requests WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

	_, err := svc.ProcessRequest(context.Background(), 1, 99, ActionApprove, "")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRequest_UnknownRequest(t *testing.T) {
	svc, mock, close := setupServiceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE coin_purchase_requests")).
		WithArgs(StatusApproved, 99, "", 404).
		WillReturnRows(sqlmock.NewRows(requestRowColumns))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM coin_purchase_requests WHERE id = $1")).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := svc.ProcessRequest(context.Background(), 404, 99, ActionApprove, "")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestProcessRequest_RejectRequiresNotes(t *testing.T) {
	svc, _, close := setupServiceMock(t)
	defer close()

	_, err := svc.ProcessRequest(context.Background(), 1, 99, ActionReject, "   ")
	require.ErrorIs(t, err, ErrNotesRequired)
}

func TestProcessRequest_RejectDoesNotCredit(t *testing.T) {
	svc, mock, close := setupServiceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE coin_purchase_requests")).
		WithArgs(StatusRejected, 99, "payment not received", 2).
		WillReturnRows(pendingRequestRow(2, 7, "rejected", "payment not received", 99))
	mock.ExpectCommit()

	req, err := svc.ProcessRequest(context.Background(), 2, 99, ActionReject, "payment not received")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, req.Status)
	require.Zero(t, req.CoinsGranted)
	// no wallet statements expected at all
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRequest_InvalidAction(t *testing.T) {
	svc, _, close := setupServiceMock(t)
	defer close()

	_, err := svc.ProcessRequest(context.Background(), 1, 99, "maybe", "")
	require.ErrorIs(t, err, ErrInvalidAction)
}
