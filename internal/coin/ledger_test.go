package coin

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupLedgerMock(t *testing.T) (*Ledger, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	ledger := NewLedger(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return ledger, mock, closer
}

func walletRows(id int, ownerType string, ownerID int, balance, earned, spent int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "owner_type", "owner_id", "balance", "total_earned", "total_spent", "last_transaction_at", "created_at", "updated_at"}).
		AddRow(id, ownerType, ownerID, balance, earned, spent, now, now, now)
}

const lockWalletQuery = "SELECT id, owner_type, owner_id, balance, total_earned, total_spent, last_transaction_at, created_at, updated_at FROM wallets WHERE owner_type = $1 AND owner_id = $2 FOR UPDATE"

func TestCredit_Success(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerUser, 10).
		WillReturnRows(walletRows(7, "user", 10, 50, 50, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1, total_earned = $2, total_spent = $3, last_transaction_at = NOW(), updated_at = NOW() WHERE id = $4")).
		WithArgs(int64(150), int64(150), int64(0), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions (wallet_id, type, amount, balance_after, description, metadata, status, reference) VALUES ($1, $2, $3, $4, $5, $6, 'completed', $7) RETURNING id, created_at")).
		WithArgs(7, TxAdminGrant, int64(100), int64(150), "Welcome bonus", []byte("{}"), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(33, time.Now()))
	mock.ExpectCommit()

	txn, err := ledger.Credit(ctx, UserOwner(10), 100, TxAdminGrant, "Welcome bonus", nil, "")
	require.NoError(t, err)
	require.Equal(t, 33, txn.ID)
	require.Equal(t, int64(100), txn.Amount)
	require.Equal(t, int64(150), txn.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_Success_BalanceAfterMatches(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerClub, 3).
		WillReturnRows(walletRows(12, "club", 3, 40, 100, 60))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1, total_earned = $2, total_spent = $3, last_transaction_at = NOW(), updated_at = NOW() WHERE id = $4")).
		WithArgs(int64(30), int64(100), int64(70), 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions")).
		WithArgs(12, TxEventCreation, int64(-10), int64(30), "Event creation: Friday open play", []byte("{}"), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(90, time.Now()))
	mock.ExpectCommit()

	txn, err := ledger.Debit(ctx, ClubOwner(3), 10, TxEventCreation, "Event creation: Friday open play", nil, "")
	require.NoError(t, err)
	require.Equal(t, int64(-10), txn.Amount)
	require.Equal(t, int64(30), txn.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_InsufficientCoins_NoMutation(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerUser, 4).
		WillReturnRows(walletRows(5, "user", 4, 15, 15, 0))
	mock.ExpectRollback()

	_, err := ledger.Debit(ctx, UserOwner(4), 20, TxClubCreation, "Club creation: Smashers", nil, "")
	require.Error(t, err)

	var insufficient *InsufficientCoinsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(20), insufficient.Required)
	require.Equal(t, int64(15), insufficient.Available)
	require.Equal(t, int64(5), insufficient.Shortfall())

	// no UPDATE or INSERT must have been issued
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_ZeroBalance(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerClub, 8).
		WillReturnRows(walletRows(9, "club", 8, 0, 0, 0))
	mock.ExpectRollback()

	_, err := ledger.Debit(ctx, ClubOwner(8), 10, TxEventCreation, "Event creation", nil, "")

	var insufficient *InsufficientCoinsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(10), insufficient.Required)
	require.Equal(t, int64(0), insufficient.Available)
	require.Equal(t, int64(10), insufficient.Shortfall())
}

func TestCredit_DuplicateReference(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM coin_transactions WHERE reference = $1)")).
		WithArgs("purchase_request:42").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := ledger.Credit(ctx, UserOwner(1), 100, TxAdminApprovedPurchase, "Coin purchase", nil, "purchase_request:42")
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Две конкурентные записи с одним reference: проигравшая проходит EXISTS,
// но падает на уникальном индексе.
func TestCredit_DuplicateReferenceRace(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM coin_transactions WHERE reference = $1)")).
		WithArgs("purchase_request:42").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerUser, 1).
		WillReturnRows(walletRows(7, "user", 1, 50, 50, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(150), int64(150), int64(0), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions")).
		WithArgs(7, TxAdminApprovedPurchase, int64(100), int64(150), "Coin purchase", []byte("{}"), "purchase_request:42").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "coin_transactions_reference_key"})
	mock.ExpectRollback()

	_, err := ledger.Credit(ctx, UserOwner(1), 100, TxAdminApprovedPurchase, "Coin purchase", nil, "purchase_request:42")
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditAndDebit_RejectNonPositiveAmounts(t *testing.T) {
	ledger, _, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	_, err := ledger.Credit(ctx, UserOwner(1), 0, TxAdminGrant, "", nil, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.Debit(ctx, UserOwner(1), -5, TxAdminGrant, "", nil, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestGetOrCreateWallet_WhenNotExists(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_type, owner_id, balance, total_earned, total_spent, last_transaction_at, created_at, updated_at FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerUser, 10).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2) RETURNING")).
		WithArgs(OwnerUser, 10).
		WillReturnRows(walletRows(5, "user", 10, 0, 0, 0))

	w, err := ledger.GetOrCreateWallet(ctx, UserOwner(10))
	require.NoError(t, err)
	require.Equal(t, 5, w.ID)
	require.Equal(t, int64(0), w.Balance)
}

func TestGetWallet_NotFound(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_type, owner_id, balance, total_earned, total_spent, last_transaction_at, created_at, updated_at FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerClub, 99).
		WillReturnError(sql.ErrNoRows)

	_, err := ledger.GetWallet(context.Background(), ClubOwner(99))
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestTransfer_SameWalletRejected(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2) ON CONFLICT (owner_type, owner_id) DO NOTHING")).
		WithArgs(OwnerUser, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2) ON CONFLICT (owner_type, owner_id) DO NOTHING")).
		WithArgs(OwnerClub, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerUser, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerClub, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectRollback()

	_, err := ledger.Transfer(ctx, 1, 2, 50, "")
	require.ErrorIs(t, err, ErrSameWallet)
}

func TestTransfer_LocksWalletsInAscendingOrder(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs(OwnerUser, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs(OwnerClub, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// user wallet has the higher id; the lower club wallet id must be locked first
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerUser, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerClub, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE id = $1 FOR UPDATE")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE id = $1 FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	// debit from user wallet
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerUser, 1).
		WillReturnRows(walletRows(9, "user", 1, 100, 100, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1")).
		WithArgs(int64(50), int64(100), int64(50), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(101, time.Now()))

	// credit to club wallet
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletQuery)).
		WithArgs(OwnerClub, 2).
		WillReturnRows(walletRows(4, "club", 2, 10, 10, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1")).
		WithArgs(int64(60), int64(60), int64(0), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO coin_transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(102, time.Now()))

	mock.ExpectCommit()

	result, err := ledger.Transfer(ctx, 1, 2, 50, "for court fees")
	require.NoError(t, err)
	require.Equal(t, int64(50), result.Amount)
	require.Equal(t, int64(50), result.UserBalance)
	require.Equal(t, int64(60), result.ClubBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_NoWalletYieldsEmptyPage(t *testing.T) {
	ledger, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(OwnerUser, 77).
		WillReturnError(sql.ErrNoRows)

	txs, total, err := ledger.Transactions(context.Background(), UserOwner(77), 1, 20)
	require.NoError(t, err)
	require.Empty(t, txs)
	require.Zero(t, total)
}
