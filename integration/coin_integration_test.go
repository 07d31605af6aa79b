package clubhub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/coin"
)

func TestLedgerRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	ledger := coin.NewLedger(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "ledger@test.com", "Ledger")
	owner := coin.UserOwner(userID)

	w, err := ledger.GetOrCreateWallet(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(0), w.Balance)

	_, err = ledger.Credit(ctx, owner, 100, coin.TxAdminGrant, "Seed", nil, "")
	require.NoError(t, err)

	debitTx, err := ledger.Debit(ctx, owner, 30, coin.TxClubCreation, "Club creation: Test", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(70), debitTx.BalanceAfter)

	w, err = ledger.GetWallet(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(70), w.Balance)
	assert.Equal(t, int64(100), w.TotalEarned)
	assert.Equal(t, int64(30), w.TotalSpent)

	txns, total, err := ledger.Transactions(ctx, owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	// Newest first; каждая запись хранит баланс после операции
	assert.Equal(t, int64(70), txns[0].BalanceAfter)
	assert.Equal(t, int64(100), txns[1].BalanceAfter)
}

func TestLedgerInsufficientCoins_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	ledger := coin.NewLedger(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "broke@test.com", "Broke")
	owner := coin.UserOwner(userID)
	grantCoins(t, db, "user", userID, 15)

	_, err := ledger.Debit(ctx, owner, 20, coin.TxClubCreation, "Club creation: Test", nil, "")

	var insufficient *coin.InsufficientCoinsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(20), insufficient.Required)
	assert.Equal(t, int64(15), insufficient.Available)

	// Баланс не изменился, транзакция не записана
	assert.Equal(t, int64(15), walletBalance(t, db, "user", userID))

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM coin_transactions`))
	assert.Equal(t, 0, count)
}

func TestLedgerDuplicateReference_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	ledger := coin.NewLedger(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "dup@test.com", "Dup")
	owner := coin.UserOwner(userID)

	_, err := ledger.Credit(ctx, owner, 50, coin.TxAdminGrant, "First", nil, "grant:abc")
	require.NoError(t, err)

	_, err = ledger.Credit(ctx, owner, 50, coin.TxAdminGrant, "Replay", nil, "grant:abc")
	require.ErrorIs(t, err, coin.ErrDuplicateReference)

	assert.Equal(t, int64(50), walletBalance(t, db, "user", userID))
}

func TestLedgerTransfer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	ledger := coin.NewLedger(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "donor@test.com", "Donor")
	ownerID := createTestUser(t, db, "owner@test.com", "Owner")

	var clubID int
	require.NoError(t, db.QueryRow(`
		INSERT INTO clubs (name, description, sport, location_name, location_address, is_private, owner_id)
		VALUES ('Transfer FC', '', 'football', 'Pitch', 'Addr', FALSE, $1)
		RETURNING id
	`, ownerID).Scan(&clubID))

	grantCoins(t, db, "user", userID, 100)

	result, err := ledger.Transfer(ctx, userID, clubID, 40, "For new balls")
	require.NoError(t, err)
	assert.Equal(t, int64(60), result.UserBalance)
	assert.Equal(t, int64(40), result.ClubBalance)

	assert.Equal(t, int64(60), walletBalance(t, db, "user", userID))
	assert.Equal(t, int64(40), walletBalance(t, db, "club", clubID))
}

func TestPurchaseRequestApproval_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := coin.NewService(db, coin.NewLedger(db), nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "buyer@test.com", "Buyer")
	adminID := createTestAdmin(t, db, "admin@test.com")

	req, err := svc.SubmitRequest(ctx, userID, nil, "basic", "gcash",
		coin.Metadata{"ref": "GC-0042"})
	require.NoError(t, err)
	assert.Equal(t, coin.StatusPending, req.Status)
	assert.Equal(t, int64(110), req.PackageTotalCoins)

	processed, err := svc.ProcessRequest(ctx, req.ID, adminID, coin.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, coin.StatusApproved, processed.Status)
	assert.Equal(t, int64(110), processed.CoinsGranted)

	assert.Equal(t, int64(110), walletBalance(t, db, "user", userID))

	// Повторное одобрение того же запроса не должно зачислять монеты дважды
	_, err = svc.ProcessRequest(ctx, req.ID, adminID, coin.ActionApprove, "")
	require.ErrorIs(t, err, coin.ErrAlreadyProcessed)

	assert.Equal(t, int64(110), walletBalance(t, db, "user", userID))
}

func TestPurchaseRequestRejection_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := coin.NewService(db, coin.NewLedger(db), nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "rejected@test.com", "Rejected")
	adminID := createTestAdmin(t, db, "admin2@test.com")

	req, err := svc.SubmitRequest(ctx, userID, nil, "starter", "cash", nil)
	require.NoError(t, err)

	_, err = svc.ProcessRequest(ctx, req.ID, adminID, coin.ActionReject, "")
	require.ErrorIs(t, err, coin.ErrNotesRequired)

	processed, err := svc.ProcessRequest(ctx, req.ID, adminID, coin.ActionReject, "No payment received")
	require.NoError(t, err)
	assert.Equal(t, coin.StatusRejected, processed.Status)
	assert.Equal(t, int64(0), processed.CoinsGranted)

	var exists bool
	require.NoError(t, db.Get(&exists,
		`SELECT EXISTS(SELECT 1 FROM wallets WHERE owner_type = 'user' AND owner_id = $1 AND balance > 0)`,
		userID))
	assert.False(t, exists)
}
