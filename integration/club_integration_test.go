package clubhub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/club"
	"clubhub/internal/coin"
	"clubhub/internal/user"
)

func TestCreateClub_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := club.NewService(db, coin.NewLedger(db), user.NewRepository(db), nil)
	ctx := context.Background()

	ownerID := createTestUser(t, db, "founder@test.com", "Founder")
	grantCoins(t, db, "user", ownerID, 50)

	created, err := svc.Create(ctx, ownerID, club.CreateClubRequest{
		Name:            "Smashers",
		Sport:           "badminton",
		LocationName:    "Court A",
		LocationAddress: "123 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, created.OwnerID)
	assert.True(t, created.IsActive)

	// Создание клуба списывает ровно 20 монет
	assert.Equal(t, int64(30), walletBalance(t, db, "user", ownerID))

	// Основатель сразу становится owner, у клуба появляется пустой кошелек
	role, err := svc.Repo().GetMemberRole(ctx, created.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, club.RoleOwner, role)
	assert.Equal(t, int64(0), walletBalance(t, db, "club", created.ID))
}

func TestCreateClubInsufficientCoins_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := club.NewService(db, coin.NewLedger(db), user.NewRepository(db), nil)
	ctx := context.Background()

	ownerID := createTestUser(t, db, "underfunded@test.com", "Underfunded")
	grantCoins(t, db, "user", ownerID, 5)

	_, err := svc.Create(ctx, ownerID, club.CreateClubRequest{
		Name:            "No Money FC",
		Sport:           "football",
		LocationName:    "Pitch",
		LocationAddress: "Addr",
	})

	var insufficient *coin.InsufficientCoinsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, coin.CostClubCreation, insufficient.Required)

	// Ничего не создано и не списано
	assert.Equal(t, int64(5), walletBalance(t, db, "user", ownerID))

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM clubs`))
	assert.Equal(t, 0, count)
}

func TestJoinPrivateClubFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := club.NewService(db, coin.NewLedger(db), user.NewRepository(db), nil)
	ctx := context.Background()

	ownerID := createTestUser(t, db, "privowner@test.com", "PrivOwner")
	joinerID := createTestUser(t, db, "joiner@test.com", "Joiner")
	grantCoins(t, db, "user", ownerID, 50)

	created, err := svc.Create(ctx, ownerID, club.CreateClubRequest{
		Name:            "Secret Society",
		Sport:           "chess",
		LocationName:    "Library",
		LocationAddress: "1 Book Ln",
		IsPrivate:       true,
	})
	require.NoError(t, err)

	// Вступление в приватный клуб создает заявку, а не членство
	outcome, err := svc.Join(ctx, created.ID, joinerID, "Let me in")
	require.NoError(t, err)
	require.NotNil(t, outcome.Request)
	require.Nil(t, outcome.Member)

	_, err = svc.Repo().GetMemberRole(ctx, created.ID, joinerID)
	require.ErrorIs(t, err, club.ErrNotAMember)

	// Повторная заявка дедуплицируется
	_, err = svc.Join(ctx, created.ID, joinerID, "Again")
	require.ErrorIs(t, err, club.ErrPendingRequest)

	// Одобрение списывает 5 монет с кошелька клуба
	grantCoins(t, db, "club", created.ID, 10)

	approved, err := svc.ProcessJoinRequest(ctx, created.ID, outcome.Request.ID, ownerID, coin.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, outcome.Request.ID, approved.ID)

	role, err := svc.Repo().GetMemberRole(ctx, created.ID, joinerID)
	require.NoError(t, err)
	assert.Equal(t, club.RoleMember, role)
	assert.Equal(t, int64(5), walletBalance(t, db, "club", created.ID))
}

func TestJoinRequestApprovalBrokeClub_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := club.NewService(db, coin.NewLedger(db), user.NewRepository(db), nil)
	ctx := context.Background()

	ownerID := createTestUser(t, db, "brokeowner@test.com", "BrokeOwner")
	joinerID := createTestUser(t, db, "hopeful@test.com", "Hopeful")
	grantCoins(t, db, "user", ownerID, 20)

	created, err := svc.Create(ctx, ownerID, club.CreateClubRequest{
		Name:            "Empty Pockets",
		Sport:           "tennis",
		LocationName:    "Court B",
		LocationAddress: "Addr",
		IsPrivate:       true,
	})
	require.NoError(t, err)

	outcome, err := svc.Join(ctx, created.ID, joinerID, "")
	require.NoError(t, err)

	// Клубу нечем платить за одобрение
	_, err = svc.ProcessJoinRequest(ctx, created.ID, outcome.Request.ID, ownerID, coin.ActionApprove)

	var insufficient *coin.InsufficientCoinsError
	require.ErrorAs(t, err, &insufficient)

	// Заявка осталась pending, членства нет
	_, err = svc.Repo().GetMemberRole(ctx, created.ID, joinerID)
	require.ErrorIs(t, err, club.ErrNotAMember)

	var status string
	require.NoError(t, db.Get(&status,
		`SELECT status FROM club_join_requests WHERE id = $1`, outcome.Request.ID))
	assert.Equal(t, "pending", status)
}

func TestClubTransfer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	svc := club.NewService(db, coin.NewLedger(db), user.NewRepository(db), nil)
	ctx := context.Background()

	ownerID := createTestUser(t, db, "transferowner@test.com", "TransferOwner")
	memberID := createTestUser(t, db, "generous@test.com", "Generous")
	grantCoins(t, db, "user", ownerID, 50)
	grantCoins(t, db, "user", memberID, 30)

	created, err := svc.Create(ctx, ownerID, club.CreateClubRequest{
		Name:            "Open Club",
		Sport:           "basketball",
		LocationName:    "Gym",
		LocationAddress: "Addr",
	})
	require.NoError(t, err)

	_, err = svc.Join(ctx, created.ID, memberID, "")
	require.NoError(t, err)

	result, err := svc.Transfer(ctx, created.ID, memberID, club.TransferRequest{Amount: 25, Message: "Dues"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.UserBalance)
	assert.Equal(t, int64(25), result.ClubBalance)

	// Не-участник переводить не может
	strangerID := createTestUser(t, db, "stranger@test.com", "Stranger")
	grantCoins(t, db, "user", strangerID, 30)

	_, err = svc.Transfer(ctx, created.ID, strangerID, club.TransferRequest{Amount: 10})
	require.ErrorIs(t, err, club.ErrNotAMember)
}
