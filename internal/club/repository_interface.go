package club

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateClubTx(ctx context.Context, tx *sqlx.Tx, ownerID int, in CreateClubRequest) (*Club, error)
	GetClubByID(ctx context.Context, id int) (*Club, error)
	UpdateClub(ctx context.Context, id int, in UpdateClubRequest) (*Club, error)
	DeactivateClub(ctx context.Context, id int) error
	BrowseClubs(ctx context.Context, sport, search string, page, limit int) ([]ClubWithMemberCount, int, error)
	ListClubsForUser(ctx context.Context, userID int) ([]Club, error)

	AddMember(ctx context.Context, clubID, userID int, role string) (*Member, error)
	AddMemberTx(ctx context.Context, tx *sqlx.Tx, clubID, userID int, role string) (*Member, error)
	GetMemberRole(ctx context.Context, clubID, userID int) (string, error)
	RemoveMember(ctx context.Context, clubID, userID int) error
	UpdateMemberRole(ctx context.Context, clubID, userID int, role string) error
	ListMembers(ctx context.Context, clubID int) ([]MemberWithUser, error)

	CreateJoinRequest(ctx context.Context, clubID, userID int, message string) (*JoinRequest, error)
	HasPendingJoinRequest(ctx context.Context, clubID, userID int) (bool, error)
	ListJoinRequests(ctx context.Context, clubID int) ([]JoinRequestWithUser, error)
	ClaimJoinRequestTx(ctx context.Context, tx *sqlx.Tx, requestID int, status string) (*JoinRequest, error)
}
