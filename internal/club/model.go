package club

import "time"

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Club struct {
	ID              int       `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	Sport           string    `db:"sport" json:"sport"`
	LocationName    string    `db:"location_name" json:"locationName"`
	LocationAddress string    `db:"location_address" json:"locationAddress"`
	IsPrivate       bool      `db:"is_private" json:"isPrivate"`
	OwnerID         int       `db:"owner_id" json:"ownerId"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

type ClubWithMemberCount struct {
	Club
	MemberCount int `db:"member_count" json:"memberCount"`
}

type Member struct {
	ID       int       `db:"id" json:"id"`
	ClubID   int       `db:"club_id" json:"clubId"`
	UserID   int       `db:"user_id" json:"userId"`
	Role     string    `db:"role" json:"role"`
	IsActive bool      `db:"is_active" json:"isActive"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}

type MemberWithUser struct {
	Member
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
}

type JoinRequest struct {
	ID          int        `db:"id" json:"id"`
	ClubID      int        `db:"club_id" json:"clubId"`
	UserID      int        `db:"user_id" json:"userId"`
	Message     string     `db:"message" json:"message"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ProcessedAt *time.Time `db:"processed_at" json:"processedAt,omitempty"`
}

type JoinRequestWithUser struct {
	JoinRequest
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
}

type CreateClubRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100"`
	Description     string `json:"description" binding:"max=2000"`
	Sport           string `json:"sport" binding:"required,min=2,max=50"`
	LocationName    string `json:"locationName" binding:"required,max=100"`
	LocationAddress string `json:"locationAddress" binding:"required,max=255"`
	IsPrivate       bool   `json:"isPrivate"`
}

type UpdateClubRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description     *string `json:"description" binding:"omitempty,max=2000"`
	LocationName    *string `json:"locationName" binding:"omitempty,max=100"`
	LocationAddress *string `json:"locationAddress" binding:"omitempty,max=255"`
	IsPrivate       *bool   `json:"isPrivate"`
}

type JoinClubRequest struct {
	Message string `json:"message" binding:"max=200"`
}

type TransferRequest struct {
	Amount  int64  `json:"amount" binding:"required,min=1,max=1000"`
	Message string `json:"message" binding:"max=200"`
}
