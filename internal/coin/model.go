package coin

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type OwnerType string

const (
	OwnerUser OwnerType = "user"
	OwnerClub OwnerType = "club"
)

// WalletOwner identifies the user or club a wallet belongs to.
type WalletOwner struct {
	Type OwnerType
	ID   int
}

func UserOwner(userID int) WalletOwner { return WalletOwner{Type: OwnerUser, ID: userID} }
func ClubOwner(clubID int) WalletOwner { return WalletOwner{Type: OwnerClub, ID: clubID} }

// Wallet — кошелёк пользователя или клуба. balance = total_earned - total_spent.
type Wallet struct {
	ID                int        `db:"id" json:"id"`
	OwnerType         OwnerType  `db:"owner_type" json:"owner_type"`
	OwnerID           int        `db:"owner_id" json:"owner_id"`
	Balance           int64      `db:"balance" json:"balance"`
	TotalEarned       int64      `db:"total_earned" json:"totalEarned"`
	TotalSpent        int64      `db:"total_spent" json:"totalSpent"`
	LastTransactionAt *time.Time `db:"last_transaction_at" json:"lastTransactionAt"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Transaction types mirrored from the coin economy.
const (
	TxAdminApprovedPurchase = "admin_approved_purchase"
	TxAdminGrant            = "admin_grant"
	TxClubTransfer          = "club_transfer"
	TxTransferReceived      = "transfer_received"
	TxClubCreation          = "club_creation"
	TxEventCreation         = "event_creation"
	TxMemberApproval        = "member_approval"
	TxRefund                = "refund"
)

// Transaction is an immutable ledger entry. Amount is signed: positive for
// credits, negative for debits. BalanceAfter is the wallet balance once the
// transaction was applied.
type Transaction struct {
	ID           int       `db:"id" json:"id"`
	WalletID     int       `db:"wallet_id" json:"wallet_id"`
	Type         string    `db:"type" json:"type"`
	Amount       int64     `db:"amount" json:"amount"`
	BalanceAfter int64     `db:"balance_after" json:"balanceAfter"`
	Description  string    `db:"description" json:"description"`
	Metadata     Metadata  `db:"metadata" json:"metadata"`
	Status       string    `db:"status" json:"status"`
	Reference    *string   `db:"reference" json:"reference,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Metadata is a free-form JSONB column on ledger entries.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("metadata: unsupported scan type")
	}
	return json.Unmarshal(b, m)
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether a request in this status can no longer transition.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PurchaseRequest is a user-submitted, admin-adjudicated request to convert
// an off-platform payment into coins. Package details are snapshotted at
// submission time so later catalog changes cannot alter the grant.
type PurchaseRequest struct {
	ID                int           `db:"id" json:"id"`
	RequesterID       int           `db:"requester_id" json:"requesterId"`
	ClubID            *int          `db:"club_id" json:"clubId,omitempty"`
	PackageID         string        `db:"package_id" json:"packageId"`
	PackageName       string        `db:"package_name" json:"packageName"`
	PackageCoins      int64         `db:"package_coins" json:"packageCoins"`
	PackageBonusCoins int64         `db:"package_bonus_coins" json:"packageBonusCoins"`
	PackageTotalCoins int64         `db:"package_total_coins" json:"packageTotalCoins"`
	PackagePriceCents int64         `db:"package_price_cents" json:"packagePriceCents"`
	PaymentMethod     string        `db:"payment_method" json:"paymentMethod"`
	PaymentDetails    Metadata      `db:"payment_details" json:"paymentDetails"`
	Status            RequestStatus `db:"status" json:"status"`
	AdminNotes        string        `db:"admin_notes" json:"adminNotes"`
	ProcessedBy       *int          `db:"processed_by" json:"processedBy,omitempty"`
	ProcessedAt       *time.Time    `db:"processed_at" json:"processedAt,omitempty"`
	CoinsGranted      int64         `db:"coins_granted" json:"coinsGranted"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// PurchaseRequestWithNames carries requester and club display fields for the
// admin dashboard list.
type PurchaseRequestWithNames struct {
	PurchaseRequest
	RequesterName  string  `db:"requester_name" json:"requesterName"`
	RequesterEmail string  `db:"requester_email" json:"requesterEmail"`
	ClubName       *string `db:"club_name" json:"clubName,omitempty"`
}

// Fixed coin costs for gated operations.
const (
	CostClubCreation   int64 = 20
	CostEventCreation  int64 = 10
	CostMemberApproval int64 = 5
)
