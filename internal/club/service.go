package club

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clubhub/internal/coin"
	"clubhub/internal/email"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
	"clubhub/internal/user"
)

var (
	ErrNotAuthorized    = errors.New("insufficient permissions for this club")
	ErrAlreadyMember    = errors.New("user is already a member of this club")
	ErrPendingRequest   = errors.New("a pending join request already exists")
	ErrClubInactive     = errors.New("club is not active")
	ErrOwnerCannotLeave = errors.New("club owner cannot leave the club")
	ErrCannotTouchOwner = errors.New("club owner cannot be removed or demoted")
)

// JoinOutcome tells the caller whether joining happened immediately or a
// request was queued for approval.
type JoinOutcome struct {
	Member  *Member      `json:"member,omitempty"`
	Request *JoinRequest `json:"request,omitempty"`
}

// Notifier posts in-app notifications for membership events. Optional, like
// the email service.
type Notifier interface {
	JoinRequestProcessed(ctx context.Context, userID, clubID int, clubName string, approved bool)
}

type Service struct {
	db       *sqlx.DB
	repo     Repository
	ledger   *coin.Ledger
	users    *user.Repository
	email    *email.Service
	notifier Notifier
}

func NewService(db *sqlx.DB, ledger *coin.Ledger, users *user.Repository, emailService *email.Service) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		ledger: ledger,
		users:  users,
		email:  emailService,
	}
}

func (s *Service) Repo() Repository { return s.repo }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Create charges the club creation fee and registers the club, its owner
// membership and its wallet in one transaction. If the creator cannot afford
// the fee nothing is written.
func (s *Service) Create(ctx context.Context, ownerID int, in CreateClubRequest) (*Club, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.ledger.DebitTx(ctx, tx, coin.UserOwner(ownerID), coin.CostClubCreation,
		coin.TxClubCreation, fmt.Sprintf("Club creation: %s", in.Name),
		coin.Metadata{"club_name": in.Name}, "")
	if err != nil {
		return nil, err
	}

	club, err := s.repo.CreateClubTx(ctx, tx, ownerID, in)
	if err != nil {
		return nil, fmt.Errorf("create club: %w", err)
	}

	if _, err := s.repo.AddMemberTx(ctx, tx, club.ID, ownerID, RoleOwner); err != nil {
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	if err := s.ledger.EnsureWalletTx(ctx, tx, coin.ClubOwner(club.ID)); err != nil {
		return nil, fmt.Errorf("create club wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.RecordClubCreated()
	metrics.RecordCoinTransaction(coin.TxClubCreation, -coin.CostClubCreation)
	logger.Info("club created",
		"club_id", club.ID,
		"owner_id", ownerID,
		"name", club.Name,
	)

	return club, nil
}

func (s *Service) Update(ctx context.Context, clubID, callerID int, in UpdateClubRequest) (*Club, error) {
	if err := s.requireRole(ctx, clubID, callerID, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.UpdateClub(ctx, clubID, in)
}

func (s *Service) Deactivate(ctx context.Context, clubID, callerID int) error {
	if err := s.requireRole(ctx, clubID, callerID, RoleOwner); err != nil {
		return err
	}
	if err := s.repo.DeactivateClub(ctx, clubID); err != nil {
		return err
	}
	logger.Info("club deactivated", "club_id", clubID, "by", callerID)
	return nil
}

// Join adds the user directly for public clubs; for private clubs it queues a
// join request for the club admins to review.
func (s *Service) Join(ctx context.Context, clubID, userID int, message string) (*JoinOutcome, error) {
	club, err := s.repo.GetClubByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if !club.IsActive {
		return nil, ErrClubInactive
	}

	if _, err := s.repo.GetMemberRole(ctx, clubID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotAMember) {
		return nil, err
	}

	if !club.IsPrivate {
		member, err := s.repo.AddMember(ctx, clubID, userID, RoleMember)
		if err != nil {
			return nil, fmt.Errorf("add member: %w", err)
		}
		return &JoinOutcome{Member: member}, nil
	}

	pending, err := s.repo.HasPendingJoinRequest(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingRequest
	}

	req, err := s.repo.CreateJoinRequest(ctx, clubID, userID, message)
	if err != nil {
		return nil, fmt.Errorf("create join request: %w", err)
	}
	return &JoinOutcome{Request: req}, nil
}

// ProcessJoinRequest approves or rejects a pending join request. Approval
// charges the club wallet the member approval fee and adds the member in the
// same transaction, so a broke club cannot accept new members.
func (s *Service) ProcessJoinRequest(ctx context.Context, clubID, requestID, adminID int, action string) (*JoinRequest, error) {
	if action != coin.ActionApprove && action != coin.ActionReject {
		return nil, coin.ErrInvalidAction
	}
	if err := s.requireRole(ctx, clubID, adminID, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}

	club, err := s.repo.GetClubByID(ctx, clubID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	status := "approved"
	if action == coin.ActionReject {
		status = "rejected"
	}

	req, err := s.repo.ClaimJoinRequestTx(ctx, tx, requestID, status)
	if err != nil {
		return nil, err
	}
	if req.ClubID != clubID {
		return nil, ErrJoinRequestNotFound
	}

	if action == coin.ActionApprove {
		_, err = s.ledger.DebitTx(ctx, tx, coin.ClubOwner(clubID), coin.CostMemberApproval,
			coin.TxMemberApproval, "New member approval",
			coin.Metadata{"user_id": req.UserID, "request_id": req.ID}, "")
		if err != nil {
			return nil, err
		}

		if _, err := s.repo.AddMemberTx(ctx, tx, clubID, req.UserID, RoleMember); err != nil {
			return nil, fmt.Errorf("add member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if action == coin.ActionApprove {
		metrics.RecordCoinTransaction(coin.TxMemberApproval, -coin.CostMemberApproval)
	}
	logger.Info("join request processed",
		"request_id", req.ID,
		"club_id", clubID,
		"status", req.Status,
		"processed_by", adminID,
	)

	s.notifyJoinRequester(ctx, req, club.Name)
	if s.notifier != nil {
		s.notifier.JoinRequestProcessed(ctx, req.UserID, clubID, club.Name, req.Status == "approved")
	}

	return req, nil
}

func (s *Service) Leave(ctx context.Context, clubID, userID int) error {
	role, err := s.repo.GetMemberRole(ctx, clubID, userID)
	if err != nil {
		return err
	}
	if role == RoleOwner {
		return ErrOwnerCannotLeave
	}
	return s.repo.RemoveMember(ctx, clubID, userID)
}

func (s *Service) RemoveMember(ctx context.Context, clubID, callerID, targetID int) error {
	if err := s.requireRole(ctx, clubID, callerID, RoleOwner, RoleAdmin); err != nil {
		return err
	}
	targetRole, err := s.repo.GetMemberRole(ctx, clubID, targetID)
	if err != nil {
		return err
	}
	if targetRole == RoleOwner {
		return ErrCannotTouchOwner
	}
	return s.repo.RemoveMember(ctx, clubID, targetID)
}

func (s *Service) UpdateMemberRole(ctx context.Context, clubID, callerID, targetID int, role string) error {
	if role != RoleAdmin && role != RoleMember {
		return fmt.Errorf("invalid member role %q", role)
	}
	if err := s.requireRole(ctx, clubID, callerID, RoleOwner); err != nil {
		return err
	}
	targetRole, err := s.repo.GetMemberRole(ctx, clubID, targetID)
	if err != nil {
		return err
	}
	if targetRole == RoleOwner {
		return ErrCannotTouchOwner
	}
	return s.repo.UpdateMemberRole(ctx, clubID, targetID, role)
}

// Transfer moves coins from the caller's personal wallet into the club
// wallet. Only members can donate.
func (s *Service) Transfer(ctx context.Context, clubID, userID int, in TransferRequest) (*coin.TransferResult, error) {
	if _, err := s.repo.GetMemberRole(ctx, clubID, userID); err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, userID, clubID, in.Amount, in.Message)
}

// Wallet returns the club wallet; any active member may view the balance.
func (s *Service) Wallet(ctx context.Context, clubID, callerID int) (*coin.Wallet, error) {
	if _, err := s.repo.GetMemberRole(ctx, clubID, callerID); err != nil {
		return nil, err
	}
	return s.ledger.GetOrCreateWallet(ctx, coin.ClubOwner(clubID))
}

// Transactions lists the club ledger history; restricted to owner and admins.
func (s *Service) Transactions(ctx context.Context, clubID, callerID, page, limit int) ([]coin.Transaction, int, error) {
	if err := s.requireRole(ctx, clubID, callerID, RoleOwner, RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.ledger.Transactions(ctx, coin.ClubOwner(clubID), page, limit)
}

func (s *Service) requireRole(ctx context.Context, clubID, userID int, roles ...string) error {
	role, err := s.repo.GetMemberRole(ctx, clubID, userID)
	if err != nil {
		return err
	}
	for _, allowed := range roles {
		if role == allowed {
			return nil
		}
	}
	return ErrNotAuthorized
}

func (s *Service) notifyJoinRequester(ctx context.Context, req *JoinRequest, clubName string) {
	if s.email == nil {
		return
	}

	u, err := s.users.FindByID(req.UserID)
	if err != nil {
		logger.Errorf("Failed to load user %d for join request notification: %v", req.UserID, err)
		return
	}

	if err := s.email.SendJoinRequestResult(ctx, u.Email, u.FullName(), clubName, req.Status == "approved"); err != nil {
		logger.Errorf("Failed to queue join request notification for request %d: %v", req.ID, err)
	}
}
