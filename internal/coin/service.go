package coin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"clubhub/internal/email"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Notifier posts an in-app notification when a purchase request reaches a
// terminal status. Optional, like the email service.
type Notifier interface {
	PurchaseProcessed(ctx context.Context, userID, requestID int, approved bool, coins int64)
}

// Service owns the purchase-request lifecycle: submission by users and
// approval or rejection by admins. Approval credits the target wallet as one
// unit with the state transition.
type Service struct {
	db       *sqlx.DB
	requests *RequestRepository
	ledger   *Ledger
	email    *email.Service
	notifier Notifier
}

func NewService(db *sqlx.DB, ledger *Ledger, emailService *email.Service) *Service {
	return &Service{
		db:       db,
		requests: NewRequestRepository(db),
		ledger:   ledger,
		email:    emailService,
	}
}

func (s *Service) Ledger() *Ledger              { return s.ledger }
func (s *Service) Requests() *RequestRepository { return s.requests }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SubmitRequest records a pending purchase request. clubID is nil for a
// personal purchase. Package details are snapshotted from the catalog.
func (s *Service) SubmitRequest(ctx context.Context, requesterID int, clubID *int, packageID, paymentMethod string, details Metadata) (*PurchaseRequest, error) {
	pkg, ok := PackageByID(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}
	if !ValidPaymentMethod(paymentMethod) {
		return nil, fmt.Errorf("invalid payment method %q", paymentMethod)
	}

	req := &PurchaseRequest{
		RequesterID:       requesterID,
		ClubID:            clubID,
		PackageID:         pkg.ID,
		PackageName:       pkg.Name,
		PackageCoins:      pkg.Coins,
		PackageBonusCoins: pkg.BonusCoins,
		PackageTotalCoins: pkg.TotalCoins,
		PackagePriceCents: pkg.PriceCents,
		PaymentMethod:     paymentMethod,
		PaymentDetails:    details,
	}

	created, err := s.requests.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.RecordPurchaseRequest(string(StatusPending))
	logger.Info("purchase request submitted",
		"request_id", created.ID,
		"requester_id", requesterID,
		"package", packageID,
	)

	return created, nil
}

// ProcessRequest approves or rejects a pending request. The status flip and
// the wallet credit happen in one database transaction; a concurrent second
// call observes ErrAlreadyProcessed and performs no side effect. Rejection
// requires non-empty notes.
func (s *Service) ProcessRequest(ctx context.Context, requestID, adminID int, action, notes string) (*PurchaseRequest, error) {
	var status RequestStatus
	switch action {
	case ActionApprove:
		status = StatusApproved
	case ActionReject:
		if strings.TrimSpace(notes) == "" {
			return nil, ErrNotesRequired
		}
		status = StatusRejected
	default:
		return nil, ErrInvalidAction
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := s.requests.claimTx(ctx, tx, requestID, status, adminID, notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyClaimFailure(ctx, requestID)
		}
		return nil, err
	}

	if status == StatusApproved {
		owner := UserOwner(req.RequesterID)
		target := "personal wallet"
		meta := Metadata{
			"requestId":     req.ID,
			"packageId":     req.PackageID,
			"priceCents":    req.PackagePriceCents,
			"paymentMethod": req.PaymentMethod,
			"approvedBy":    adminID,
		}
		if req.ClubID != nil {
			owner = ClubOwner(*req.ClubID)
			target = "club wallet"
			meta["clubId"] = *req.ClubID
		}

		reference := fmt.Sprintf("purchase_request:%d", req.ID)
		_, err = s.ledger.CreditTx(ctx, tx, owner, req.PackageTotalCoins, TxAdminApprovedPurchase,
			fmt.Sprintf("Admin approved purchase: %s package", req.PackageName), meta, reference)
		if err != nil {
			return nil, err
		}

		if err := s.requests.setCoinsGrantedTx(ctx, tx, req.ID, req.PackageTotalCoins); err != nil {
			return nil, err
		}
		req.CoinsGranted = req.PackageTotalCoins
		logger.Info("purchase request approved",
			"request_id", req.ID,
			"coins_granted", req.PackageTotalCoins,
			"target", target,
		)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordPurchaseRequest(string(status))
	if status == StatusApproved {
		metrics.RecordCoinTransaction(TxAdminApprovedPurchase, req.PackageTotalCoins)
	}

	s.notifyRequester(ctx, req)
	if s.notifier != nil {
		s.notifier.PurchaseProcessed(ctx, req.RequesterID, req.ID, status == StatusApproved, req.CoinsGranted)
	}

	return req, nil
}

// classifyClaimFailure distinguishes "never existed" from "already processed"
// after a claim came back empty.
func (s *Service) classifyClaimFailure(ctx context.Context, requestID int) error {
	var status RequestStatus
	err := s.db.GetContext(ctx, &status,
		`SELECT status FROM coin_purchase_requests WHERE id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyProcessed
}

func (s *Service) notifyRequester(ctx context.Context, req *PurchaseRequest) {
	if s.email == nil {
		return
	}

	contact, err := s.requests.RequesterContact(ctx, req.ID)
	if err != nil {
		logger.Errorf("Failed to load requester contact for request %d: %v", req.ID, err)
		return
	}

	if err := s.email.SendPurchaseProcessed(ctx, contact.Email, contact.Name, req.PackageName,
		req.Status == StatusApproved, req.CoinsGranted, req.AdminNotes); err != nil {
		logger.Errorf("Failed to queue purchase notification for request %d: %v", req.ID, err)
	}
}
