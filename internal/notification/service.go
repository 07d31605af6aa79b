package notification

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clubhub/internal/club"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

// Service writes in-app notifications. The Notify* helpers are fire-and-
// forget: a failed insert is logged and never fails the triggering
// operation, same as the email queue.
type Service struct {
	repo  *Repository
	clubs club.Repository
}

func NewService(db *sqlx.DB, clubs club.Repository) *Service {
	return &Service{
		repo:  NewRepository(db),
		clubs: clubs,
	}
}

func (s *Service) Repo() *Repository { return s.repo }

func (s *Service) JoinRequestProcessed(ctx context.Context, userID, clubID int, clubName string, approved bool) {
	notifType := TypeJoinRequestApproved
	title := "Join request approved"
	message := fmt.Sprintf("You are now a member of %s.", clubName)
	if !approved {
		notifType = TypeJoinRequestRejected
		title = "Join request rejected"
		message = fmt.Sprintf("Your request to join %s was not approved.", clubName)
	}

	s.create(ctx, userID, notifType, title, message, Data{"clubId": clubID})
}

func (s *Service) PurchaseProcessed(ctx context.Context, userID, requestID int, approved bool, coins int64) {
	title := "Coin purchase approved"
	message := fmt.Sprintf("%d coins were added to the wallet.", coins)
	if !approved {
		title = "Coin purchase rejected"
		message = "Your coin purchase request was rejected. Check the admin notes for details."
	}

	s.create(ctx, userID, TypeSystem, title, message, Data{"requestId": requestID})
}

// EventPublished fans out to every club member except the organizer, who
// already knows.
func (s *Service) EventPublished(ctx context.Context, eventID, clubID, organizerID int, title, clubName string) {
	members, err := s.clubs.ListMembers(ctx, clubID)
	if err != nil {
		logger.Errorf("Failed to list members of club %d for event notification: %v", clubID, err)
		return
	}

	data := Data{"eventId": eventID, "clubId": clubID}
	for _, m := range members {
		if m.UserID == organizerID {
			continue
		}
		s.create(ctx, m.UserID, TypeEventPublished,
			fmt.Sprintf("New event: %s", title),
			fmt.Sprintf("%s scheduled a new event: %s.", clubName, title),
			data)
	}
}

func (s *Service) EventCancelled(ctx context.Context, eventID, clubID int, title, clubName string) {
	members, err := s.clubs.ListMembers(ctx, clubID)
	if err != nil {
		logger.Errorf("Failed to list members of club %d for cancellation notice: %v", clubID, err)
		return
	}

	data := Data{"eventId": eventID, "clubId": clubID}
	for _, m := range members {
		s.create(ctx, m.UserID, TypeEventCancelled,
			fmt.Sprintf("Event cancelled: %s", title),
			fmt.Sprintf("%s cancelled the event %s.", clubName, title),
			data)
	}
}

func (s *Service) create(ctx context.Context, userID int, notifType, title, message string, data Data) {
	if _, err := s.repo.Create(ctx, userID, notifType, title, message, data); err != nil {
		logger.Errorf("Failed to create %s notification for user %d: %v", notifType, userID, err)
		return
	}
	metrics.RecordNotification(notifType)
}
