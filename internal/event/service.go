package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"clubhub/internal/club"
	"clubhub/internal/coin"
	"clubhub/internal/email"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
	"clubhub/internal/user"
)

var (
	ErrStartsInPast       = errors.New("event must start in the future")
	ErrDeadlineAfterStart = errors.New("RSVP deadline must be before the event start")
	ErrNotOrganizer       = errors.New("only the organizer or a club admin can manage this event")
	ErrInvalidTransition  = errors.New("invalid event status transition")
	ErrNotScheduled       = errors.New("only scheduled events can be deleted")
	ErrRSVPClosed         = errors.New("RSVP deadline has passed")
	ErrEventNotOpen       = errors.New("event is not open for RSVPs")
	ErrEventFull          = errors.New("event has reached its participant limit")
)

// Notifier fans event lifecycle changes out to club members as in-app
// notifications. Optional, like the email service.
type Notifier interface {
	EventPublished(ctx context.Context, eventID, clubID, organizerID int, title, clubName string)
	EventCancelled(ctx context.Context, eventID, clubID int, title, clubName string)
}

// Board posts server-generated entries on the club message board.
type Board interface {
	PostEventMessage(ctx context.Context, clubID, eventID, organizerID int, title string) error
}

type Service struct {
	db       *sqlx.DB
	repo     Repository
	clubs    club.Repository
	ledger   *coin.Ledger
	users    *user.Repository
	email    *email.Service
	notifier Notifier
	board    Board
}

func NewService(db *sqlx.DB, clubs club.Repository, ledger *coin.Ledger, users *user.Repository, emailService *email.Service) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		clubs:  clubs,
		ledger: ledger,
		users:  users,
		email:  emailService,
	}
}

func (s *Service) Repo() Repository { return s.repo }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }
func (s *Service) SetBoard(b Board)       { s.board = b }

// Create charges the club the event creation fee and inserts the event in one
// transaction; an underfunded club cannot schedule events. The organizer is
// RSVP'd automatically.
func (s *Service) Create(ctx context.Context, organizerID int, in CreateEventRequest) (*Event, error) {
	c, err := s.clubs.GetClubByID(ctx, in.ClubID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, club.ErrClubInactive
	}

	if _, err := s.clubs.GetMemberRole(ctx, in.ClubID, organizerID); err != nil {
		return nil, err
	}

	now := time.Now()
	if !in.StartsAt.After(now) {
		return nil, ErrStartsInPast
	}
	if !in.RSVPDeadline.Before(in.StartsAt) {
		return nil, ErrDeadlineAfterStart
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.ledger.DebitTx(ctx, tx, coin.ClubOwner(in.ClubID), coin.CostEventCreation,
		coin.TxEventCreation, fmt.Sprintf("Event creation: %s", in.Title),
		coin.Metadata{"event_title": in.Title, "organizer_id": organizerID}, "")
	if err != nil {
		return nil, err
	}

	ev, err := s.repo.CreateTx(ctx, tx, organizerID, in)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if _, err := s.repo.UpsertRSVPTx(ctx, tx, ev.ID, organizerID, RSVPAttending); err != nil {
		return nil, fmt.Errorf("organizer rsvp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.RecordEventCreated(ev.Format)
	metrics.RecordCoinTransaction(coin.TxEventCreation, -coin.CostEventCreation)
	logger.Info("event created",
		"event_id", ev.ID,
		"club_id", ev.ClubID,
		"organizer_id", organizerID,
		"starts_at", ev.StartsAt,
	)

	if s.board != nil {
		if err := s.board.PostEventMessage(ctx, ev.ClubID, ev.ID, organizerID, ev.Title); err != nil {
			logger.Errorf("Failed to post board message for event %d: %v", ev.ID, err)
		}
	}
	if s.notifier != nil {
		s.notifier.EventPublished(ctx, ev.ID, ev.ClubID, organizerID, ev.Title, c.Name)
	}

	return ev, nil
}

func (s *Service) Update(ctx context.Context, eventID, callerID int, in UpdateEventRequest) (*Event, error) {
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, ev, callerID); err != nil {
		return nil, err
	}

	startsAt := ev.StartsAt
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
		if !startsAt.After(time.Now()) {
			return nil, ErrStartsInPast
		}
	}
	deadline := ev.RSVPDeadline
	if in.RSVPDeadline != nil {
		deadline = *in.RSVPDeadline
	}
	if !deadline.Before(startsAt) {
		return nil, ErrDeadlineAfterStart
	}

	return s.repo.Update(ctx, eventID, in)
}

// UpdateStatus walks the event through its lifecycle. Allowed moves are
// scheduled→in_progress, in_progress→completed and scheduled→cancelled.
func (s *Service) UpdateStatus(ctx context.Context, eventID, callerID int, to string) (*Event, error) {
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, ev, callerID); err != nil {
		return nil, err
	}

	if !canTransition(ev.Status, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, eventID, ev.Status, to); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	logger.Info("event status updated",
		"event_id", eventID,
		"from", ev.Status,
		"to", to,
		"by", callerID,
	)

	if to == StatusCancelled && s.notifier != nil {
		clubName := ""
		if c, cerr := s.clubs.GetClubByID(ctx, ev.ClubID); cerr == nil {
			clubName = c.Name
		}
		s.notifier.EventCancelled(ctx, eventID, ev.ClubID, ev.Title, clubName)
	}

	return s.repo.GetByID(ctx, eventID)
}

// Delete removes a scheduled event. Only the organizer can delete; cancelled
// or started events stay on record.
func (s *Service) Delete(ctx context.Context, eventID, callerID int) error {
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.OrganizerID != callerID {
		return ErrNotOrganizer
	}
	if ev.Status != StatusScheduled {
		return ErrNotScheduled
	}
	return s.repo.Delete(ctx, eventID)
}

// RSVP records the caller's attendance answer. Attending is capacity-checked;
// switching to declined frees the spot.
func (s *Service) RSVP(ctx context.Context, eventID, userID int, status string) (*RSVP, error) {
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != StatusScheduled {
		return nil, ErrEventNotOpen
	}
	if time.Now().After(ev.RSVPDeadline) {
		return nil, ErrRSVPClosed
	}

	if _, err := s.clubs.GetMemberRole(ctx, ev.ClubID, userID); err != nil {
		return nil, err
	}

	if status == RSVPAttending {
		attending, err := s.repo.AttendingCount(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if attending >= ev.MaxParticipants {
			return nil, ErrEventFull
		}
	}

	rsvp, err := s.repo.UpsertRSVP(ctx, eventID, userID, status)
	if err != nil {
		return nil, fmt.Errorf("save rsvp: %w", err)
	}

	metrics.RecordRSVP(status)
	if status == RSVPAttending {
		s.notifyAttendee(ctx, ev, userID)
	}

	return rsvp, nil
}

func (s *Service) CancelRSVP(ctx context.Context, eventID, userID int) error {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return err
	}
	return s.repo.DeleteRSVP(ctx, eventID, userID)
}

func (s *Service) requireManager(ctx context.Context, ev *Event, callerID int) error {
	if ev.OrganizerID == callerID {
		return nil
	}
	role, err := s.clubs.GetMemberRole(ctx, ev.ClubID, callerID)
	if err != nil {
		if errors.Is(err, club.ErrNotAMember) {
			return ErrNotOrganizer
		}
		return err
	}
	if role != club.RoleOwner && role != club.RoleAdmin {
		return ErrNotOrganizer
	}
	return nil
}

func (s *Service) notifyAttendee(ctx context.Context, ev *Event, userID int) {
	if s.email == nil {
		return
	}

	u, err := s.users.FindByID(userID)
	if err != nil {
		logger.Errorf("Failed to load user %d for RSVP notification: %v", userID, err)
		return
	}

	c, err := s.clubs.GetClubByID(ctx, ev.ClubID)
	if err != nil {
		logger.Errorf("Failed to load club %d for RSVP notification: %v", ev.ClubID, err)
		return
	}

	if err := s.email.SendRSVPConfirmation(ctx, u.Email, u.FullName(), ev.Title, c.Name, ev.StartsAt); err != nil {
		logger.Errorf("Failed to queue RSVP confirmation for event %d: %v", ev.ID, err)
	}
}
