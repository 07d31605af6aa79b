package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clubhub/internal/club"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

var (
	ErrNotAuthor   = errors.New("only the author can edit this message")
	ErrNotEditable = errors.New("only text messages can be edited")
	ErrNotAllowed  = errors.New("only the author or a club admin can delete this message")
)

// Service owns the club message board. Every read and write is scoped to
// club members; deletes are soft so the moderation trail survives.
type Service struct {
	db    *sqlx.DB
	repo  Repository
	clubs club.Repository
}

func NewService(db *sqlx.DB, clubs club.Repository) *Service {
	return &Service{
		db:    db,
		repo:  NewRepository(db),
		clubs: clubs,
	}
}

func (s *Service) Repo() Repository { return s.repo }

// ListForClub returns a page of the club board, newest first, with replies
// attached. Members only.
func (s *Service) ListForClub(ctx context.Context, clubID, callerID int, f ListFilter) ([]MessageWithUser, int, error) {
	if _, err := s.clubs.GetMemberRole(ctx, clubID, callerID); err != nil {
		return nil, 0, err
	}

	messages, total, err := s.repo.ListForClub(ctx, clubID, f)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int, 0, len(messages))
	for i := range messages {
		messages[i].Replies = []Reply{}
		ids = append(ids, messages[i].ID)
	}

	replies, err := s.repo.RepliesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	byMessage := map[int]int{}
	for i := range messages {
		byMessage[messages[i].ID] = i
	}
	for _, reply := range replies {
		if i, ok := byMessage[reply.MessageID]; ok {
			messages[i].Replies = append(messages[i].Replies, reply)
		}
	}

	return messages, total, nil
}

// Post publishes a text or announcement message on the club board.
func (s *Service) Post(ctx context.Context, clubID, userID int, in PostMessageRequest) (*MessageWithUser, error) {
	c, err := s.clubs.GetClubByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, club.ErrClubInactive
	}
	if _, err := s.clubs.GetMemberRole(ctx, clubID, userID); err != nil {
		return nil, err
	}

	msgType := in.Type
	if msgType == "" {
		msgType = TypeText
	}

	m, err := s.repo.Create(ctx, clubID, userID, in.Content, msgType, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	metrics.RecordMessagePosted(msgType)
	logger.Info("club message posted",
		"message_id", m.ID,
		"club_id", clubID,
		"user_id", userID,
		"type", msgType,
	)

	return s.repo.GetWithUser(ctx, m.ID)
}

// PostEventMessage drops a server-generated board entry when an event is
// published, attributed to the organizer, so members see it without opening
// the events page.
func (s *Service) PostEventMessage(ctx context.Context, clubID, eventID, organizerID int, title string) error {
	_, err := s.repo.Create(ctx, clubID, organizerID, fmt.Sprintf("New event: %s", title), TypeEvent, &eventID)
	if err != nil {
		return err
	}
	metrics.RecordMessagePosted(TypeEvent)
	return nil
}

// Edit replaces the content of the caller's own text message.
func (s *Service) Edit(ctx context.Context, messageID, callerID int, content string) (*MessageWithUser, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.UserID != callerID {
		return nil, ErrNotAuthor
	}
	if m.Type != TypeText {
		return nil, ErrNotEditable
	}

	if _, err := s.repo.UpdateContent(ctx, messageID, content); err != nil {
		return nil, err
	}
	return s.repo.GetWithUser(ctx, messageID)
}

// Delete soft-deletes a message. The author may always delete their own;
// club owner and admins may moderate anything on the board.
func (s *Service) Delete(ctx context.Context, messageID, callerID int) error {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	if m.UserID != callerID {
		role, err := s.clubs.GetMemberRole(ctx, m.ClubID, callerID)
		if err != nil {
			if errors.Is(err, club.ErrNotAMember) {
				return ErrNotAllowed
			}
			return err
		}
		if role != club.RoleOwner && role != club.RoleAdmin {
			return ErrNotAllowed
		}
	}

	if err := s.repo.SoftDelete(ctx, messageID, callerID); err != nil {
		return err
	}

	logger.Info("club message deleted",
		"message_id", messageID,
		"club_id", m.ClubID,
		"by", callerID,
	)
	return nil
}

// Reply attaches a short reply to a board message. Members only.
func (s *Service) Reply(ctx context.Context, messageID, callerID int, content string) (*Reply, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.clubs.GetMemberRole(ctx, m.ClubID, callerID); err != nil {
		return nil, err
	}
	return s.repo.CreateReply(ctx, messageID, callerID, content)
}
