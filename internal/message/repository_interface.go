package message

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, clubID, userID int, content, msgType string, eventID *int) (*Message, error)
	GetByID(ctx context.Context, id int) (*Message, error)
	GetWithUser(ctx context.Context, id int) (*MessageWithUser, error)
	ListForClub(ctx context.Context, clubID int, f ListFilter) ([]MessageWithUser, int, error)
	UpdateContent(ctx context.Context, id int, content string) (*Message, error)
	SoftDelete(ctx context.Context, id, deletedBy int) error

	RepliesFor(ctx context.Context, messageIDs []int) ([]Reply, error)
	CreateReply(ctx context.Context, messageID, userID int, content string) (*Reply, error)
}
