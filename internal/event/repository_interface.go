package event

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, organizerID int, in CreateEventRequest) (*Event, error)
	GetByID(ctx context.Context, id int) (*Event, error)
	GetWithCounts(ctx context.Context, id int) (*EventWithCounts, error)
	List(ctx context.Context, clubID int, upcomingOnly bool, page, limit int) ([]EventWithCounts, int, error)
	Update(ctx context.Context, id int, in UpdateEventRequest) (*Event, error)
	UpdateStatus(ctx context.Context, id int, from, to string) error
	Delete(ctx context.Context, id int) error

	UpsertRSVP(ctx context.Context, eventID, userID int, status string) (*RSVP, error)
	UpsertRSVPTx(ctx context.Context, tx *sqlx.Tx, eventID, userID int, status string) (*RSVP, error)
	DeleteRSVP(ctx context.Context, eventID, userID int) error
	ListRSVPs(ctx context.Context, eventID int) ([]RSVPWithUser, error)
	AttendingCount(ctx context.Context, eventID int) (int, error)
}
