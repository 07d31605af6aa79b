package event

import "time"

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	RSVPAttending = "attending"
	RSVPDeclined  = "declined"
)

// validTransitions holds the allowed status moves. Everything else is
// rejected, including reviving a cancelled event.
var validTransitions = map[string][]string{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func canTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Event struct {
	ID              int       `db:"id" json:"id"`
	ClubID          int       `db:"club_id" json:"clubId"`
	OrganizerID     int       `db:"organizer_id" json:"organizerId"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	StartsAt        time.Time `db:"starts_at" json:"startsAt"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
	LocationName    string    `db:"location_name" json:"locationName"`
	LocationAddress string    `db:"location_address" json:"locationAddress"`
	Format          string    `db:"format" json:"format"`
	MaxParticipants int       `db:"max_participants" json:"maxParticipants"`
	RSVPDeadline    time.Time `db:"rsvp_deadline" json:"rsvpDeadline"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

type EventWithCounts struct {
	Event
	ClubName       string `db:"club_name" json:"clubName"`
	AttendingCount int    `db:"attending_count" json:"attendingCount"`
}

type RSVP struct {
	ID        int       `db:"id" json:"id"`
	EventID   int       `db:"event_id" json:"eventId"`
	UserID    int       `db:"user_id" json:"userId"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type RSVPWithUser struct {
	RSVP
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
}

type CreateEventRequest struct {
	ClubID          int       `json:"clubId" binding:"required"`
	Title           string    `json:"title" binding:"required,min=2,max=100"`
	Description     string    `json:"description" binding:"max=2000"`
	StartsAt        time.Time `json:"startsAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required,min=15,max=720"`
	LocationName    string    `json:"locationName" binding:"required,max=100"`
	LocationAddress string    `json:"locationAddress" binding:"required,max=255"`
	Format          string    `json:"format" binding:"required,oneof=open_play singles doubles tournament training social"`
	MaxParticipants int       `json:"maxParticipants" binding:"required,min=2,max=500"`
	RSVPDeadline    time.Time `json:"rsvpDeadline" binding:"required"`
}

type UpdateEventRequest struct {
	Title           *string    `json:"title" binding:"omitempty,min=2,max=100"`
	Description     *string    `json:"description" binding:"omitempty,max=2000"`
	StartsAt        *time.Time `json:"startsAt"`
	DurationMinutes *int       `json:"durationMinutes" binding:"omitempty,min=15,max=720"`
	LocationName    *string    `json:"locationName" binding:"omitempty,max=100"`
	LocationAddress *string    `json:"locationAddress" binding:"omitempty,max=255"`
	MaxParticipants *int       `json:"maxParticipants" binding:"omitempty,min=2,max=500"`
	RSVPDeadline    *time.Time `json:"rsvpDeadline"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=in_progress completed cancelled"`
}

type RSVPRequest struct {
	Status string `json:"status" binding:"required,oneof=attending declined"`
}
