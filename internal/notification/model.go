package notification

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	TypeJoinRequestApproved = "join-request-approved"
	TypeJoinRequestRejected = "join-request-rejected"
	TypeEventPublished      = "event-published"
	TypeEventCancelled      = "event-cancelled"
	TypeNewMemberJoined     = "new-member-joined"
	TypeSystem              = "system"
)

type Notification struct {
	ID        int        `db:"id" json:"id"`
	UserID    int        `db:"user_id" json:"userId"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Data      Data       `db:"data" json:"data"`
	IsRead    bool       `db:"is_read" json:"isRead"`
	ReadAt    *time.Time `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Data carries notification context (club id, event id, ...) as JSONB.
type Data map[string]interface{}

func (d Data) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func (d *Data) Scan(src interface{}) error {
	if src == nil {
		*d = Data{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("notification data: unsupported scan type")
	}
	return json.Unmarshal(b, d)
}
