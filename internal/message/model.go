package message

import "time"

// Message types. System and event messages are posted by the server itself;
// users post text and announcements.
const (
	TypeText         = "text"
	TypeSystem       = "system"
	TypeEvent        = "event"
	TypeAnnouncement = "announcement"
)

type Message struct {
	ID        int        `db:"id" json:"id"`
	ClubID    int        `db:"club_id" json:"clubId"`
	UserID    int        `db:"user_id" json:"userId"`
	Content   string     `db:"content" json:"content"`
	Type      string     `db:"type" json:"type"`
	EventID   *int       `db:"event_id" json:"eventId,omitempty"`
	Edited    bool       `db:"edited" json:"edited"`
	EditedAt  *time.Time `db:"edited_at" json:"editedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

type MessageWithUser struct {
	Message
	FirstName  string  `db:"first_name" json:"firstName"`
	LastName   string  `db:"last_name" json:"lastName"`
	ReplyCount int     `db:"reply_count" json:"replyCount"`
	Replies    []Reply `db:"-" json:"replies"`
}

type Reply struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"messageId"`
	UserID    int       `db:"user_id" json:"userId"`
	Content   string    `db:"content" json:"content"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required,max=500"`
	Type    string `json:"type" binding:"omitempty,oneof=text announcement"`
	EventID *int   `json:"eventId"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

type ReplyRequest struct {
	Content string `json:"content" binding:"required,max=200"`
}

// ListFilter narrows the club message board query. Before is a message ID;
// only messages older than it are returned, which lets clients page
// backwards through history.
type ListFilter struct {
	Type   string
	Before int
	Page   int
	Limit  int
}
