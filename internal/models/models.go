package models

import "time"

type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Password    string    `json:"-"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	SalonID     int       `json:"salon_id,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at,omitempty"`
}

// Actor is the authenticated user driving a chat session. SalonID may be
// zero when the identity record carries no salon; callers fall back to a
// membership lookup.
type Actor struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	SalonID     int    `json:"salon_id"`
}

type Group struct {
	ID          int       `json:"id"`
	SalonID     int       `json:"salon_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Private     bool      `json:"private"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	MemberCount int       `json:"member_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DirectPeer is a salon member eligible for 1:1 messaging.
type DirectPeer struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at,omitempty"`
}

type Attachment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Mime string `json:"mime,omitempty"`
}

// Message is a chat message. ID is the durable, store-assigned identifier
// and is zero while the message is provisional; LocalID is the locally
// generated identifier that survives until the durable write confirms.
// Exactly one of GroupID or RecipientID is set, matching the conversation
// variant the message belongs to.
type Message struct {
	ID           int64        `json:"id"`
	LocalID      string       `json:"local_id,omitempty"`
	GroupID      int          `json:"group_id,omitempty"`
	SenderID     int          `json:"sender_id"`
	RecipientID  int          `json:"recipient_id,omitempty"`
	AuthorName   string       `json:"author_name"`
	AuthorAvatar string       `json:"author_avatar,omitempty"`
	Body         string       `json:"body"`
	ReplyToID    int64        `json:"reply_to_id,omitempty"`
	Edited       bool         `json:"edited"`
	Deleted      bool         `json:"deleted"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Provisional reports whether the message has not yet been durably written.
func (m Message) Provisional() bool { return m.ID == 0 }

// Direct reports whether the message belongs to a 1:1 conversation.
func (m Message) Direct() bool { return m.GroupID == 0 }

type Reaction struct {
	MessageID int64     `json:"message_id"`
	UserID    int       `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the denormalized author metadata attached to rendered messages.
type Profile struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
