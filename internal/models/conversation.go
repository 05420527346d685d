package models

import "fmt"

// ConversationKind discriminates the two conversation variants. Consumers
// switch exhaustively on it; a zero Kind means "nothing selected".
type ConversationKind int

const (
	ConversationNone ConversationKind = iota
	ConversationGroup
	ConversationDirect
)

func (k ConversationKind) String() string {
	switch k {
	case ConversationNone:
		return "none"
	case ConversationGroup:
		return "group"
	case ConversationDirect:
		return "direct"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Conversation is a tagged union over Group and DirectPeer. Exactly one of
// Group/Peer is non-nil, matching Kind.
type Conversation struct {
	Kind  ConversationKind `json:"kind"`
	Group *Group           `json:"group,omitempty"`
	Peer  *DirectPeer      `json:"peer,omitempty"`
}

func GroupConversation(g Group) Conversation {
	return Conversation{Kind: ConversationGroup, Group: &g}
}

func DirectConversation(p DirectPeer) Conversation {
	return Conversation{Kind: ConversationDirect, Peer: &p}
}

// Selected reports whether the conversation refers to anything at all.
func (c Conversation) Selected() bool { return c.Kind != ConversationNone }

// Title returns the display name for the conversation header.
func (c Conversation) Title() string {
	switch c.Kind {
	case ConversationGroup:
		return c.Group.Name
	case ConversationDirect:
		return c.Peer.DisplayName
	default:
		return ""
	}
}

// Contains reports whether the message belongs to this conversation from
// the point of view of actorID. For direct conversations the sender and
// recipient must be exactly {actor, peer} in some order.
func (c Conversation) Contains(m Message, actorID int) bool {
	switch c.Kind {
	case ConversationGroup:
		return m.GroupID == c.Group.ID
	case ConversationDirect:
		if !m.Direct() {
			return false
		}
		return (m.SenderID == actorID && m.RecipientID == c.Peer.ID) ||
			(m.SenderID == c.Peer.ID && m.RecipientID == actorID)
	default:
		return false
	}
}

// EventKind tags realtime events pushed by the broker.
type EventKind int

const (
	EventInserted EventKind = iota + 1
	EventUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventInserted:
		return "inserted"
	case EventUpdated:
		return "updated"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a realtime notification about a durably written message.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}
