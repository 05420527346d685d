package chat

import (
	"strings"

	"github.com/glowdesk/teamchat/internal/models"
)

// GroupTypeFilter selects which group privacy variants pass the directory
// filter. The zero value allows both.
type GroupTypeFilter uint8

const (
	FilterPrivate GroupTypeFilter = 1 << iota
	FilterPublic
)

func (f GroupTypeFilter) allows(private bool) bool {
	if f == 0 {
		return true
	}
	if private {
		return f&FilterPrivate != 0
	}
	return f&FilterPublic != 0
}

// FilterConversations narrows the directory by a case-insensitive
// substring match: groups on name/description, peers on name/email.
// Pure and synchronous; no I/O.
func FilterConversations(groups []models.Group, peers []models.DirectPeer, query string, types GroupTypeFilter) []models.Conversation {
	q := strings.ToLower(strings.TrimSpace(query))

	var out []models.Conversation
	for _, g := range groups {
		if !types.allows(g.Private) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(g.Name), q) &&
			!strings.Contains(strings.ToLower(g.Description), q) {
			continue
		}
		out = append(out, models.GroupConversation(g))
	}
	for _, p := range peers {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), q) &&
			!strings.Contains(strings.ToLower(p.Email), q) {
			continue
		}
		out = append(out, models.DirectConversation(p))
	}
	return out
}
