package chat

import (
	"time"

	"github.com/glowdesk/teamchat/internal/models"
)

// DedupWindow is the default fuzzy-match window for reconciling an
// optimistic local message with its server-confirmed echo.
const DedupWindow = time.Second

// Reconcile merges a confirmed incoming message into an existing list
// without producing duplicates. The incoming message is considered a
// duplicate of an existing entry when either:
//
//   - both carry the same durable id, or
//   - the entries have the same author and body and were created within
//     window of each other (the optimistic echo case, where the local
//     entry still carries only a temporary id).
//
// On a duplicate the existing entry is promoted in place to the incoming
// durable identity and timestamps, preserving list position. Otherwise
// the incoming message is appended. The second return value reports
// whether an append happened.
func Reconcile(existing []models.Message, incoming models.Message, window time.Duration) ([]models.Message, bool) {
	for i := range existing {
		if !matches(existing[i], incoming, window) {
			continue
		}
		local := existing[i].LocalID
		existing[i] = incoming
		existing[i].LocalID = local
		return existing, false
	}
	return append(existing, incoming), true
}

func matches(existing, incoming models.Message, window time.Duration) bool {
	if incoming.ID != 0 && existing.ID == incoming.ID {
		return true
	}
	if existing.SenderID != incoming.SenderID || existing.Body != incoming.Body {
		return false
	}
	delta := existing.CreatedAt.Sub(incoming.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}
