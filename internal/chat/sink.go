package chat

import "github.com/glowdesk/teamchat/internal/models"

type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastError ToastLevel = "error"
)

// Sink is the render surface a session pushes into. The websocket
// transport implements it by forwarding frames to the browser; tests use
// an in-memory fake. RenderMessage implies the view scrolls to the new
// entry; PatchMessage does not.
type Sink interface {
	RenderDirectory(groups []models.Group, peers []models.DirectPeer)
	RenderHistory(conv models.Conversation, messages []models.Message, members []models.User)
	RenderMessage(msg models.Message)
	PatchMessage(msg models.Message)
	RollbackMessage(localID string)
	Toast(level ToastLevel, text string)
}
