// Package ws is the websocket transport for the chat modal. Each
// connection owns one chat.Session; the hub only tracks connected
// clients for directory-level notifications (invites, new groups) and
// presence. Message delivery flows through the realtime broker, not the
// hub.
package ws

import (
	"encoding/json"

	"github.com/glowdesk/teamchat/internal/logging"
)

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Out-of-band notifications addressed to a single user.
	notify chan notification
}

type notification struct {
	userID  int
	payload any
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan notification),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case n := <-h.notify:
			msgBytes, err := json.Marshal(n.payload)
			if err != nil {
				logging.L().Error().Err(err).Msg("notification marshal failed")
				continue
			}
			for client := range h.clients {
				if client.userID != n.userID {
					continue
				}
				select {
				case client.send <- msgBytes:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// SendNotification pushes an out-of-band payload to every connection the
// user has open.
func (h *Hub) SendNotification(userID int, payload any) {
	h.notify <- notification{userID: userID, payload: payload}
}
