package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glowdesk/teamchat/internal/chat"
	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/realtime"
	"github.com/glowdesk/teamchat/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// clientFrame is what the browser sends.
type clientFrame struct {
	Type    string   `json:"type"`
	Kind    string   `json:"kind,omitempty"`
	ID      int      `json:"id,omitempty"`
	Message int64    `json:"message_id,omitempty"`
	Body    string   `json:"body,omitempty"`
	ReplyTo int64    `json:"reply_to,omitempty"`
	Emoji   string   `json:"emoji,omitempty"`
	Query   string   `json:"query,omitempty"`
	Types   []string `json:"types,omitempty"`
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  int
	session *chat.Session
}

// wsSink renders session output as JSON frames on the client's send
// channel.
type wsSink struct {
	c *Client
}

func (s wsSink) push(payload any) {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		logging.L().Error().Err(err).Msg("frame marshal failed")
		return
	}
	select {
	case s.c.send <- msgBytes:
	default:
		// Slow consumer; the write pump will tear the connection down.
	}
}

func (s wsSink) RenderDirectory(groups []models.Group, peers []models.DirectPeer) {
	s.push(map[string]any{"type": "directory", "groups": groups, "peers": peers})
}

func (s wsSink) RenderHistory(conv models.Conversation, messages []models.Message, members []models.User) {
	s.push(map[string]any{"type": "history", "conversation": conv, "messages": messages, "members": members})
}

func (s wsSink) RenderMessage(msg models.Message) {
	s.push(map[string]any{"type": "message", "message": msg})
}

func (s wsSink) PatchMessage(msg models.Message) {
	s.push(map[string]any{"type": "patch", "message": msg})
}

func (s wsSink) RollbackMessage(localID string) {
	s.push(map[string]any{"type": "rollback", "local_id": localID})
}

func (s wsSink) Toast(level chat.ToastLevel, text string) {
	s.push(map[string]any{"type": "toast", "level": level, "text": text})
}

// ServeWs upgrades the connection and opens a chat session for the
// authenticated user.
func ServeWs(hub *Hub, st store.Store, broker *realtime.Broker, opts chat.Options, w http.ResponseWriter, r *http.Request, userID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}
	client.session = chat.NewSession(st, broker, wsSink{client}, opts)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	// Resolve identity, then load the directory. On failure the modal
	// shows its empty state; no data loads are attempted.
	go func() {
		if err := client.session.Open(userID); err != nil {
			return
		}
		client.session.LoadDirectory()
	}()
}

func (c *Client) readPump() {
	defer func() {
		c.session.Close()
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.L().Debug().Err(err).Msg("websocket closed")
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logging.L().Warn().Err(err).Msg("bad client frame")
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame clientFrame) {
	switch frame.Type {
	case "directory":
		c.session.LoadDirectory()

	case "filter":
		var types chat.GroupTypeFilter
		for _, t := range frame.Types {
			switch t {
			case "private":
				types |= chat.FilterPrivate
			case "public":
				types |= chat.FilterPublic
			}
		}
		result := c.session.FilterDirectory(frame.Query, types)
		wsSink{c}.push(map[string]any{"type": "filtered", "conversations": result})

	case "select":
		switch frame.Kind {
		case "group":
			if !c.session.SelectGroup(frame.ID) {
				wsSink{c}.Toast(chat.ToastError, "Conversazione non trovata")
			}
		case "direct":
			if !c.session.SelectPeer(frame.ID) {
				wsSink{c}.Toast(chat.ToastError, "Conversazione non trovata")
			}
		default:
			c.session.Deselect()
		}

	case "send":
		if frame.ReplyTo != 0 {
			c.session.SetReplyTo(frame.ReplyTo)
		}
		c.session.Send(frame.Body)

	case "reply":
		c.session.SetReplyTo(frame.Message)

	case "edit":
		c.session.Edit(frame.Message, frame.Body)

	case "delete":
		c.session.Delete(frame.Message)

	case "react":
		c.session.React(frame.Message, frame.Emoji)

	default:
		logging.L().Debug().Str("type", frame.Type).Msg("unknown frame type")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
