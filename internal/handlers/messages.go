package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/glowdesk/teamchat/internal/middleware"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
)

// MessageHandler serves history over REST as a fallback for the
// websocket flow.
type MessageHandler struct {
	Store store.Store
}

func (h *MessageHandler) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.Atoi(mux.Vars(r)["id"])
	userID := middleware.UserID(r)

	isMember, err := h.Store.IsGroupMember(groupID, userID)
	if err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	messages, err := h.Store.ListGroupMessages(groupID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

func (h *MessageHandler) GetDirectMessages(w http.ResponseWriter, r *http.Request) {
	peerID, _ := strconv.Atoi(mux.Vars(r)["peer"])
	userID := middleware.UserID(r)

	messages, err := h.Store.ListDirectMessages(userID, peerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Resolve author metadata once for all distinct senders.
	seen := map[int]bool{}
	var ids []int
	for _, m := range messages {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			ids = append(ids, m.SenderID)
		}
	}
	profiles, err := h.Store.GetProfiles(ids)
	if err == nil {
		for i := range messages {
			if p, ok := profiles[messages[i].SenderID]; ok {
				messages[i].AuthorName = p.DisplayName
				messages[i].AuthorAvatar = p.AvatarURL
			}
		}
	}
	for i := range messages {
		if messages[i].AuthorName == "" {
			messages[i].AuthorName = "Unknown"
		}
	}

	json.NewEncoder(w).Encode(messages)
}

func (h *MessageHandler) GetReactions(w http.ResponseWriter, r *http.Request) {
	messageID, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	reactions, err := h.Store.ListReactions(messageID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	json.NewEncoder(w).Encode(reactions)
}
