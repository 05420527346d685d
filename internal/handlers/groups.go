package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/glowdesk/teamchat/internal/email"
	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/middleware"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
	"github.com/glowdesk/teamchat/internal/ws"
)

type GroupHandler struct {
	Store store.Store
	Hub   *ws.Hub
	Email *email.Sender
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AvatarURL   string `json:"avatar_url"`
	MemberIDs   []int  `json:"member_ids"`
}

func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Group name required", http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	salonID := user.SalonID
	if salonID == 0 {
		salonID, err = h.Store.GetSalonIDForUser(userID)
		if err != nil {
			http.Error(w, "No salon membership", http.StatusForbidden)
			return
		}
	}

	members := req.MemberIDs
	found := false
	for _, id := range members {
		if id == userID {
			found = true
			break
		}
	}
	if !found {
		members = append(members, userID)
	}

	group := &models.Group{
		SalonID:     salonID,
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
		AvatarURL:   req.AvatarURL,
	}
	groupID, err := h.Store.CreateGroupWithMembers(group, members)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Nudge every member's open modal to refresh its directory.
	for _, memberID := range members {
		if memberID != userID {
			h.Hub.SendNotification(memberID, map[string]string{"type": "new_group"})
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": groupID})
}

func (h *GroupHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	salonID := user.SalonID
	if salonID == 0 {
		if salonID, err = h.Store.GetSalonIDForUser(userID); err != nil {
			json.NewEncoder(w).Encode([]models.Group{})
			return
		}
	}

	groups, err := h.Store.ListGroupsBySalon(salonID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(groups)
}

func (h *GroupHandler) GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.Atoi(mux.Vars(r)["id"])

	members, err := h.Store.ListGroupMembers(groupID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(members)
}

type UpdateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AvatarURL   string `json:"avatar_url"`
}

func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.Atoi(mux.Vars(r)["id"])
	userID := middleware.UserID(r)

	isMember, err := h.Store.IsGroupMember(groupID, userID)
	if err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	group := &models.Group{
		ID:          groupID,
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.Store.UpdateGroup(group); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.Atoi(mux.Vars(r)["id"])
	userID := middleware.UserID(r)

	isMember, err := h.Store.IsGroupMember(groupID, userID)
	if err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.Store.DeleteGroup(groupID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type InviteUserRequest struct {
	Username string `json:"username"`
}

func (h *GroupHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.Store.AddGroupMember(groupID, user.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Notify the invited user
	h.Hub.SendNotification(user.ID, map[string]string{"type": "new_group"})

	if h.Email != nil && user.Email != "" {
		groupName := ""
		if group, err := h.Store.GetGroup(groupID); err == nil {
			groupName = group.Name
		}
		if err := h.Email.SendGroupInvite(user.Email, user.DisplayName, groupName); err != nil {
			logging.L().Warn().Err(err).Msg("invite email failed")
		}
	}

	w.WriteHeader(http.StatusOK)
}
