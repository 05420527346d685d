package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store/sqlstore"
	"github.com/glowdesk/teamchat/internal/ws"
)

func seedUser(t *testing.T, st *sqlstore.SQLStore, salonID int, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "pass", SalonID: salonID}
	if err := st.CreateUser(u); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}

func newGroupHandler(t *testing.T, st *sqlstore.SQLStore) *GroupHandler {
	t.Helper()
	hub := ws.NewHub()
	go hub.Run()
	return &GroupHandler{Store: st, Hub: hub}
}

func TestCreateGroup(t *testing.T) {
	st := newTestStore(t)
	handler := newGroupHandler(t, st)

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")
	stylist := seedUser(t, st, salonID, "stylist")

	body, _ := json.Marshal(CreateGroupRequest{
		Name:      "Turni",
		MemberIDs: []int{stylist.ID},
	})
	req := asUser(httptest.NewRequest("POST", "/groups", bytes.NewBuffer(body)), owner.ID)
	rr := httptest.NewRecorder()
	handler.CreateGroup(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	var resp map[string]int64
	json.NewDecoder(rr.Body).Decode(&resp)
	groupID := int(resp["id"])
	if groupID == 0 {
		t.Fatal("Expected group id in response")
	}

	// Creator is a member even when omitted from the request.
	isMember, _ := st.IsGroupMember(groupID, owner.ID)
	if !isMember {
		t.Error("Expected creator to be a group member")
	}
	isMember, _ = st.IsGroupMember(groupID, stylist.ID)
	if !isMember {
		t.Error("Expected invited stylist to be a group member")
	}
}

func TestCreateGroupValidation(t *testing.T) {
	st := newTestStore(t)
	handler := newGroupHandler(t, st)

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")

	body, _ := json.Marshal(CreateGroupRequest{Name: ""})
	req := asUser(httptest.NewRequest("POST", "/groups", bytes.NewBuffer(body)), owner.ID)
	rr := httptest.NewRecorder()
	handler.CreateGroup(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d for empty name, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestGetGroups(t *testing.T) {
	st := newTestStore(t)
	handler := newGroupHandler(t, st)

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")
	st.CreateGroupWithMembers(&models.Group{SalonID: salonID, Name: "Turni"}, []int{owner.ID})
	st.CreateGroupWithMembers(&models.Group{SalonID: salonID, Name: "Generale"}, []int{owner.ID})

	req := asUser(httptest.NewRequest("GET", "/groups", nil), owner.ID)
	rr := httptest.NewRecorder()
	handler.GetGroups(rr, req)

	var groups []models.Group
	if err := json.NewDecoder(rr.Body).Decode(&groups); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("Expected 2 groups, got %d", len(groups))
	}
}

func TestUpdateGroupRequiresMembership(t *testing.T) {
	st := newTestStore(t)
	handler := newGroupHandler(t, st)

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")
	outsider := seedUser(t, st, salonID, "outsider")

	g := &models.Group{SalonID: salonID, Name: "Turni"}
	id, _ := st.CreateGroupWithMembers(g, []int{owner.ID})

	body, _ := json.Marshal(UpdateGroupRequest{Name: "Hacked"})
	req := asUser(httptest.NewRequest("PUT", "/groups/1", bytes.NewBuffer(body)), outsider.ID)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.UpdateGroup(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status %d for non-member, got %d", http.StatusForbidden, rr.Code)
	}

	got, _ := st.GetGroup(int(id))
	if got.Name != "Turni" {
		t.Errorf("Expected group name unchanged, got %q", got.Name)
	}
}

func TestInviteUser(t *testing.T) {
	st := newTestStore(t)
	handler := newGroupHandler(t, st)

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")
	stylist := seedUser(t, st, salonID, "stylist")

	g := &models.Group{SalonID: salonID, Name: "Turni"}
	id, _ := st.CreateGroupWithMembers(g, []int{owner.ID})

	body, _ := json.Marshal(InviteUserRequest{Username: "stylist"})
	req := asUser(httptest.NewRequest("POST", "/groups/1/invite", bytes.NewBuffer(body)), owner.ID)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.InviteUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	isMember, _ := st.IsGroupMember(int(id), stylist.ID)
	if !isMember {
		t.Error("Expected invited user to become a member")
	}

	// Unknown username
	body, _ = json.Marshal(InviteUserRequest{Username: "ghost"})
	req = asUser(httptest.NewRequest("POST", "/groups/1/invite", bytes.NewBuffer(body)), owner.ID)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.InviteUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status %d for unknown user, got %d", http.StatusNotFound, rr.Code)
	}
}
