package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"github.com/glowdesk/teamchat/internal/models"
)

func TestGetGroupMessagesRequiresMembership(t *testing.T) {
	st := newTestStore(t)
	handler := &MessageHandler{Store: st}

	salonID, _ := st.CreateSalon("Salone Aurora")
	owner := seedUser(t, st, salonID, "owner")
	outsider := seedUser(t, st, salonID, "outsider")

	g := &models.Group{SalonID: salonID, Name: "Turni"}
	id, _ := st.CreateGroupWithMembers(g, []int{owner.ID})
	st.InsertGroupMessage(int(id), owner.ID, "ciao", 0)

	req := asUser(httptest.NewRequest("GET", "/groups/1/messages", nil), outsider.ID)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.GetGroupMessages(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status %d for non-member, got %d", http.StatusForbidden, rr.Code)
	}

	req = asUser(httptest.NewRequest("GET", "/groups/1/messages", nil), owner.ID)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.GetGroupMessages(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var messages []models.Message
	json.NewDecoder(rr.Body).Decode(&messages)
	if len(messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(messages))
	}
}

func TestGetDirectMessagesResolvesAuthors(t *testing.T) {
	st := newTestStore(t)
	handler := &MessageHandler{Store: st}

	salonID, _ := st.CreateSalon("Salone Aurora")
	anna := seedUser(t, st, salonID, "anna")
	bruno := seedUser(t, st, salonID, "bruno")

	st.InsertDirectMessage(anna.ID, bruno.ID, "ciao", 0)
	st.InsertDirectMessage(bruno.ID, anna.ID, "ciao anna", 0)

	req := asUser(httptest.NewRequest("GET", "/direct/2/messages", nil), anna.ID)
	req = mux.SetURLVars(req, map[string]string{"peer": strconv.Itoa(bruno.ID)})
	rr := httptest.NewRecorder()
	handler.GetDirectMessages(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var messages []models.Message
	json.NewDecoder(rr.Body).Decode(&messages)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	for _, m := range messages {
		if m.AuthorName == "" || m.AuthorName == "Unknown" {
			t.Errorf("Expected author name resolved for message %d, got %q", m.ID, m.AuthorName)
		}
	}
}

func TestGetReactions(t *testing.T) {
	st := newTestStore(t)
	handler := &MessageHandler{Store: st}

	salonID, _ := st.CreateSalon("Salone Aurora")
	anna := seedUser(t, st, salonID, "anna")
	bruno := seedUser(t, st, salonID, "bruno")

	m, _ := st.InsertDirectMessage(anna.ID, bruno.ID, "fatto!", 0)
	st.AddReaction(m.ID, bruno.ID, "🎉")

	req := httptest.NewRequest("GET", "/messages/1/reactions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.GetReactions(rr, req)

	var reactions []models.Reaction
	if err := json.NewDecoder(rr.Body).Decode(&reactions); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(reactions) != 1 {
		t.Errorf("Expected 1 reaction, got %d", len(reactions))
	}

	// No reactions yields an empty array, not null.
	req = httptest.NewRequest("GET", "/messages/999/reactions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	rr = httptest.NewRecorder()
	handler.GetReactions(rr, req)

	if body := rr.Body.String(); body == "null\n" {
		t.Error("Expected empty array for no reactions, got null")
	}
}
