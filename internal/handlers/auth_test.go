package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/glowdesk/teamchat/internal/middleware"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// asUser attaches an authenticated user id the way AuthMiddleware does.
func asUser(r *http.Request, userID int) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func signupBody(username, password string, salonID int) *bytes.Buffer {
	body, _ := json.Marshal(map[string]any{
		"username":     username,
		"display_name": username,
		"email":        username + "@example.com",
		"password":     password,
		"salon_id":     salonID,
	})
	return bytes.NewBuffer(body)
}

func TestSignup(t *testing.T) {
	st := newTestStore(t)
	handler := &AuthHandler{Store: st}

	req := httptest.NewRequest("POST", "/signup", signupBody("testuser", "password123", 0))
	rr := httptest.NewRecorder()
	handler.Signup(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	// Duplicate signup
	req = httptest.NewRequest("POST", "/signup", signupBody("testuser", "password123", 0))
	rr = httptest.NewRecorder()
	handler.Signup(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status %d for duplicate, got %d", http.StatusConflict, rr.Code)
	}
}

func TestLogin(t *testing.T) {
	st := newTestStore(t)
	handler := &AuthHandler{Store: st}

	req := httptest.NewRequest("POST", "/signup", signupBody("testuser", "password123", 0))
	handler.Signup(httptest.NewRecorder(), req)

	creds, _ := json.Marshal(Credentials{Username: "testuser", Password: "password123"})
	req = httptest.NewRequest("POST", "/login", bytes.NewBuffer(creds))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	cookies := rr.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == "user_id" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("Expected signed user_id cookie to be set")
	}

	// Wrong password
	creds, _ = json.Marshal(Credentials{Username: "testuser", Password: "wrong"})
	req = httptest.NewRequest("POST", "/login", bytes.NewBuffer(creds))
	rr = httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for bad password, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestSearchUsers(t *testing.T) {
	st := newTestStore(t)
	handler := &AuthHandler{Store: st}

	for _, name := range []string{"alice", "alex", "bob"} {
		req := httptest.NewRequest("POST", "/signup", signupBody(name, "pass", 0))
		handler.Signup(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest("GET", "/users/search?q=al", nil)
	rr := httptest.NewRecorder()
	handler.SearchUsers(rr, req)

	var users []models.User
	if err := json.NewDecoder(rr.Body).Decode(&users); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}

	// Empty query returns an empty list, not everyone.
	req = httptest.NewRequest("GET", "/users/search", nil)
	rr = httptest.NewRecorder()
	handler.SearchUsers(rr, req)

	users = nil
	json.NewDecoder(rr.Body).Decode(&users)
	if len(users) != 0 {
		t.Errorf("Expected no users for empty query, got %d", len(users))
	}
}
