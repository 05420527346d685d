package sqlstore

import (
	"errors"
	"testing"

	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
)

func TestCreateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	err := testStore.CreateUser(&models.User{Username: "testuser", Password: "password123"})
	if err != nil {
		t.Errorf("Failed to create user: %v", err)
	}

	// Test duplicate user
	err = testStore.CreateUser(&models.User{Username: "testuser", Password: "password123"})
	if err == nil {
		t.Error("Expected error when creating duplicate user, got nil")
	}
}

func TestGetUserByUsername(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	testStore.CreateUser(&models.User{Username: "testuser", Password: "password123"})

	user, err := testStore.GetUserByUsername("testuser")
	if err != nil {
		t.Errorf("Failed to get user: %v", err)
	}

	if user.Username != "testuser" {
		t.Errorf("Expected username 'testuser', got '%s'", user.Username)
	}
	if user.DisplayName != "testuser" {
		t.Errorf("Expected display name to default to username, got '%s'", user.DisplayName)
	}

	_, err = testStore.GetUserByUsername("nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for nonexistent user, got %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	testStore.CreateUser(&models.User{Username: "alice", Password: "pass"})
	testStore.CreateUser(&models.User{Username: "bob", Password: "pass"})
	testStore.CreateUser(&models.User{Username: "alex", Password: "pass"})

	users, err := testStore.SearchUsers("al")
	if err != nil {
		t.Errorf("SearchUsers failed: %v", err)
	}

	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}

func TestSalonMembership(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	salonID, err := testStore.CreateSalon("Salone Aurora")
	if err != nil {
		t.Fatalf("Failed to create salon: %v", err)
	}

	owner := seedSalonUser(t, salonID, "owner")
	seedSalonUser(t, salonID, "stylist")
	seedSalonUser(t, salonID, "colorist")

	got, err := testStore.GetSalonIDForUser(owner.ID)
	if err != nil {
		t.Fatalf("GetSalonIDForUser failed: %v", err)
	}
	if got != salonID {
		t.Errorf("Expected salon %d, got %d", salonID, got)
	}

	// Membership lookup excludes the actor themselves.
	members, err := testStore.ListSalonMembers(salonID, owner.ID)
	if err != nil {
		t.Fatalf("ListSalonMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(members))
	}
	for _, m := range members {
		if m.ID == owner.ID {
			t.Error("Expected actor to be excluded from member listing")
		}
	}
}

func TestGetSalonIDForUserNotFound(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	u := &models.User{Username: "loner", Password: "pass"}
	testStore.CreateUser(u)

	_, err := testStore.GetSalonIDForUser(u.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetProfiles(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	a := seedSalonUser(t, 1, "anna")
	b := seedSalonUser(t, 1, "bruno")

	profiles, err := testStore.GetProfiles([]int{a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetProfiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(profiles))
	}
	if profiles[a.ID].DisplayName != "anna" {
		t.Errorf("Expected display name 'anna', got '%s'", profiles[a.ID].DisplayName)
	}

	// Empty input is a no-op, not a query error.
	profiles, err = testStore.GetProfiles(nil)
	if err != nil {
		t.Errorf("GetProfiles(nil) failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("Expected empty map, got %d entries", len(profiles))
	}
}
