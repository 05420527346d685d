package sqlstore

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/glowdesk/teamchat/internal/models"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

// seedSalonUser creates a salon member and returns the user.
func seedSalonUser(t *testing.T, salonID int, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "pass", SalonID: salonID}
	if err := testStore.CreateUser(u); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}
