package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
)

const userColumns = "id, username, display_name, email, password, avatar_url, COALESCE(salon_id, 0), last_seen_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var lastSeen sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Password, &u.AvatarURL, &u.SalonID, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.LastSeenAt = lastSeen.Time
	return &u, nil
}

func (s *SQLStore) CreateUser(user *models.User) error {
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	query := s.rebind("INSERT INTO users (username, display_name, email, password, avatar_url, salon_id) VALUES (?, ?, ?, ?, ?, NULLIF(?, 0)) RETURNING id")
	if err := s.db.QueryRow(query, user.Username, user.DisplayName, user.Email, user.Password, user.AvatarURL, user.SalonID).Scan(&user.ID); err != nil {
		return err
	}
	if user.SalonID != 0 {
		return s.addSalonMember(user.SalonID, user.ID)
	}
	return nil
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	return scanUser(s.db.QueryRow(query, username))
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	return scanUser(s.db.QueryRow(query, id))
}

func (s *SQLStore) SearchUsers(queryStr string) ([]models.User, error) {
	query := s.rebind("SELECT id, username, display_name, email, avatar_url FROM users WHERE username LIKE ? OR display_name LIKE ? LIMIT 10")
	pattern := "%" + queryStr + "%"
	rows, err := s.db.Query(query, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.AvatarURL); err != nil {
			return nil, err
		}
		u.Email = maskEmail(u.Email)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) TouchLastSeen(userID int) error {
	query := s.rebind("UPDATE users SET last_seen_at = CURRENT_TIMESTAMP WHERE id = ?")
	_, err := s.db.Exec(query, userID)
	return err
}

func (s *SQLStore) addSalonMember(salonID, userID int) error {
	insert := "INSERT OR IGNORE INTO salon_members (salon_id, user_id) VALUES (?, ?)"
	if s.driverName == "postgres" {
		insert = "INSERT INTO salon_members (salon_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING"
	}
	_, err := s.db.Exec(s.rebind(insert), salonID, userID)
	return err
}

func (s *SQLStore) GetSalonIDForUser(userID int) (int, error) {
	var salonID int
	query := s.rebind("SELECT salon_id FROM salon_members WHERE user_id = ? LIMIT 1")
	err := s.db.QueryRow(query, userID).Scan(&salonID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return salonID, err
}

func (s *SQLStore) ListSalonMembers(salonID, excludeUserID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.display_name, u.email, u.avatar_url, u.last_seen_at
		FROM users u
		JOIN salon_members sm ON u.id = sm.user_id
		WHERE sm.salon_id = ? AND u.id != ?
		ORDER BY u.display_name ASC
	`)
	rows, err := s.db.Query(query, salonID, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var lastSeen sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.AvatarURL, &lastSeen); err != nil {
			return nil, err
		}
		u.LastSeenAt = lastSeen.Time
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) GetProfiles(userIDs []int) (map[int]models.Profile, error) {
	profiles := make(map[int]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(userIDs)), ", ")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	query := s.rebind("SELECT id, display_name, avatar_url FROM users WHERE id IN (" + placeholders + ")")
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// CreateSalon exists for bootstrap and tests.
func (s *SQLStore) CreateSalon(name string) (int, error) {
	var id int
	query := s.rebind("INSERT INTO salons (name) VALUES (?) RETURNING id")
	err := s.db.QueryRow(query, name).Scan(&id)
	return id, err
}
