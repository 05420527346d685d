package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
)

func (s *SQLStore) ListGroupsBySalon(salonID int) ([]models.Group, error) {
	query := s.rebind(`
		SELECT g.id, g.salon_id, g.name, g.description, g.private, g.avatar_url, g.updated_at,
		       (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		FROM groups g
		WHERE g.salon_id = ?
		ORDER BY g.updated_at DESC
	`)
	rows, err := s.db.Query(query, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.SalonID, &g.Name, &g.Description, &g.Private, &g.AvatarURL, &g.UpdatedAt, &g.MemberCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *SQLStore) CreateGroupWithMembers(group *models.Group, memberIDs []int) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	query := s.rebind("INSERT INTO groups (salon_id, name, description, private, avatar_url) VALUES (?, ?, ?, ?, ?) RETURNING id")
	if err := tx.QueryRow(query, group.SalonID, group.Name, group.Description, group.Private, group.AvatarURL).Scan(&id); err != nil {
		return 0, err
	}

	memberQuery := s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	for _, userID := range memberIDs {
		if _, err := tx.Exec(memberQuery, id, userID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	group.ID = int(id)
	group.MemberCount = len(memberIDs)
	return id, nil
}

func (s *SQLStore) ListGroupMembers(groupID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.display_name, u.email, u.avatar_url
		FROM users u
		JOIN group_members gm ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY u.display_name ASC
	`)
	rows, err := s.db.Query(query, groupID)
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

func (s *SQLStore) UpdateGroup(group *models.Group) error {
	query := s.rebind("UPDATE groups SET name = ?, description = ?, private = ?, avatar_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	result, err := s.db.Exec(query, group.Name, group.Description, group.Private, group.AvatarURL, group.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteGroup(groupID int) error {
	// Delete messages first (foreign key constraint)
	query := s.rebind("DELETE FROM reactions WHERE message_id IN (SELECT id FROM messages WHERE group_id = ?)")
	if _, err := s.db.Exec(query, groupID); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM messages WHERE group_id = ?")
	if _, err := s.db.Exec(query, groupID); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM group_members WHERE group_id = ?")
	if _, err := s.db.Exec(query, groupID); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM groups WHERE id = ?")
	_, err := s.db.Exec(query, groupID)
	return err
}

func (s *SQLStore) IsGroupMember(groupID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, groupID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) AddGroupMember(groupID, userID int) error {
	query := s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	_, err := s.db.Exec(query, groupID, userID)
	return err
}

func (s *SQLStore) RemoveGroupMember(groupID, userID int) error {
	query := s.rebind("DELETE FROM group_members WHERE group_id = ? AND user_id = ?")
	_, err := s.db.Exec(query, groupID, userID)
	return err
}

// GetGroup fetches a single group with its member count.
func (s *SQLStore) GetGroup(groupID int) (*models.Group, error) {
	var g models.Group
	query := s.rebind(`
		SELECT g.id, g.salon_id, g.name, g.description, g.private, g.avatar_url, g.updated_at,
		       (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		FROM groups g WHERE g.id = ?
	`)
	err := s.db.QueryRow(query, groupID).Scan(&g.ID, &g.SalonID, &g.Name, &g.Description, &g.Private, &g.AvatarURL, &g.UpdatedAt, &g.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
