package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/store"
)

const messageColumns = `m.id, COALESCE(m.group_id, 0), m.sender_id, COALESCE(m.recipient_id, 0),
	m.body, COALESCE(m.reply_to_id, 0), m.edited, m.deleted, m.created_at, m.updated_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.RecipientID,
		&m.Body, &m.ReplyToID, &m.Edited, &m.Deleted, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) scanMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()
	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) ListGroupMessages(groupID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `, u.display_name, u.avatar_url
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.group_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.RecipientID,
			&m.Body, &m.ReplyToID, &m.Edited, &m.Deleted, &m.CreatedAt, &m.UpdatedAt,
			&m.AuthorName, &m.AuthorAvatar); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListDirectMessages returns the 1:1 history between two users, matching
// the pair in either direction. Author metadata is left for the caller to
// resolve in a single batch via GetProfiles.
func (s *SQLStore) ListDirectMessages(userA, userB int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		WHERE m.group_id IS NULL
		  AND ((m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?))
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	return s.scanMessages(rows)
}

func (s *SQLStore) InsertGroupMessage(groupID, senderID int, body string, replyTo int64) (*models.Message, error) {
	query := s.rebind("INSERT INTO messages (group_id, sender_id, body, reply_to_id) VALUES (?, ?, ?, NULLIF(?, 0)) RETURNING id, created_at, updated_at")
	var m models.Message
	if err := s.db.QueryRow(query, groupID, senderID, body, replyTo).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.GroupID = groupID
	m.SenderID = senderID
	m.Body = body
	m.ReplyToID = replyTo

	// A new message bumps the group in the directory ordering. The
	// message is already durable at this point, so a failed bump must
	// not surface as a send failure.
	bump := s.rebind("UPDATE groups SET updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if _, err := s.db.Exec(bump, groupID); err != nil {
		logging.L().Warn().Int("group_id", groupID).Err(err).Msg("group bump failed")
	}
	return &m, nil
}

func (s *SQLStore) InsertDirectMessage(senderID, recipientID int, body string, replyTo int64) (*models.Message, error) {
	query := s.rebind("INSERT INTO messages (sender_id, recipient_id, body, reply_to_id) VALUES (?, ?, ?, NULLIF(?, 0)) RETURNING id, created_at, updated_at")
	var m models.Message
	if err := s.db.QueryRow(query, senderID, recipientID, body, replyTo).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.SenderID = senderID
	m.RecipientID = recipientID
	m.Body = body
	m.ReplyToID = replyTo
	return &m, nil
}

func (s *SQLStore) UpdateMessageBody(messageID int64, body string) (*models.Message, error) {
	query := s.rebind("UPDATE messages SET body = ?, edited = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted = FALSE")
	result, err := s.db.Exec(query, body, messageID)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, store.ErrNotFound
	}
	return s.getMessage(messageID)
}

// SoftDeleteMessage flags the message deleted without removing the row, so
// conversation ordering is preserved.
func (s *SQLStore) SoftDeleteMessage(messageID int64) (*models.Message, error) {
	query := s.rebind("UPDATE messages SET deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	result, err := s.db.Exec(query, messageID)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, store.ErrNotFound
	}
	return s.getMessage(messageID)
}

func (s *SQLStore) getMessage(messageID int64) (*models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages m WHERE m.id = ?")
	return scanMessage(s.db.QueryRow(query, messageID))
}

func (s *SQLStore) AddReaction(messageID int64, userID int, emoji string) error {
	insert := "INSERT OR IGNORE INTO reactions (message_id, user_id, emoji) VALUES (?, ?, ?)"
	if s.driverName == "postgres" {
		insert = "INSERT INTO reactions (message_id, user_id, emoji) VALUES (?, ?, ?) ON CONFLICT DO NOTHING"
	}
	_, err := s.db.Exec(s.rebind(insert), messageID, userID, emoji)
	return err
}

func (s *SQLStore) ListReactions(messageID int64) ([]models.Reaction, error) {
	query := s.rebind("SELECT message_id, user_id, emoji, created_at FROM reactions WHERE message_id = ? ORDER BY created_at ASC")
	rows, err := s.db.Query(query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}
