package store

import (
	"errors"

	"github.com/glowdesk/teamchat/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// Identity operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	SearchUsers(query string) ([]models.User, error)
	TouchLastSeen(userID int) error

	// Salon membership. GetSalonIDForUser is the membership fallback used
	// when the identity record itself carries no salon id.
	GetSalonIDForUser(userID int) (int, error)
	ListSalonMembers(salonID, excludeUserID int) ([]models.User, error)

	// Group operations
	GetGroup(groupID int) (*models.Group, error)
	ListGroupsBySalon(salonID int) ([]models.Group, error)
	CreateGroupWithMembers(group *models.Group, memberIDs []int) (int64, error)
	ListGroupMembers(groupID int) ([]models.User, error)
	UpdateGroup(group *models.Group) error
	DeleteGroup(groupID int) error
	IsGroupMember(groupID, userID int) (bool, error)
	AddGroupMember(groupID, userID int) error
	RemoveGroupMember(groupID, userID int) error

	// Message operations. Listings are chronological ascending. Inserts
	// return the persisted message with its durable id and timestamps.
	ListGroupMessages(groupID int) ([]models.Message, error)
	ListDirectMessages(userA, userB int) ([]models.Message, error)
	InsertGroupMessage(groupID, senderID int, body string, replyTo int64) (*models.Message, error)
	InsertDirectMessage(senderID, recipientID int, body string, replyTo int64) (*models.Message, error)
	UpdateMessageBody(messageID int64, body string) (*models.Message, error)
	SoftDeleteMessage(messageID int64) (*models.Message, error)
	AddReaction(messageID int64, userID int, emoji string) error
	ListReactions(messageID int64) ([]models.Reaction, error)

	// GetProfiles resolves denormalized author metadata for a set of user
	// ids in one query.
	GetProfiles(userIDs []int) (map[int]models.Profile, error)
}
