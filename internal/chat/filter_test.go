package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glowdesk/teamchat/internal/models"
)

var filterGroups = []models.Group{
	{ID: 1, Name: "Turni", Description: "Organizzazione turni", Private: true},
	{ID: 2, Name: "Generale", Description: "Tutto il salone", Private: false},
	{ID: 3, Name: "Colore", Description: "Tecniche colore", Private: false},
}

var filterPeers = []models.DirectPeer{
	{ID: 10, DisplayName: "Anna Rossi", Email: "anna@salone.it"},
	{ID: 11, DisplayName: "Bruno Bianchi", Email: "bruno@salone.it"},
}

func TestFilterConversationsNoQuery(t *testing.T) {
	out := FilterConversations(filterGroups, filterPeers, "", 0)
	assert.Len(t, out, 5)
}

func TestFilterConversationsQuery(t *testing.T) {
	out := FilterConversations(filterGroups, filterPeers, "ANNA", 0)
	assert.Len(t, out, 1)
	assert.Equal(t, models.ConversationDirect, out[0].Kind)
	assert.Equal(t, "Anna Rossi", out[0].Peer.DisplayName)

	// Description matches too.
	out = FilterConversations(filterGroups, filterPeers, "tecniche", 0)
	assert.Len(t, out, 1)
	assert.Equal(t, "Colore", out[0].Group.Name)

	// Email matches for peers.
	out = FilterConversations(filterGroups, filterPeers, "bruno@", 0)
	assert.Len(t, out, 1)
	assert.Equal(t, 11, out[0].Peer.ID)
}

func TestFilterConversationsTypes(t *testing.T) {
	out := FilterConversations(filterGroups, nil, "", FilterPrivate)
	assert.Len(t, out, 1)
	assert.Equal(t, "Turni", out[0].Group.Name)

	out = FilterConversations(filterGroups, nil, "", FilterPublic)
	assert.Len(t, out, 2)

	// Both bits behave like no filter.
	out = FilterConversations(filterGroups, nil, "", FilterPrivate|FilterPublic)
	assert.Len(t, out, 3)
}

func TestFilterConversationsTypeIgnoresPeers(t *testing.T) {
	// The privacy filter applies to groups only.
	out := FilterConversations(nil, filterPeers, "", FilterPrivate)
	assert.Len(t, out, 2)
}

func TestFilterConversationsNoMatch(t *testing.T) {
	out := FilterConversations(filterGroups, filterPeers, "zzz", 0)
	assert.Empty(t, out)
}
