package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/glowdesk/teamchat/internal/models"
)

func event(groupID int, id int64) models.Event {
	return models.Event{Kind: models.EventInserted, Message: models.Message{
		ID: id, GroupID: groupID, SenderID: 1, Body: "ciao", CreatedAt: time.Now(),
	}}
}

func TestPublishMatchesPredicate(t *testing.T) {
	b := NewBroker()

	var got []int64
	h := b.Subscribe(func(ev models.Event) bool { return ev.Message.GroupID == 1 }, func(ev models.Event) {
		got = append(got, ev.Message.ID)
	})
	defer h.Revoke()

	b.Publish(event(1, 10))
	b.Publish(event(2, 20))
	b.Publish(event(1, 30))

	assert.Equal(t, []int64{10, 30}, got)
}

func TestNilPredicateMatchesEverything(t *testing.T) {
	b := NewBroker()

	count := 0
	h := b.Subscribe(nil, func(models.Event) { count++ })
	defer h.Revoke()

	b.Publish(event(1, 10))
	b.Publish(event(2, 20))

	assert.Equal(t, 2, count)
}

func TestRevokeIsIdempotent(t *testing.T) {
	b := NewBroker()

	count := 0
	h := b.Subscribe(nil, func(models.Event) { count++ })

	b.Publish(event(1, 10))
	h.Revoke()
	b.Publish(event(1, 20))
	h.Revoke()
	h.Revoke()

	assert.Equal(t, 1, count, "a publish after Revoke must not match")
	assert.Zero(t, b.Subscribers())

	// A nil handle is safe to revoke.
	var nilHandle *Handle
	nilHandle.Revoke()
}

func TestPanickingHandlerDoesNotAffectOthers(t *testing.T) {
	b := NewBroker()

	h1 := b.Subscribe(nil, func(models.Event) { panic("handler bug") })
	defer h1.Revoke()

	count := 0
	h2 := b.Subscribe(nil, func(models.Event) { count++ })
	defer h2.Revoke()

	b.Publish(event(1, 10))
	b.Publish(event(1, 20))

	assert.Equal(t, 2, count)
}

func TestSubscribersCount(t *testing.T) {
	b := NewBroker()
	assert.Zero(t, b.Subscribers())

	h1 := b.Subscribe(nil, func(models.Event) {})
	h2 := b.Subscribe(nil, func(models.Event) {})
	assert.Equal(t, 2, b.Subscribers())

	h1.Revoke()
	assert.Equal(t, 1, b.Subscribers())
	h2.Revoke()
	assert.Zero(t, b.Subscribers())
}
