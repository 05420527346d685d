// Package chat implements the synchronization core behind the team-chat
// modal: identity resolution, the conversation directory, history loads,
// the realtime subscription lifecycle and the optimistic send pipeline.
package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/metrics"
	"github.com/glowdesk/teamchat/internal/models"
	"github.com/glowdesk/teamchat/internal/realtime"
	"github.com/glowdesk/teamchat/internal/store"
)

const (
	unknownAuthor = "Unknown"
	selfAuthor    = "Tu"

	toastLoadFailed = "Errore nel caricamento dei dati"
	toastSendFailed = "Invio del messaggio non riuscito"
	toastTooFast    = "Stai inviando messaggi troppo velocemente"
)

// ErrUnresolved is returned by Open when the actor cannot be resolved.
// The session stays in its empty state and performs no data loads.
var ErrUnresolved = errors.New("chat: actor unresolved")

type Options struct {
	DedupWindow time.Duration
	SendRate    float64
	SendBurst   int
}

func (o Options) withDefaults() Options {
	if o.DedupWindow <= 0 {
		o.DedupWindow = DedupWindow
	}
	if o.SendRate <= 0 {
		o.SendRate = 5
	}
	if o.SendBurst <= 0 {
		o.SendBurst = 10
	}
	return o
}

// Session is the per-modal chat state machine. Each open modal (one
// websocket connection) owns exactly one Session; sessions do not share
// state with each other beyond the store and the broker.
type Session struct {
	store   store.Store
	broker  *realtime.Broker
	sink    Sink
	limiter *rate.Limiter
	window  time.Duration

	mu       sync.Mutex
	actor    models.Actor
	resolved bool
	selected models.Conversation
	messages []models.Message
	handle   *realtime.Handle
	replyTo  int64
	loading  bool
	pending  []models.Event
	groups   []models.Group
	peers    []models.DirectPeer
	dirOnce  bool
}

func NewSession(st store.Store, broker *realtime.Broker, sink Sink, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		store:   st,
		broker:  broker,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(opts.SendRate), opts.SendBurst),
		window:  opts.DedupWindow,
	}
}

// Open resolves the actor. On failure the session performs no data loads
// and every later operation is a no-op; the caller may open a fresh
// session to retry.
func (s *Session) Open(actorID int) error {
	user, err := s.store.GetUserByID(actorID)
	if err != nil {
		logging.L().Warn().Int("actor_id", actorID).Err(err).Msg("actor resolution failed")
		return fmt.Errorf("%w: %v", ErrUnresolved, err)
	}

	s.mu.Lock()
	s.actor = models.Actor{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		SalonID:     user.SalonID,
	}
	s.resolved = true
	s.mu.Unlock()

	if err := s.store.TouchLastSeen(user.ID); err != nil {
		logging.L().Debug().Int("actor_id", user.ID).Err(err).Msg("last-seen update failed")
	}
	metrics.ActiveSessions.Inc()
	return nil
}

// Close tears the session down. Revoking an already-idle subscription is
// a no-op, so Close is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.handle.Revoke()
	s.handle = nil
	s.selected = models.Conversation{}
	s.messages = nil
	wasOpen := s.resolved
	s.resolved = false
	s.mu.Unlock()

	if wasOpen {
		metrics.ActiveSessions.Dec()
	}
}

func (s *Session) Actor() (models.Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor, s.resolved
}

// salonID resolves the actor's salon: identity metadata first, then the
// membership lookup. Zero means no salon could be resolved.
func (s *Session) salonID(actor models.Actor) int {
	if actor.SalonID != 0 {
		return actor.SalonID
	}
	id, err := s.store.GetSalonIDForUser(actor.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.L().Warn().Int("actor_id", actor.ID).Err(err).Msg("salon membership lookup failed")
		} else {
			logging.L().Info().Int("actor_id", actor.ID).Msg("no salon id found for actor")
		}
		return 0
	}
	return id
}

// LoadDirectory fetches groups and direct-message peers for the actor's
// salon. A store failure keeps the previously rendered directory; the
// "no salon" path renders empty lists by design.
func (s *Session) LoadDirectory() {
	s.mu.Lock()
	if !s.resolved {
		s.mu.Unlock()
		return
	}
	actor := s.actor
	s.mu.Unlock()

	salonID := s.salonID(actor)
	if salonID == 0 {
		s.mu.Lock()
		s.groups, s.peers = nil, nil
		s.dirOnce = true
		s.mu.Unlock()
		s.sink.RenderDirectory(nil, nil)
		return
	}

	groups, err := s.store.ListGroupsBySalon(salonID)
	if err != nil {
		logging.L().Error().Int("salon_id", salonID).Err(err).Msg("group listing failed")
		s.sink.Toast(ToastError, toastLoadFailed)
		return
	}
	members, err := s.store.ListSalonMembers(salonID, actor.ID)
	if err != nil {
		logging.L().Error().Int("salon_id", salonID).Err(err).Msg("member listing failed")
		s.sink.Toast(ToastError, toastLoadFailed)
		return
	}

	peers := make([]models.DirectPeer, 0, len(members))
	for _, m := range members {
		peers = append(peers, models.DirectPeer{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Email:       m.Email,
			AvatarURL:   m.AvatarURL,
			LastSeenAt:  m.LastSeenAt,
		})
	}

	s.mu.Lock()
	s.groups = groups
	s.peers = peers
	s.dirOnce = true
	s.mu.Unlock()
	s.sink.RenderDirectory(groups, peers)
}

// FilterDirectory applies the pure directory filter to the cached
// listings and renders the result. No I/O.
func (s *Session) FilterDirectory(query string, types GroupTypeFilter) []models.Conversation {
	s.mu.Lock()
	groups, peers := s.groups, s.peers
	s.mu.Unlock()
	return FilterConversations(groups, peers, query, types)
}

// Select switches the session to a conversation. The previous handle is
// revoked before the new one is created, so at most one subscription is
// ever live. Events that arrive while the history load is in flight are
// buffered and merged in order-stable fashion once the load completes.
func (s *Session) Select(conv models.Conversation) {
	s.mu.Lock()
	if !s.resolved {
		s.mu.Unlock()
		return
	}
	s.handle.Revoke()
	s.handle = nil
	s.selected = conv
	s.messages = nil
	s.replyTo = 0
	s.pending = nil
	if !conv.Selected() {
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	actorID := s.actor.ID
	s.handle = s.broker.Subscribe(transportPredicate(conv, actorID), s.onEvent)
	s.mu.Unlock()

	messages, members, err := s.loadHistory(conv, actorID)

	s.mu.Lock()
	if !sameConversation(s.selected, conv) {
		// A newer Select won the race; drop this load.
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		logging.L().Error().Str("conversation", conv.Title()).Err(err).Msg("history load failed")
		s.messages = nil
		s.pending = nil
		s.mu.Unlock()
		s.sink.Toast(ToastError, toastLoadFailed)
		s.sink.RenderHistory(conv, nil, nil)
		return
	}

	for _, ev := range s.pending {
		switch ev.Kind {
		case models.EventInserted:
			messages, _ = Reconcile(messages, ev.Message, s.window)
		case models.EventUpdated:
			for i := range messages {
				if messages[i].ID == ev.Message.ID {
					messages[i].Body = ev.Message.Body
					messages[i].Edited = ev.Message.Edited
					messages[i].Deleted = ev.Message.Deleted
					messages[i].UpdatedAt = ev.Message.UpdatedAt
					break
				}
			}
		}
	}
	s.pending = nil
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	s.messages = messages
	s.mu.Unlock()

	s.sink.RenderHistory(conv, messages, members)
}

func sameConversation(a, b models.Conversation) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case models.ConversationGroup:
		return a.Group.ID == b.Group.ID
	case models.ConversationDirect:
		return a.Peer.ID == b.Peer.ID
	default:
		return true
	}
}

// transportPredicate is the channel-level filter. For direct
// conversations it is deliberately broader than the exact pair (any
// direct message touching either participant); onEvent re-validates the
// pair before applying anything.
func transportPredicate(conv models.Conversation, actorID int) realtime.Predicate {
	switch conv.Kind {
	case models.ConversationGroup:
		groupID := conv.Group.ID
		return func(ev models.Event) bool {
			return ev.Message.GroupID == groupID
		}
	case models.ConversationDirect:
		peerID := conv.Peer.ID
		return func(ev models.Event) bool {
			m := ev.Message
			if !m.Direct() {
				return false
			}
			return m.SenderID == actorID || m.RecipientID == actorID ||
				m.SenderID == peerID || m.RecipientID == peerID
		}
	default:
		return func(models.Event) bool { return false }
	}
}

func (s *Session) loadHistory(conv models.Conversation, actorID int) ([]models.Message, []models.User, error) {
	switch conv.Kind {
	case models.ConversationGroup:
		type rosterResult struct {
			members []models.User
			err     error
		}
		rosterCh := make(chan rosterResult, 1)
		go func() {
			members, err := s.store.ListGroupMembers(conv.Group.ID)
			rosterCh <- rosterResult{members, err}
		}()

		messages, err := s.store.ListGroupMessages(conv.Group.ID)
		roster := <-rosterCh
		if err != nil {
			return nil, nil, err
		}
		if roster.err != nil {
			return nil, nil, roster.err
		}
		s.normalizeAuthors(messages, actorID, nil)
		return messages, roster.members, nil

	case models.ConversationDirect:
		messages, err := s.store.ListDirectMessages(actorID, conv.Peer.ID)
		if err != nil {
			return nil, nil, err
		}

		// One batched lookup for all distinct senders, never one per
		// message.
		seen := map[int]bool{}
		var ids []int
		for _, m := range messages {
			if !seen[m.SenderID] {
				seen[m.SenderID] = true
				ids = append(ids, m.SenderID)
			}
		}
		profiles, err := s.store.GetProfiles(ids)
		if err != nil {
			logging.L().Warn().Err(err).Msg("profile resolution failed; using fallback names")
			profiles = nil
		}
		s.normalizeAuthors(messages, actorID, profiles)
		return messages, nil, nil

	default:
		return nil, nil, nil
	}
}

// normalizeAuthors guarantees every message renders with an author name,
// whether or not the profile lookup succeeded.
func (s *Session) normalizeAuthors(messages []models.Message, actorID int, profiles map[int]models.Profile) {
	for i := range messages {
		if p, ok := profiles[messages[i].SenderID]; ok && p.DisplayName != "" {
			messages[i].AuthorName = p.DisplayName
			messages[i].AuthorAvatar = p.AvatarURL
		}
		if messages[i].AuthorName == "" {
			if messages[i].SenderID == actorID {
				messages[i].AuthorName = selfAuthor
			} else {
				messages[i].AuthorName = unknownAuthor
			}
		}
	}
}

// onEvent is the subscription handler. It re-validates conversation
// membership (the transport filter may be broader than the exact direct
// pair), buffers during an in-flight history load, and otherwise applies
// the event to the in-memory list.
func (s *Session) onEvent(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selected.Selected() {
		return
	}
	if !s.selected.Contains(ev.Message, s.actor.ID) {
		// Event for another pair slipped past the transport filter.
		return
	}
	if s.loading {
		s.pending = append(s.pending, ev)
		return
	}
	s.applyEventLocked(ev)
}

func (s *Session) applyEventLocked(ev models.Event) {
	switch ev.Kind {
	case models.EventInserted:
		msg := ev.Message
		s.decorateLocked(&msg)
		merged, appended := Reconcile(s.messages, msg, s.window)
		s.messages = merged
		if appended {
			s.sink.RenderMessage(msg)
			return
		}
		metrics.DedupDrops.Inc()
		for i := range s.messages {
			if s.messages[i].ID == msg.ID {
				s.sink.PatchMessage(s.messages[i])
				return
			}
		}

	case models.EventUpdated:
		for i := range s.messages {
			if s.messages[i].ID != ev.Message.ID {
				continue
			}
			// Patch in place; ordering is not recomputed.
			s.messages[i].Body = ev.Message.Body
			s.messages[i].Edited = ev.Message.Edited
			s.messages[i].Deleted = ev.Message.Deleted
			s.messages[i].UpdatedAt = ev.Message.UpdatedAt
			s.sink.PatchMessage(s.messages[i])
			return
		}
	}
}

// decorateLocked resolves the sender's display metadata with a single
// lookup when the event does not already carry it.
func (s *Session) decorateLocked(msg *models.Message) {
	if msg.AuthorName == "" {
		profiles, err := s.store.GetProfiles([]int{msg.SenderID})
		if err == nil {
			if p, ok := profiles[msg.SenderID]; ok {
				msg.AuthorName = p.DisplayName
				msg.AuthorAvatar = p.AvatarURL
			}
		}
	}
	if msg.AuthorName == "" {
		if msg.SenderID == s.actor.ID {
			msg.AuthorName = selfAuthor
		} else {
			msg.AuthorName = unknownAuthor
		}
	}
}

// SetReplyTo records the message the next send replies to. Zero clears it.
func (s *Session) SetReplyTo(messageID int64) {
	s.mu.Lock()
	s.replyTo = messageID
	s.mu.Unlock()
}

// Send runs the optimistic pipeline: reject blank input without I/O,
// render a provisional entry immediately, perform the durable write, then
// promote the entry in place or roll it back with a single notification.
func (s *Session) Send(body string) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return
	}

	s.mu.Lock()
	if !s.resolved || !s.selected.Selected() {
		s.mu.Unlock()
		return
	}
	if !s.limiter.Allow() {
		s.mu.Unlock()
		s.sink.Toast(ToastError, toastTooFast)
		return
	}

	conv := s.selected
	replyTo := s.replyTo
	now := time.Now()
	prov := models.Message{
		LocalID:      uuid.NewString(),
		SenderID:     s.actor.ID,
		AuthorName:   s.actor.DisplayName,
		AuthorAvatar: s.actor.AvatarURL,
		Body:         trimmed,
		ReplyToID:    replyTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch conv.Kind {
	case models.ConversationGroup:
		prov.GroupID = conv.Group.ID
	case models.ConversationDirect:
		prov.RecipientID = conv.Peer.ID
	}
	s.messages = append(s.messages, prov)
	actor := s.actor
	s.mu.Unlock()

	s.sink.RenderMessage(prov)

	var persisted *models.Message
	var err error
	switch conv.Kind {
	case models.ConversationGroup:
		persisted, err = s.store.InsertGroupMessage(conv.Group.ID, actor.ID, trimmed, replyTo)
	case models.ConversationDirect:
		persisted, err = s.store.InsertDirectMessage(actor.ID, conv.Peer.ID, trimmed, replyTo)
	}

	if err != nil {
		metrics.SendFailures.Inc()
		logging.L().Error().Str("conversation", conv.Title()).Err(err).Msg("message write failed")
		s.mu.Lock()
		for i := range s.messages {
			if s.messages[i].LocalID == prov.LocalID {
				s.messages = append(s.messages[:i], s.messages[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		s.sink.RollbackMessage(prov.LocalID)
		s.sink.Toast(ToastError, toastSendFailed)
		return
	}

	metrics.MessagesSent.Inc()
	confirmed := *persisted
	confirmed.LocalID = prov.LocalID
	confirmed.AuthorName = actor.DisplayName
	confirmed.AuthorAvatar = actor.AvatarURL

	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].LocalID == prov.LocalID {
			// Promote in place, preserving position.
			s.messages[i] = confirmed
			s.sink.PatchMessage(confirmed)
			break
		}
	}
	if sameConversation(s.selected, conv) {
		s.replyTo = 0
	}
	s.mu.Unlock()

	// Echo to every subscribed session, this one included; the dedup
	// rule in Reconcile keeps the sender's list at one entry.
	echo := confirmed
	echo.LocalID = ""
	s.broker.Publish(models.Event{Kind: models.EventInserted, Message: echo})
}

// Edit rewrites a message body and pushes the update to subscribers.
func (s *Session) Edit(messageID int64, body string) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || messageID == 0 {
		return
	}
	updated, err := s.store.UpdateMessageBody(messageID, trimmed)
	if err != nil {
		logging.L().Error().Int64("message_id", messageID).Err(err).Msg("message edit failed")
		s.sink.Toast(ToastError, toastLoadFailed)
		return
	}
	s.broker.Publish(models.Event{Kind: models.EventUpdated, Message: *updated})
}

// Delete soft-deletes a message and pushes the update to subscribers.
func (s *Session) Delete(messageID int64) {
	if messageID == 0 {
		return
	}
	updated, err := s.store.SoftDeleteMessage(messageID)
	if err != nil {
		logging.L().Error().Int64("message_id", messageID).Err(err).Msg("message delete failed")
		s.sink.Toast(ToastError, toastLoadFailed)
		return
	}
	s.broker.Publish(models.Event{Kind: models.EventUpdated, Message: *updated})
}

// React records a reaction. Reactions are fetched with history on demand
// and are not part of the event stream.
func (s *Session) React(messageID int64, emoji string) {
	if messageID == 0 || emoji == "" {
		return
	}
	s.mu.Lock()
	if !s.resolved {
		s.mu.Unlock()
		return
	}
	actorID := s.actor.ID
	s.mu.Unlock()

	if err := s.store.AddReaction(messageID, actorID, emoji); err != nil {
		logging.L().Error().Int64("message_id", messageID).Err(err).Msg("reaction failed")
		s.sink.Toast(ToastError, toastLoadFailed)
	}
}

// SelectGroup selects a group from the cached directory by id.
func (s *Session) SelectGroup(groupID int) bool {
	s.mu.Lock()
	var found *models.Group
	for i := range s.groups {
		if s.groups[i].ID == groupID {
			found = &s.groups[i]
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return false
	}
	s.Select(models.GroupConversation(*found))
	return true
}

// SelectPeer selects a direct conversation from the cached directory.
func (s *Session) SelectPeer(peerID int) bool {
	s.mu.Lock()
	var found *models.DirectPeer
	for i := range s.peers {
		if s.peers[i].ID == peerID {
			found = &s.peers[i]
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return false
	}
	s.Select(models.DirectConversation(*found))
	return true
}

// Deselect returns the session to the idle state, revoking any handle.
func (s *Session) Deselect() {
	s.Select(models.Conversation{})
}

// Messages returns a copy of the in-memory list, for tests and the REST
// fallback.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Subscribed reports whether a realtime handle is currently live.
func (s *Session) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}
