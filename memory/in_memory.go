package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ssrobins/bot-o-clock/internal/util"
)

// InMemoryStore is a volatile Store implementation keeping history in process
// local slices and maps. It is safe for concurrent access and best suited for
// tests or ephemeral demo runs. Returned messages and conversations are
// copies to prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      []Message // global append-only log; index order is insertion order
	states        map[string]map[string]any
	nextMessageID int64
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*Conversation),
		states:        make(map[string]map[string]any),
	}
}

// OpenConversation closes any open conversation for the agent and opens a
// fresh one, returning its id.
func (s *InMemoryStore) OpenConversation(_ context.Context, agentName, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, c := range s.conversations {
		if c.AgentName == agentName && c.EndedAt == nil {
			ended := now
			c.EndedAt = &ended
		}
	}
	conv := &Conversation{ID: util.NewID(), AgentName: agentName, StartedAt: now, Title: title}
	s.conversations[conv.ID] = conv
	return conv.ID, nil
}

// CloseConversation sets the end timestamp; already-closed conversations are
// left untouched.
func (s *InMemoryStore) CloseConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return &NotFoundError{Kind: "conversation", ID: conversationID}
	}
	if c.EndedAt == nil {
		ended := time.Now().UTC()
		c.EndedAt = &ended
	}
	return nil
}

// AppendMessage appends a message to an existing conversation and returns the
// store-assigned id.
func (s *InMemoryStore) AppendMessage(_ context.Context, conversationID string, msg Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return 0, &NotFoundError{Kind: "conversation", ID: conversationID}
	}
	s.nextMessageID++
	msg.ID = s.nextMessageID
	msg.ConversationID = conversationID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.messages = append(s.messages, msg)
	return msg.ID, nil
}

// Messages returns all messages of a conversation in insertion order.
func (s *InMemoryStore) Messages(_ context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, &NotFoundError{Kind: "conversation", ID: conversationID}
	}
	var out []Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

// RecentMessages returns the last limit messages across the agent's
// conversations, oldest-first. Insertion order is authoritative.
func (s *InMemoryStore) RecentMessages(_ context.Context, agentName string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		c, ok := s.conversations[m.ConversationID]
		if ok && c.AgentName == agentName {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Conversations returns the agent's conversations, most recently started first.
func (s *InMemoryStore) Conversations(_ context.Context, agentName string, limit int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conversation
	for _, c := range s.conversations {
		if agentName == "" || c.AgentName == agentName {
			out = append(out, *c)
		}
	}
	sortConversationsByStart(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OpenConversationID returns the id of the agent's currently open
// conversation, or a NotFoundError when none is open.
func (s *InMemoryStore) OpenConversationID(_ context.Context, agentName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.AgentName == agentName && c.EndedAt == nil {
			return c.ID, nil
		}
	}
	return "", &NotFoundError{Kind: "conversation", ID: agentName}
}

// SaveAgentState stores an opaque state blob for the agent.
func (s *InMemoryStore) SaveAgentState(_ context.Context, agentName string, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]any, len(state))
	for k, v := range state {
		cp[k] = v
	}
	s.states[agentName] = cp
	return nil
}

// LoadAgentState returns the previously saved state blob.
func (s *InMemoryStore) LoadAgentState(_ context.Context, agentName string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[agentName]
	if !ok {
		return nil, &NotFoundError{Kind: "agent state", ID: agentName}
	}
	cp := make(map[string]any, len(state))
	for k, v := range state {
		cp[k] = v
	}
	return cp, nil
}

// PurgeAgent removes all conversations, messages and state for an agent.
func (s *InMemoryStore) PurgeAgent(_ context.Context, agentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := make(map[string]bool)
	for id, c := range s.conversations {
		if c.AgentName == agentName {
			owned[id] = true
			delete(s.conversations, id)
		}
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if !owned[m.ConversationID] {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	delete(s.states, agentName)
	return nil
}

// Close implements Store; nothing to release for the in-memory variant.
func (s *InMemoryStore) Close() error { return nil }

func sortConversationsByStart(convs []Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].StartedAt.After(convs[j].StartedAt)
	})
}
