package memory

import (
	"context"
	"time"
)

// Message roles stored in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Metadata keys written by the orchestration layer. Kept as exported
// constants so later analysis can filter user-driven from inter-agent turns.
const (
	// MetaInterAgent marks a message produced inside an agent-to-agent
	// conversation rather than by direct user input.
	MetaInterAgent = "inter_agent"
	// MetaOtherAgent names the peer agent in an inter-agent exchange.
	MetaOtherAgent = "other_agent"
)

// Message represents a single message in conversation history. Messages are
// append-only; they are never mutated or deleted by normal operation.
type Message struct {
	// ID is a store-assigned monotonically increasing identifier. Insertion
	// order of IDs is authoritative when timestamps tie.
	ID             int64          `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	AgentName      string         `json:"agent_name,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Conversation represents a bounded span of messages for one agent. At most
// one conversation per agent is open (EndedAt nil) at a time; opening a new
// one implicitly closes the previous.
type Conversation struct {
	ID        string     `json:"id"`
	AgentName string     `json:"agent_name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Title     string     `json:"title,omitempty"`
}

// Open reports whether the conversation has not been closed yet.
func (c Conversation) Open() bool { return c.EndedAt == nil }

// Store persists per-agent conversation history and agent state.
//
// Contract:
//   - OpenConversation closes any open conversation for the agent first;
//     every call opens a fresh conversation.
//   - AppendMessage fails with *NotFoundError for an unknown conversation.
//   - RecentMessages returns the last limit messages across the agent's
//     conversations oldest-first, ordered by insertion.
//   - CloseConversation is an idempotent no-op when already closed.
//
// Implementations serialize writes through a single mutual-exclusion boundary
// per store handle; reads observe consistent snapshots.
type Store interface {
	OpenConversation(ctx context.Context, agentName, title string) (string, error)
	CloseConversation(ctx context.Context, conversationID string) error
	AppendMessage(ctx context.Context, conversationID string, msg Message) (int64, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	// RecentMessages returns the agent's trailing message window
	// oldest-first. A non-positive limit means no limit.
	RecentMessages(ctx context.Context, agentName string, limit int) ([]Message, error)

	// Conversations lists conversations newest-first. An empty agentName
	// matches all agents; a non-positive limit means no limit.
	Conversations(ctx context.Context, agentName string, limit int) ([]Conversation, error)
	OpenConversationID(ctx context.Context, agentName string) (string, error)

	// SaveAgentState / LoadAgentState persist opaque per-agent state blobs.
	// LoadAgentState returns *NotFoundError when no state was saved.
	SaveAgentState(ctx context.Context, agentName string, state map[string]any) error
	LoadAgentState(ctx context.Context, agentName string) (map[string]any, error)

	// PurgeAgent removes all conversations, messages and state for an agent.
	// Supports explicit agent removal; never triggered by voice commands.
	PurgeAgent(ctx context.Context, agentName string) error

	Close() error
}
