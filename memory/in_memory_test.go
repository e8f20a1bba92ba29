package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_ConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	id, err := store.OpenConversation(ctx, "steve", "first")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	open, err := store.OpenConversationID(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, id, open)

	// Opening again closes the previous conversation.
	id2, err := store.OpenConversation(ctx, "steve", "second")
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	convs, err := store.Conversations(ctx, "steve", 0)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	open, err = store.OpenConversationID(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, id2, open)

	require.NoError(t, store.CloseConversation(ctx, id2))
	_, err = store.OpenConversationID(ctx, "steve")
	assert.True(t, IsNotFound(err))

	// Closing twice is a no-op.
	assert.NoError(t, store.CloseConversation(ctx, id2))
}

func TestInMemoryStore_AppendAndReadMessages(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	id, err := store.OpenConversation(ctx, "steve", "")
	require.NoError(t, err)

	first, err := store.AppendMessage(ctx, id, Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)
	second, err := store.AppendMessage(ctx, id, Message{Role: RoleAssistant, Content: "hi", AgentName: "steve"})
	require.NoError(t, err)
	assert.Greater(t, second, first, "ids follow insertion order")

	msgs, err := store.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.False(t, msgs[0].Timestamp.IsZero())
}

func TestInMemoryStore_AppendUnknownConversation(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.AppendMessage(context.Background(), "missing", Message{Role: RoleUser, Content: "x"})
	assert.True(t, IsNotFound(err))
}

func TestInMemoryStore_RecentMessagesWindow(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	// Two conversations for the same agent; the window spans both.
	id1, _ := store.OpenConversation(ctx, "steve", "")
	_, err := store.AppendMessage(ctx, id1, Message{Role: RoleUser, Content: "one"})
	require.NoError(t, err)
	id2, _ := store.OpenConversation(ctx, "steve", "")
	_, err = store.AppendMessage(ctx, id2, Message{Role: RoleUser, Content: "two"})
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, id2, Message{Role: RoleAssistant, Content: "three", AgentName: "steve"})
	require.NoError(t, err)

	// Another agent's traffic never leaks in.
	other, _ := store.OpenConversation(ctx, "alice", "")
	_, err = store.AppendMessage(ctx, other, Message{Role: RoleUser, Content: "intruder"})
	require.NoError(t, err)

	msgs, err := store.RecentMessages(ctx, "steve", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	all, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInMemoryStore_AgentState(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.LoadAgentState(ctx, "steve")
	assert.True(t, IsNotFound(err))

	state := map[string]any{"last_conversation_id": "abc", "model": "llama3.1:8b"}
	require.NoError(t, store.SaveAgentState(ctx, "steve", state))

	loaded, err := store.LoadAgentState(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	// Returned state is a copy.
	loaded["model"] = "changed"
	again, err := store.LoadAgentState(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", again["model"])
}

func TestInMemoryStore_PurgeAgent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	id, _ := store.OpenConversation(ctx, "steve", "")
	_, err := store.AppendMessage(ctx, id, Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, store.SaveAgentState(ctx, "steve", map[string]any{"k": "v"}))

	keep, _ := store.OpenConversation(ctx, "alice", "")
	_, err = store.AppendMessage(ctx, keep, Message{Role: RoleUser, Content: "stay"})
	require.NoError(t, err)

	require.NoError(t, store.PurgeAgent(ctx, "steve"))

	convs, err := store.Conversations(ctx, "steve", 0)
	require.NoError(t, err)
	assert.Empty(t, convs)
	_, err = store.LoadAgentState(ctx, "steve")
	assert.True(t, IsNotFound(err))

	msgs, err := store.RecentMessages(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
