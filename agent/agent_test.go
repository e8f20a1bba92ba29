package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/model"
	"github.com/ssrobins/bot-o-clock/persona"
)

func newTestAgent(t *testing.T, optFns ...func(o *Options)) (*Agent, *memory.InMemoryStore, *model.MockClient) {
	t.Helper()
	store := memory.NewInMemoryStore()
	client := model.NewMockClient("test-model", "mock")
	cfg := persona.FromTemplate("steve", persona.TemplateDefault)
	return New(cfg, store, client, optFns...), store, client
}

func TestAgent_ProcessInput_PersistsBothSides(t *testing.T) {
	ctx := context.Background()
	a, store, client := newTestAgent(t)
	client.AddResponse("hello", "hi there")

	reply, err := a.ProcessInput(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, memory.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Empty(t, msgs[0].AgentName, "user messages carry no agent name")
	assert.Equal(t, memory.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.Equal(t, "steve", msgs[1].AgentName)
}

func TestAgent_ProcessInput_RequestShape(t *testing.T) {
	ctx := context.Background()
	a, _, client := newTestAgent(t)

	_, err := a.ProcessInput(ctx, "first", nil)
	require.NoError(t, err)
	_, err = a.ProcessInput(ctx, "second", nil)
	require.NoError(t, err)

	reqs := client.Requests()
	require.Len(t, reqs, 2)

	// Every request leads with the persona system prompt.
	first := reqs[0]
	require.NotEmpty(t, first.Messages)
	assert.Equal(t, model.RoleSystem, first.Messages[0].Role)
	assert.Contains(t, first.Messages[0].Content, "steve")
	assert.Equal(t, a.Persona().Model, first.Model)
	assert.Equal(t, a.Persona().Temperature, first.Temperature)

	// The second turn replays the first exchange from memory.
	second := reqs[1]
	require.Len(t, second.Messages, 4) // system, user, assistant, user
	assert.Equal(t, "first", second.Messages[1].Content)
	assert.Equal(t, model.RoleAssistant, second.Messages[2].Role)
	assert.Equal(t, "second", second.Messages[3].Content)
}

func TestAgent_ProcessInput_ContextWindowBounded(t *testing.T) {
	ctx := context.Background()
	a, _, client := newTestAgent(t, WithMaxContextMessages(4))

	for i := 0; i < 5; i++ {
		_, err := a.ProcessInput(ctx, "turn", nil)
		require.NoError(t, err)
	}

	reqs := client.Requests()
	last := reqs[len(reqs)-1]
	// system + at most 4 history messages + new user message.
	assert.LessOrEqual(t, len(last.Messages), 6)
}

func TestAgent_ProcessInput_ModelUnavailable(t *testing.T) {
	ctx := context.Background()
	a, store, client := newTestAgent(t)
	client.FailWith(&model.UnavailableError{Endpoint: "test", Err: errors.New("connection refused")})

	_, err := a.ProcessInput(ctx, "hello", nil)
	require.Error(t, err)
	assert.True(t, model.IsUnavailable(err))

	// The user message is already durable; no assistant message was written.
	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, memory.RoleUser, msgs[0].Role)
}

// failingReadStore breaks RecentMessages while leaving writes intact.
type failingReadStore struct {
	memory.Store
}

func (s *failingReadStore) RecentMessages(context.Context, string, int) ([]memory.Message, error) {
	return nil, &memory.StorageError{Op: "read recent messages", Err: errors.New("disk gone")}
}

func TestAgent_ProcessInput_DegradesWithoutHistory(t *testing.T) {
	ctx := context.Background()
	store := &failingReadStore{Store: memory.NewInMemoryStore()}
	client := model.NewMockClient("test-model", "mock")
	a := New(persona.FromTemplate("steve", persona.TemplateDefault), store, client)

	reply, err := a.ProcessInput(ctx, "hello", nil)
	require.NoError(t, err, "a failed context read must not fail the turn")
	assert.NotEmpty(t, reply)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	// System prompt plus the new user message only.
	assert.Len(t, reqs[0].Messages, 2)
}

func TestAgent_ProcessInput_RetryDoesNotDuplicateUserMessage(t *testing.T) {
	ctx := context.Background()
	a, store, client := newTestAgent(t)
	client.FailWith(&model.UnavailableError{Endpoint: "test", Err: errors.New("connection refused")})

	_, err := a.ProcessInput(ctx, "hello", nil)
	require.Error(t, err)

	// Retrying the same turn reuses the row the failed attempt persisted.
	client.FailWith(nil)
	reply, err := a.ProcessInput(ctx, "hello", &TurnOptions{UserRecorded: true})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, memory.RoleUser, msgs[0].Role)
	assert.Equal(t, memory.RoleAssistant, msgs[1].Role)

	// The retried request carries the turn exactly once.
	reqs := client.Requests()
	last := reqs[len(reqs)-1]
	var users int
	for _, m := range last.Messages {
		if m.Role == model.RoleUser {
			users++
		}
	}
	assert.Equal(t, 1, users)
}

func TestAgent_LoadHistory(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAgent(t, WithMaxContextMessages(4))

	history, err := a.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 0; i < 3; i++ {
		_, err = a.ProcessInput(ctx, "turn", nil)
		require.NoError(t, err)
	}

	// Six stored messages, window capped at four.
	history, err = a.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, memory.RoleAssistant, history[len(history)-1].Role)
}

func TestAgent_LoadHistory_StoreFailure(t *testing.T) {
	store := &failingReadStore{Store: memory.NewInMemoryStore()}
	client := model.NewMockClient("test-model", "mock")
	a := New(persona.FromTemplate("steve", persona.TemplateDefault), store, client)

	_, err := a.LoadHistory(context.Background())
	require.Error(t, err, "history loading surfaces store failures instead of degrading")
}

func TestAgent_ClearContext(t *testing.T) {
	ctx := context.Background()
	a, store, client := newTestAgent(t)

	_, err := a.ProcessInput(ctx, "remember this", nil)
	require.NoError(t, err)
	require.NoError(t, a.ClearContext(ctx))

	// The next request starts from a clean window.
	_, err = a.ProcessInput(ctx, "fresh start", nil)
	require.NoError(t, err)
	reqs := client.Requests()
	last := reqs[len(reqs)-1]
	require.Len(t, last.Messages, 2) // system + new user message
	assert.Equal(t, "fresh start", last.Messages[1].Content)

	// Stored rows are untouched and the window accumulates again after the reset.
	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	history, err := a.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "fresh start", history[0].Content)
}

func TestAgent_ClearContext_NoMessages(t *testing.T) {
	a, _, _ := newTestAgent(t)
	assert.NoError(t, a.ClearContext(context.Background()))
}

func TestAgent_ProcessInput_InterAgentMetadata(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestAgent(t)

	_, err := a.ProcessInput(ctx, "hi steve", &TurnOptions{InterAgent: true, OtherAgent: "alice"})
	require.NoError(t, err)

	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, true, m.Metadata[memory.MetaInterAgent])
		assert.Equal(t, "alice", m.Metadata[memory.MetaOtherAgent])
	}
}

func TestAgent_ConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestAgent(t)

	assert.Empty(t, a.ConversationID())

	// First turn lazily opens a conversation.
	_, err := a.ProcessInput(ctx, "hello", nil)
	require.NoError(t, err)
	id := a.ConversationID()
	require.NotEmpty(t, id)

	require.NoError(t, a.EndConversation(ctx))
	assert.Empty(t, a.ConversationID())
	require.NoError(t, a.EndConversation(ctx), "ending twice is safe")

	// The next turn opens a fresh conversation.
	_, err = a.ProcessInput(ctx, "again", nil)
	require.NoError(t, err)
	assert.NotEqual(t, id, a.ConversationID())

	convs, err := store.Conversations(ctx, "steve", 0)
	require.NoError(t, err)
	assert.Len(t, convs, 2)
}

func TestAgent_ActiveFlag(t *testing.T) {
	a, _, _ := newTestAgent(t)
	assert.False(t, a.Active())
	a.SetActive(true)
	assert.True(t, a.Active())
}

func TestAgent_VoiceProfile(t *testing.T) {
	store := memory.NewInMemoryStore()
	client := model.NewMockClient("test-model", "mock")

	plain := New(persona.FromTemplate("steve", persona.TemplateDefault), store, client)
	_, ok := plain.VoiceProfile()
	assert.False(t, ok)

	cfg := persona.FromTemplate("alice", persona.TemplateDefault)
	cfg.VoiceSample = "alice.wav"
	voiced := New(cfg, store, client)
	profile, ok := voiced.VoiceProfile()
	require.True(t, ok)
	assert.Equal(t, "alice", profile.Name)
	assert.Equal(t, "alice.wav", profile.ReferenceAudio)
	assert.Equal(t, persona.DefaultVoiceLanguage, profile.Language)
}

func TestAgent_SaveAndRestoreState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	client := model.NewMockClient("test-model", "mock")
	cfg := persona.FromTemplate("steve", persona.TemplateDefault)

	a := New(cfg, store, client)
	_, err := a.ProcessInput(ctx, "hello", nil)
	require.NoError(t, err)
	id := a.ConversationID()
	require.NoError(t, a.SaveState(ctx))

	// A fresh agent over the same store resumes the still-open conversation.
	b := New(cfg, store, client)
	require.NoError(t, b.RestoreState(ctx))
	assert.Equal(t, id, b.ConversationID())
}

func TestAgent_RestoreState_ClosedConversation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	client := model.NewMockClient("test-model", "mock")
	cfg := persona.FromTemplate("steve", persona.TemplateDefault)

	a := New(cfg, store, client)
	_, err := a.ProcessInput(ctx, "hello", nil)
	require.NoError(t, err)
	require.NoError(t, a.SaveState(ctx))
	require.NoError(t, a.EndConversation(ctx))

	// A closed conversation is not resumed.
	b := New(cfg, store, client)
	require.NoError(t, b.RestoreState(ctx))
	assert.Empty(t, b.ConversationID())
}

func TestAgent_RestoreState_NoSavedState(t *testing.T) {
	a, _, _ := newTestAgent(t)
	assert.NoError(t, a.RestoreState(context.Background()))
}
