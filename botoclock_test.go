package botoclock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/model"
	"github.com/ssrobins/bot-o-clock/persona"
)

func TestNew_DefaultsRunOffline(t *testing.T) {
	ctx := context.Background()
	bot := New()

	_, err := bot.CreateAgentFromTemplate("steve", persona.TemplateDefault)
	require.NoError(t, err)

	reply, err := bot.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	require.NoError(t, bot.Shutdown(ctx))
}

func TestNew_Overrides(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	client := model.NewMockClient("custom", "mock")
	client.AddResponse("ping", "pong")

	bot := New(func(o *Options) {
		o.Store = store
		o.Client = client
	})
	_, err := bot.CreateAgent(persona.FromTemplate("steve", persona.TemplateDefault))
	require.NoError(t, err)

	res, err := bot.Dispatch(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", res.DisplayText)

	// The supplied store received the exchange.
	msgs, err := store.RecentMessages(ctx, "steve", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestDispatch_FullCommandFlow(t *testing.T) {
	ctx := context.Background()
	bot := New()

	res, err := bot.Dispatch(ctx, "create a new agent alice from the creative template")
	require.NoError(t, err)
	assert.Contains(t, res.DisplayText, "alice")

	res, err = bot.Dispatch(ctx, "list agents")
	require.NoError(t, err)
	assert.Contains(t, res.DisplayText, "alice")

	res, err = bot.Dispatch(ctx, "exit")
	require.NoError(t, err)
	assert.True(t, res.Exit)
}
