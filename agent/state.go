package agent

import (
	"context"
	"fmt"

	"github.com/ssrobins/bot-o-clock/memory"
)

// State returns a point-in-time snapshot of the agent's runtime state.
func (a *Agent) State() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]any{
		"name":            a.persona.Name,
		"model":           a.persona.Model,
		"conversation_id": a.conversationID,
		"is_active":       a.active,
	}
}

// SaveState persists the agent's resumable state to the store so a later
// process can pick up the same conversation.
func (a *Agent) SaveState(ctx context.Context) error {
	a.mu.Lock()
	state := map[string]any{
		"last_conversation_id": a.conversationID,
		"model":                a.persona.Model,
		"temperature":          a.persona.Temperature,
	}
	a.mu.Unlock()
	if err := a.store.SaveAgentState(ctx, a.persona.Name, state); err != nil {
		return fmt.Errorf("failed to save agent state: %w", err)
	}
	return nil
}

// RestoreState loads previously saved state, re-adopting the last
// conversation when it is still open. Missing state is not an error.
func (a *Agent) RestoreState(ctx context.Context) error {
	state, err := a.store.LoadAgentState(ctx, a.persona.Name)
	if err != nil {
		if memory.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load agent state: %w", err)
	}
	id, _ := state["last_conversation_id"].(string)
	if id == "" {
		return nil
	}
	// Only resume a conversation that is still open; a closed one would
	// violate the one-open-conversation rule on the next turn anyway.
	openID, err := a.store.OpenConversationID(ctx, a.persona.Name)
	if err != nil || openID != id {
		return nil
	}
	a.mu.Lock()
	a.conversationID = id
	a.mu.Unlock()
	a.logger.Info("Resumed conversation", "agent", a.persona.Name, "conversation_id", id)
	return nil
}
