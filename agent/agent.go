package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ssrobins/bot-o-clock/logging"
	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/model"
	"github.com/ssrobins/bot-o-clock/persona"
	"github.com/ssrobins/bot-o-clock/speech"
)

// DefaultMaxContextMessages bounds the in-memory context window when no
// override is supplied.
const DefaultMaxContextMessages = 20

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// MaxContextMessages caps how many stored messages are replayed into each
	// model request.
	MaxContextMessages int
	// Logger receives per-turn diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// WithMaxContextMessages overrides the context window size.
func WithMaxContextMessages(n int) func(o *Options) {
	return func(o *Options) { o.MaxContextMessages = n }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// TurnOptions carries per-turn flags. A nil *TurnOptions means a plain
// user-driven chat turn.
type TurnOptions struct {
	// InterAgent marks the turn as part of an agent-to-agent conversation.
	// The turn is still durably recorded, tagged so later analysis can
	// distinguish it from user-driven turns.
	InterAgent bool
	// OtherAgent names the peer agent when InterAgent is set.
	OtherAgent string
	// UserRecorded marks a retry of a turn whose incoming message was already
	// persisted by a previous attempt; the message is not recorded again.
	UserRecorded bool
}

// Agent is a runtime instance combining one immutable persona with a memory
// handle scoped to its name and a shared language-model client. The client is
// shared, not owned; it outlives any single agent.
//
// ProcessInput is safe for concurrent use, though the orchestration loop
// dispatches at most one turn per agent at a time.
type Agent struct {
	persona persona.Config
	store   memory.Store
	client  model.Client
	logger  logging.Logger

	maxContextMessages int

	mu             sync.Mutex
	conversationID string
	contextFloor   int64
	active         bool
}

// New constructs an Agent bound to the given persona, store and client.
func New(cfg persona.Config, store memory.Store, client model.Client, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxContextMessages: DefaultMaxContextMessages,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		persona:            cfg,
		store:              store,
		client:             client,
		logger:             opts.Logger,
		maxContextMessages: opts.MaxContextMessages,
	}
}

// Persona returns the agent's immutable configuration.
func (a *Agent) Persona() persona.Config { return a.persona }

// Name returns the persona name, the agent's registry key.
func (a *Agent) Name() string { return a.persona.Name }

// Active reports whether this agent currently receives plain chat input.
func (a *Agent) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// SetActive flips the active flag. Only the orchestrator calls this; agents
// never activate themselves.
func (a *Agent) SetActive(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = active
}

// VoiceProfile returns the speech profile for this persona, or false when the
// persona has no voice sample.
func (a *Agent) VoiceProfile() (speech.VoiceProfile, bool) {
	if a.persona.VoiceSample == "" {
		return speech.VoiceProfile{}, false
	}
	return speech.VoiceProfile{
		Name:           a.persona.Name,
		ReferenceAudio: a.persona.VoiceSample,
		Language:       a.persona.VoiceLanguage,
	}, true
}

// ConversationID returns the currently open conversation id, or empty when
// none has been opened yet.
func (a *Agent) ConversationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversationID
}

// StartConversation opens a fresh conversation, implicitly closing any
// previous one for this agent.
func (a *Agent) StartConversation(ctx context.Context, title string) (string, error) {
	id, err := a.store.OpenConversation(ctx, a.persona.Name, title)
	if err != nil {
		return "", fmt.Errorf("failed to open conversation: %w", err)
	}
	a.mu.Lock()
	a.conversationID = id
	a.mu.Unlock()
	a.logger.Info("Conversation started", "agent", a.persona.Name, "conversation_id", id)
	return id, nil
}

// EndConversation closes the open conversation if there is one. Safe to call
// repeatedly.
func (a *Agent) EndConversation(ctx context.Context) error {
	a.mu.Lock()
	id := a.conversationID
	a.conversationID = ""
	a.mu.Unlock()
	if id == "" {
		return nil
	}
	if err := a.store.CloseConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to close conversation: %w", err)
	}
	return nil
}

// ProcessInput runs one turn: it builds a model request from the persona's
// system prompt, the last MaxContextMessages stored messages and the new user
// message, calls the shared client, persists both sides of the exchange and
// returns the reply text.
//
// The user message is persisted before the model call; when the model is
// unavailable the user message remains stored, no assistant message is
// written, and the returned error satisfies model.IsUnavailable. There is no
// retry here; retry policy belongs to the orchestrator.
func (a *Agent) ProcessInput(ctx context.Context, text string, turn *TurnOptions) (string, error) {
	conversationID, err := a.ensureConversation(ctx)
	if err != nil {
		return "", err
	}

	// Context fetch happens before the user message is persisted so the new
	// message is not replayed twice. A failed read degrades to an empty
	// window; the turn proceeds on the system prompt alone.
	history, err := a.contextWindow(ctx)
	if err != nil {
		a.logger.Warn("Context fetch failed, proceeding without history",
			"agent", a.persona.Name, "error", err)
		history = nil
	}

	metadata := a.turnMetadata(turn)
	if turn != nil && turn.UserRecorded {
		// The earlier attempt persisted the incoming message as this agent's
		// latest row; drop it from the replay so the request carries it once.
		if n := len(history); n > 0 && history[n-1].Role == memory.RoleUser && history[n-1].Content == text {
			history = history[:n-1]
		}
	} else {
		userMsg := memory.Message{
			Role:      memory.RoleUser,
			Content:   text,
			Timestamp: time.Now().UTC(),
			Metadata:  metadata,
		}
		if _, err := a.store.AppendMessage(ctx, conversationID, userMsg); err != nil {
			return "", fmt.Errorf("failed to record user message: %w", err)
		}
	}

	req := a.buildRequest(history, text)
	start := time.Now()
	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		a.logger.Error("Model call failed", "agent", a.persona.Name,
			"model", a.persona.Model, "duration", time.Since(start), "error", err)
		return "", err
	}
	a.logger.Debug("Model call completed", "agent", a.persona.Name,
		"model", a.persona.Model, "duration", time.Since(start))

	assistantMsg := memory.Message{
		Role:      memory.RoleAssistant,
		Content:   resp.Content,
		AgentName: a.persona.Name,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	if _, err := a.store.AppendMessage(ctx, conversationID, assistantMsg); err != nil {
		return "", fmt.Errorf("failed to record assistant message: %w", err)
	}

	return resp.Content, nil
}

// LoadHistory returns the stored messages that would feed the next model
// request: the trailing window capped at MaxContextMessages, minus anything
// hidden by ClearContext. Useful to pre-warm or inspect an agent after a
// restart. Unlike ProcessInput, a store failure is returned rather than
// degraded to an empty window.
func (a *Agent) LoadHistory(ctx context.Context) ([]memory.Message, error) {
	history, err := a.contextWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return history, nil
}

// ClearContext hides all currently stored messages from future model
// requests so the next turn starts from a clean window. Stored rows are
// untouched; pair with EndConversation for a full reset.
func (a *Agent) ClearContext(ctx context.Context) error {
	latest, err := a.store.RecentMessages(ctx, a.persona.Name, 1)
	if err != nil {
		return fmt.Errorf("failed to clear context: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(latest) > 0 {
		a.contextFloor = latest[len(latest)-1].ID
	}
	return nil
}

// contextWindow fetches the trailing message window, excluding anything at or
// below the floor set by ClearContext.
func (a *Agent) contextWindow(ctx context.Context) ([]memory.Message, error) {
	history, err := a.store.RecentMessages(ctx, a.persona.Name, a.maxContextMessages)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	floor := a.contextFloor
	a.mu.Unlock()
	if floor == 0 {
		return history, nil
	}
	kept := make([]memory.Message, 0, len(history))
	for _, m := range history {
		if m.ID > floor {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// ensureConversation lazily opens a conversation on the first turn after
// construction or after an explicit close.
func (a *Agent) ensureConversation(ctx context.Context) (string, error) {
	a.mu.Lock()
	id := a.conversationID
	a.mu.Unlock()
	if id != "" {
		return id, nil
	}
	return a.StartConversation(ctx, "")
}

func (a *Agent) turnMetadata(turn *TurnOptions) map[string]any {
	if turn == nil || !turn.InterAgent {
		return nil
	}
	metadata := map[string]any{memory.MetaInterAgent: true}
	if turn.OtherAgent != "" {
		metadata[memory.MetaOtherAgent] = turn.OtherAgent
	}
	return metadata
}

func (a *Agent) buildRequest(history []memory.Message, text string) model.Request {
	messages := make([]model.Message, 0, len(history)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: a.persona.SystemMessage()})
	for _, m := range history {
		if m.Role == memory.RoleSystem {
			continue
		}
		messages = append(messages, model.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: text})

	return model.Request{
		Model:       a.persona.Model,
		Messages:    messages,
		Temperature: a.persona.Temperature,
		MaxTokens:   a.persona.MaxTokens,
	}
}
