// Package botoclock provides a high-level façade over the orchestrator and
// service abstractions (memory, models, speech & logging) for building
// voice-driven multi-persona assistants. Most applications interact with
// this package by:
//  1. Creating a BotOClock via New() (optionally overriding default in-memory services)
//  2. Creating one or more persona agents (from configs or named templates)
//  3. Feeding utterances through Dispatch and rendering the results
//
// The façade delegates command routing to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; real deployments typically supply the SQLite
// store, a live model client and a structured logger.
package botoclock

import (
	"context"

	"github.com/ssrobins/bot-o-clock/agent"
	"github.com/ssrobins/bot-o-clock/logging"
	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/model"
	"github.com/ssrobins/bot-o-clock/orchestrator"
	"github.com/ssrobins/bot-o-clock/persona"
	"github.com/ssrobins/bot-o-clock/speech"
)

// Options configures the BotOClock instance.
type Options struct {
	// Store persists conversations and agent state. Defaults to the
	// in-memory store.
	Store memory.Store

	// Client is the language model backend shared by all agents. Defaults
	// to the echoing mock client so examples and tests run offline.
	Client model.Client

	// Speech manages voice profiles for spoken replies. Defaults to a
	// manager backed by the no-op synthesizer.
	Speech *speech.Manager

	// MaxAgents caps the registry size.
	MaxAgents int

	// MaxContextMessages bounds the history window sent to the model.
	MaxContextMessages int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// BotOClock is the high-level façade aggregating the orchestrator and its
// services.
type BotOClock struct {
	opts  Options
	orch  *orchestrator.Orchestrator
	store memory.Store
}

// New creates a BotOClock instance with optional overrides. Any unset
// service is initialized with a local implementation.
func New(optFns ...func(o *Options)) *BotOClock {
	opts := Options{
		Store:              memory.NewInMemoryStore(),
		Client:             model.NewMockClient("mock", "mock"),
		Speech:             speech.NewManager(speech.NoOpSynthesizer{}),
		MaxAgents:          10,
		MaxContextMessages: agent.DefaultMaxContextMessages,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(opts.Store, opts.Client,
		orchestrator.WithMaxAgents(opts.MaxAgents),
		orchestrator.WithMaxContextMessages(opts.MaxContextMessages),
		orchestrator.WithSpeech(opts.Speech),
		orchestrator.WithLogger(opts.Logger),
	)
	return &BotOClock{opts: opts, orch: orch, store: opts.Store}
}

// Orchestrator exposes the underlying orchestrator for direct control.
func (b *BotOClock) Orchestrator() *orchestrator.Orchestrator { return b.orch }

// CreateAgent registers a new persona agent.
func (b *BotOClock) CreateAgent(cfg persona.Config) (*agent.Agent, error) {
	return b.orch.CreateAgent(cfg)
}

// CreateAgentFromTemplate registers a new agent from a named persona
// template.
func (b *BotOClock) CreateAgentFromTemplate(name, template string) (*agent.Agent, error) {
	return b.orch.CreateAgentFromTemplate(name, template)
}

// Dispatch routes one utterance through the command interpreter.
func (b *BotOClock) Dispatch(ctx context.Context, utterance string) (*orchestrator.Result, error) {
	return b.orch.Dispatch(ctx, utterance)
}

// Chat sends text straight to the active agent, bypassing command parsing.
func (b *BotOClock) Chat(ctx context.Context, text string) (string, error) {
	return b.orch.Chat(ctx, text)
}

// Shutdown saves agent state, ends open conversations and closes the store.
func (b *BotOClock) Shutdown(ctx context.Context) error {
	err := b.orch.Shutdown(ctx)
	if cerr := b.store.Close(); err == nil {
		err = cerr
	}
	return err
}
