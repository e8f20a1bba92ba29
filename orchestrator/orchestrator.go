package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ssrobins/bot-o-clock/agent"
	"github.com/ssrobins/bot-o-clock/logging"
	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/model"
	"github.com/ssrobins/bot-o-clock/persona"
	"github.com/ssrobins/bot-o-clock/speech"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxAgents caps the registry size.
	MaxAgents int
	// MaxContextMessages is forwarded to every constructed agent.
	MaxContextMessages int
	// InterAgentRetryDelay is the fixed backoff before the single retry an
	// inter-agent loop attempts after a model failure.
	InterAgentRetryDelay time.Duration
	// Speech resolves agent voice profiles for spoken output. Optional.
	Speech *speech.Manager
	// Logger receives orchestration diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// WithMaxAgents overrides the registry size cap.
func WithMaxAgents(n int) func(o *Options) {
	return func(o *Options) { o.MaxAgents = n }
}

// WithMaxContextMessages overrides the per-agent context window size.
func WithMaxContextMessages(n int) func(o *Options) {
	return func(o *Options) { o.MaxContextMessages = n }
}

// WithInterAgentRetryDelay overrides the inter-agent retry backoff.
func WithInterAgentRetryDelay(d time.Duration) func(o *Options) {
	return func(o *Options) { o.InterAgentRetryDelay = d }
}

// WithSpeech wires a speech manager for voice profile resolution.
func WithSpeech(m *speech.Manager) func(o *Options) {
	return func(o *Options) { o.Speech = m }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// registryEntry tracks one registered agent plus its soft-stop flag. Stopped
// agents stay in the registry with memory intact but are not addressable by
// chat or inter-agent dispatch until switched to again.
type registryEntry struct {
	agent   *agent.Agent
	stopped bool
}

// Orchestrator owns the registry of live agents and the active-agent pointer,
// dispatches commands, drives inter-agent dialogue loops and routes text
// between agents and the outside world.
//
// The registry and pointer are the only shared mutable state; all mutations
// and dispatch reads go through one mutex, which is never held across a model
// or store call.
type Orchestrator struct {
	store  memory.Store
	client model.Client
	logger logging.Logger
	speech *speech.Manager

	maxAgents            int
	maxContextMessages   int
	interAgentRetryDelay time.Duration

	mu         sync.Mutex
	registry   map[string]*registryEntry
	order      []string // registry keys in insertion order
	activeName string   // empty when no agent is active
}

// New constructs an Orchestrator sharing one memory store and one model
// client across all agents it creates.
func New(store memory.Store, client model.Client, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxAgents:            10,
		MaxContextMessages:   agent.DefaultMaxContextMessages,
		InterAgentRetryDelay: 2 * time.Second,
		Logger:               logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		store:                store,
		client:               client,
		logger:               opts.Logger,
		speech:               opts.Speech,
		maxAgents:            opts.MaxAgents,
		maxContextMessages:   opts.MaxContextMessages,
		interAgentRetryDelay: opts.InterAgentRetryDelay,
		registry:             make(map[string]*registryEntry),
	}
}

// CreateAgent constructs an agent from the persona config and registers it.
// The new agent becomes active when no agent currently is. Personas with a
// voice sample get their profile registered with the speech manager.
func (o *Orchestrator) CreateAgent(cfg persona.Config) (*agent.Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persona: %w", err)
	}

	a := agent.New(cfg, o.store, o.client,
		agent.WithMaxContextMessages(o.maxContextMessages),
		agent.WithLogger(o.logger),
	)

	o.mu.Lock()
	if _, exists := o.registry[cfg.Name]; exists {
		o.mu.Unlock()
		return nil, &DuplicateNameError{Name: cfg.Name}
	}
	if len(o.registry) >= o.maxAgents {
		o.mu.Unlock()
		return nil, fmt.Errorf("maximum number of agents (%d) reached", o.maxAgents)
	}
	o.registry[cfg.Name] = &registryEntry{agent: a}
	o.order = append(o.order, cfg.Name)
	if o.activeName == "" {
		o.activeName = cfg.Name
		a.SetActive(true)
	}
	o.mu.Unlock()

	if o.speech != nil {
		if profile, ok := a.VoiceProfile(); ok {
			o.speech.AddProfile(profile)
		}
	}

	o.logger.Info("Agent created", "agent", cfg.Name, "model", cfg.Model)
	return a, nil
}

// CreateAgentFromTemplate builds a persona from one of the built-in templates
// and registers it.
func (o *Orchestrator) CreateAgentFromTemplate(name, template string) (*agent.Agent, error) {
	return o.CreateAgent(persona.FromTemplate(name, template))
}

// SwitchAgent makes the named agent the single active one, deactivating the
// previous active agent and clearing a soft-stop if one was set.
func (o *Orchestrator) SwitchAgent(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.registry[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if o.activeName != "" && o.activeName != name {
		if prev, ok := o.registry[o.activeName]; ok {
			prev.agent.SetActive(false)
		}
	}
	entry.stopped = false
	entry.agent.SetActive(true)
	o.activeName = name
	o.logger.Info("Switched active agent", "agent", name)
	return nil
}

// AgentStatus describes one registry entry for listings.
type AgentStatus struct {
	Name    string
	Model   string
	Active  bool
	Stopped bool
}

// ListAgents returns all registered agents in insertion order.
func (o *Orchestrator) ListAgents() []AgentStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]AgentStatus, 0, len(o.order))
	for _, name := range o.order {
		entry := o.registry[name]
		out = append(out, AgentStatus{
			Name:    name,
			Model:   entry.agent.Persona().Model,
			Active:  name == o.activeName,
			Stopped: entry.stopped,
		})
	}
	return out
}

// StopAgent soft-stops an agent: it stays registered with its memory intact
// but stops receiving chat or inter-agent dispatch. Stopping the active agent
// leaves the active pointer unset until the next SwitchAgent or CreateAgent.
func (o *Orchestrator) StopAgent(name string) error {
	o.mu.Lock()
	entry, ok := o.registry[name]
	if !ok {
		o.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	entry.stopped = true
	entry.agent.SetActive(false)
	if o.activeName == name {
		o.activeName = ""
	}
	o.mu.Unlock()

	if o.speech != nil {
		o.speech.RemoveProfile(name)
	}
	o.logger.Info("Agent stopped", "agent", name)
	return nil
}

// RemoveAgent hard-removes an agent from the registry and closes its open
// conversation. Not reachable by voice commands; memory rows are kept unless
// the caller purges them separately.
func (o *Orchestrator) RemoveAgent(ctx context.Context, name string) error {
	o.mu.Lock()
	entry, ok := o.registry[name]
	if !ok {
		o.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	delete(o.registry, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	if o.activeName == name {
		o.activeName = ""
	}
	o.mu.Unlock()

	if o.speech != nil {
		o.speech.RemoveProfile(name)
	}
	if err := entry.agent.EndConversation(ctx); err != nil {
		return err
	}
	o.logger.Info("Agent removed", "agent", name)
	return nil
}

// Agent returns the named agent when it is registered and addressable.
func (o *Orchestrator) Agent(name string) (*agent.Agent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.registry[name]
	if !ok || entry.stopped {
		return nil, &NotFoundError{Name: name}
	}
	return entry.agent, nil
}

// ActiveAgent returns the currently active agent, or a NoActiveAgentError.
func (o *Orchestrator) ActiveAgent() (*agent.Agent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeName == "" {
		return nil, &NoActiveAgentError{}
	}
	return o.registry[o.activeName].agent, nil
}

// Chat forwards text to the active agent and returns its reply. The active
// pointer is read under the registry lock; the model call runs outside it.
func (o *Orchestrator) Chat(ctx context.Context, text string) (string, error) {
	a, err := o.ActiveAgent()
	if err != nil {
		return "", err
	}
	return a.ProcessInput(ctx, text, nil)
}

// Shutdown closes every agent's open conversation and persists resumable
// state. The driving loop owns everything else (audio teardown, exit codes).
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	agents := make([]*agent.Agent, 0, len(o.order))
	for _, name := range o.order {
		agents = append(agents, o.registry[name].agent)
	}
	o.mu.Unlock()

	var firstErr error
	for _, a := range agents {
		if err := a.SaveState(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := a.EndConversation(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.logger.Info("Orchestrator shut down", "agents", len(agents))
	return firstErr
}

// Status is a point-in-time snapshot for status displays.
type Status struct {
	Agents      int
	ActiveAgent string
	Listing     []AgentStatus
}

// GetStatus returns the current registry snapshot.
func (o *Orchestrator) GetStatus() Status {
	listing := o.ListAgents()
	o.mu.Lock()
	active := o.activeName
	o.mu.Unlock()
	return Status{Agents: len(listing), ActiveAgent: active, Listing: listing}
}
