// Package speech defines the text-to-speech boundary the orchestrator emits
// into. Synthesis engines are external collaborators; this package only
// carries the Synthesizer interface, per-agent voice profiles and a profile
// registry so responses can be routed to the right voice.
package speech

import (
	"context"
	"sync"
)

// VoiceProfile binds an agent to a cloned voice.
type VoiceProfile struct {
	Name           string // profile id, conventionally the agent name
	ReferenceAudio string // path to the voice sample the engine conditions on
	Language       string
}

// Synthesizer converts text into audio using a voice profile. Implementations
// wrap concrete engines; the core never inspects the returned audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, profile VoiceProfile) ([]byte, error)
}

// NoOpSynthesizer discards synthesis requests. Used when no engine is wired,
// keeping text-only operation free of nil checks.
type NoOpSynthesizer struct{}

// Synthesize implements Synthesizer.
func (NoOpSynthesizer) Synthesize(context.Context, string, VoiceProfile) ([]byte, error) {
	return nil, nil
}

// Manager keeps the set of registered voice profiles and the synthesizer that
// renders them. Profiles are registered when an agent with a voice sample is
// created and removed when the agent is stopped.
type Manager struct {
	mu          sync.RWMutex
	synthesizer Synthesizer
	profiles    map[string]VoiceProfile
}

// NewManager constructs a Manager. A nil synthesizer falls back to NoOpSynthesizer.
func NewManager(s Synthesizer) *Manager {
	if s == nil {
		s = NoOpSynthesizer{}
	}
	return &Manager{synthesizer: s, profiles: make(map[string]VoiceProfile)}
}

// AddProfile registers (or replaces) a voice profile.
func (m *Manager) AddProfile(p VoiceProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p
}

// RemoveProfile drops a voice profile.
func (m *Manager) RemoveProfile(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, name)
}

// Profile looks up a registered profile.
func (m *Manager) Profile(name string) (VoiceProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[name]
	return p, ok
}

// SynthesizeFor renders text with the named profile. Unknown profiles yield
// no audio rather than an error so text-only agents keep working.
func (m *Manager) SynthesizeFor(ctx context.Context, name, text string) ([]byte, error) {
	p, ok := m.Profile(name)
	if !ok {
		return nil, nil
	}
	return m.synthesizer.Synthesize(ctx, text, p)
}
