package persona

import "fmt"

// Template names accepted by FromTemplate and the create-persona CLI command.
const (
	TemplateDefault   = "default"
	TemplateAssistant = "assistant"
	TemplateCreative  = "creative"
)

type templateData struct {
	systemPrompt string
	goals        []string
	beliefs      []string
	traits       []string
}

func templates(name string) map[string]templateData {
	return map[string]templateData{
		TemplateDefault: {
			systemPrompt: fmt.Sprintf("You are %s, a helpful AI assistant. You are friendly, knowledgeable, and eager to help.", name),
			goals:        []string{"Be helpful", "Be informative", "Be engaging"},
			beliefs:      []string{"Knowledge should be shared", "Respect others", "Stay curious"},
			traits:       []string{"friendly", "patient", "knowledgeable"},
		},
		TemplateAssistant: {
			systemPrompt: fmt.Sprintf("You are %s, a professional AI assistant. You are efficient, accurate, and detail-oriented.", name),
			goals:        []string{"Provide accurate information", "Be efficient", "Stay professional"},
			beliefs:      []string{"Accuracy is crucial", "Time is valuable", "Clarity matters"},
			traits:       []string{"professional", "organized", "precise"},
		},
		TemplateCreative: {
			systemPrompt: fmt.Sprintf("You are %s, a creative AI companion. You are imaginative, playful, and love brainstorming ideas.", name),
			goals:        []string{"Inspire creativity", "Think outside the box", "Have fun"},
			beliefs:      []string{"Creativity is essential", "No idea is bad", "Imagination matters"},
			traits:       []string{"creative", "playful", "enthusiastic"},
		},
	}
}

// FromTemplate builds a Config for the named template. Unknown template names
// fall back to the default template, mirroring the voice command behavior
// where a misheard template should still produce an agent.
func FromTemplate(name, template string) Config {
	all := templates(name)
	data, ok := all[template]
	if !ok {
		data = all[TemplateDefault]
	}
	cfg := Config{
		Name:         name,
		SystemPrompt: data.systemPrompt,
		Goals:        data.goals,
		Beliefs:      data.beliefs,
		Traits:       data.traits,
	}
	cfg.ApplyDefaults()
	return cfg
}

// TemplateNames lists the built-in template names.
func TemplateNames() []string {
	return []string{TemplateDefault, TemplateAssistant, TemplateCreative}
}
