// Package command maps raw utterances to a closed set of system commands.
// Parsing is pure and total: patterns are tried in a fixed order, the first
// match wins, and anything that matches nothing becomes a Chat command for
// the active agent. Parse never returns an error.
package command

import (
	"regexp"
	"strings"
)

// DefaultInterAgentRounds is the number of full exchanges an inter-agent
// conversation runs when the utterance does not specify otherwise.
const DefaultInterAgentRounds = 3

// Command is the closed set of interpreter outcomes. Exactly one concrete
// type is produced per utterance.
type Command interface {
	isCommand()
}

// CreateAgent requests a new agent, optionally from a named template.
type CreateAgent struct {
	Name     string
	Template string
}

// SwitchAgent requests changing the active agent.
type SwitchAgent struct {
	Name string
}

// ListAgents requests the registry listing.
type ListAgents struct{}

// InterAgent requests a scripted conversation between two agents.
type InterAgent struct {
	AgentA string
	AgentB string
	Topic  string
	Rounds int
}

// StopAgent requests soft-stopping an agent.
type StopAgent struct {
	Name string
}

// Exit requests clean shutdown of the driving loop.
type Exit struct{}

// Help requests the capability listing.
type Help struct{}

// Chat is the universal fallback: the utterance passes through verbatim to
// the active agent.
type Chat struct {
	Text string
}

func (CreateAgent) isCommand() {}
func (SwitchAgent) isCommand() {}
func (ListAgents) isCommand()  {}
func (InterAgent) isCommand()  {}
func (StopAgent) isCommand()   {}
func (Exit) isCommand()        {}
func (Help) isCommand()        {}
func (Chat) isCommand()        {}

// Kind returns a stable lowercase name for a command, used for logging.
func Kind(c Command) string {
	switch c.(type) {
	case CreateAgent:
		return "create_agent"
	case SwitchAgent:
		return "switch_agent"
	case ListAgents:
		return "list_agents"
	case InterAgent:
		return "inter_agent"
	case StopAgent:
		return "stop_agent"
	case Exit:
		return "exit"
	case Help:
		return "help"
	default:
		return "chat"
	}
}

// Pattern order is fixed; it doubles as the tie-break rule when an utterance
// could match more than one pattern.
var (
	reCreateAgent = regexp.MustCompile(`create (?:a )?new (?:agent|bot) (?:named |called )?([a-zA-Z0-9_]+)(?: (?:from|using) (?:the )?([a-zA-Z0-9_]+) template)?`)
	reSwitchAgent = regexp.MustCompile(`switch to (?:agent |bot )?([a-zA-Z0-9_]+)`)
	reListAgents  = regexp.MustCompile(`list (?:all )?(?:agents|bots)`)
	reInterAgent  = regexp.MustCompile(`let (?:agent )?([a-zA-Z0-9_]+) and (?:agent )?([a-zA-Z0-9_]+) talk(?: about (.+))?`)
	reStopAgent   = regexp.MustCompile(`stop (?:agent |bot )?([a-zA-Z0-9_]+)`)
	reExit        = regexp.MustCompile(`^(?:exit|quit|shut ?down|goodbye)\b`)
	reHelp        = regexp.MustCompile(`^(?:help|what can you do)\b`)
)

// Parse maps an utterance to exactly one Command. Matching is case
// insensitive and tolerant of minor phrasing variance; it is pattern
// matching, not natural language understanding.
func Parse(text string) Command {
	lowered := strings.ToLower(strings.TrimSpace(text))

	if m := reCreateAgent.FindStringSubmatch(lowered); m != nil {
		return CreateAgent{Name: m[1], Template: m[2]}
	}
	if m := reSwitchAgent.FindStringSubmatch(lowered); m != nil {
		return SwitchAgent{Name: m[1]}
	}
	if reListAgents.MatchString(lowered) {
		return ListAgents{}
	}
	if m := reInterAgent.FindStringSubmatch(lowered); m != nil {
		return InterAgent{AgentA: m[1], AgentB: m[2], Topic: strings.TrimSpace(m[3]), Rounds: DefaultInterAgentRounds}
	}
	if m := reStopAgent.FindStringSubmatch(lowered); m != nil {
		return StopAgent{Name: m[1]}
	}
	if reExit.MatchString(lowered) {
		return Exit{}
	}
	if reHelp.MatchString(lowered) {
		return Help{}
	}
	return Chat{Text: text}
}
