package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ssrobins/bot-o-clock/command"
	"github.com/ssrobins/bot-o-clock/logging"
)

// Result is the outcome of dispatching a single utterance. DisplayText is
// always set. SpokenText and VoiceProfileID are set only for chat replies
// from an agent with a registered voice profile. Exit signals that the
// caller's input loop should terminate.
type Result struct {
	DisplayText    string
	SpokenText     string
	VoiceProfileID string
	Exit           bool
}

// Dispatch maps a raw utterance to a command and executes it. Command
// parsing never fails; execution errors are returned alongside a nil result
// so callers can report them without tearing down the session. Partial
// inter-agent completion is reported as text rather than as an error.
func (o *Orchestrator) Dispatch(ctx context.Context, utterance string) (*Result, error) {
	cmd := command.Parse(utterance)
	start := time.Now()

	res, err := o.execute(ctx, cmd)
	if bl, ok := o.logger.(*logging.BotLogger); ok {
		bl.LogCommand(command.Kind(cmd), time.Since(start), err == nil, err)
	} else {
		o.logger.Debug("Command executed",
			"command", command.Kind(cmd), "duration", time.Since(start), "success", err == nil)
	}
	return res, err
}

func (o *Orchestrator) execute(ctx context.Context, cmd command.Command) (*Result, error) {
	switch c := cmd.(type) {
	case command.CreateAgent:
		if _, err := o.CreateAgentFromTemplate(c.Name, c.Template); err != nil {
			return nil, err
		}
		return &Result{DisplayText: fmt.Sprintf("Created new agent: %s", c.Name)}, nil

	case command.SwitchAgent:
		if err := o.SwitchAgent(c.Name); err != nil {
			return nil, err
		}
		return &Result{DisplayText: fmt.Sprintf("Switched to agent: %s", c.Name)}, nil

	case command.ListAgents:
		return &Result{DisplayText: o.formatAgentList()}, nil

	case command.InterAgent:
		rounds := c.Rounds
		if rounds <= 0 {
			rounds = command.DefaultInterAgentRounds
		}
		report, err := o.RunInterAgentConversation(ctx, c.AgentA, c.AgentB, c.Topic, rounds)
		if err != nil && report == nil {
			return nil, err
		}
		return &Result{DisplayText: formatInterAgentReport(report, err)}, nil

	case command.StopAgent:
		if err := o.StopAgent(c.Name); err != nil {
			return nil, err
		}
		return &Result{DisplayText: fmt.Sprintf("Stopped agent: %s", c.Name)}, nil

	case command.Exit:
		if err := o.Shutdown(ctx); err != nil {
			o.logger.Error("Shutdown encountered errors", "error", err)
		}
		return &Result{DisplayText: "Goodbye!", Exit: true}, nil

	case command.Help:
		return &Result{DisplayText: helpText}, nil

	case command.Chat:
		reply, err := o.Chat(ctx, c.Text)
		if err != nil {
			return nil, err
		}
		res := &Result{DisplayText: reply}
		if active, aerr := o.ActiveAgent(); aerr == nil && o.speech != nil {
			if profile, ok := active.VoiceProfile(); ok {
				if _, registered := o.speech.Profile(profile.Name); registered {
					res.SpokenText = reply
					res.VoiceProfileID = profile.Name
				}
			}
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (o *Orchestrator) formatAgentList() string {
	agents := o.ListAgents()
	if len(agents) == 0 {
		return "No agents created yet."
	}

	var sb strings.Builder
	sb.WriteString("Agents:\n")
	for _, a := range agents {
		marker := " "
		if a.Active {
			marker = "*"
		}
		suffix := ""
		if a.Stopped {
			suffix = " (stopped)"
		}
		fmt.Fprintf(&sb, "  %s %s [%s]%s\n", marker, a.Name, a.Model, suffix)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatInterAgentReport(r *InterAgentReport, err error) string {
	if err != nil {
		return fmt.Sprintf("Conversation between %s and %s stopped early: completed %d of %d rounds.",
			r.AgentA, r.AgentB, r.RoundsCompleted, r.RoundsRequested)
	}
	return fmt.Sprintf("Conversation between %s and %s finished: %d rounds.",
		r.AgentA, r.AgentB, r.RoundsCompleted)
}

const helpText = `Available commands:
  create a new agent NAME [from the TEMPLATE template]  - create and activate an agent
  switch to agent NAME                                  - make NAME the active agent
  list agents                                           - show all agents
  let NAME1 and NAME2 talk [about TOPIC]                - run an agent-to-agent conversation
  stop agent NAME                                       - stop an agent
  help                                                  - show this message
  exit / quit / goodbye                                 - shut down

Anything else is sent to the active agent as chat.`
