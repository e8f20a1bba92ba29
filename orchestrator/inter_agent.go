package orchestrator

import (
	"context"
	"time"

	"github.com/ssrobins/bot-o-clock/agent"
	"github.com/ssrobins/bot-o-clock/logging"
	"github.com/ssrobins/bot-o-clock/model"
)

// DefaultInterAgentTopic seeds the exchange when the command carries no topic.
const DefaultInterAgentTopic = "Hello"

// InterAgentReport summarizes an agent-to-agent conversation run. When the
// loop aborts mid-way, RoundsCompleted counts the full exchanges that were
// persisted before the failure; completed exchanges are never rolled back.
type InterAgentReport struct {
	AgentA          string
	AgentB          string
	RoundsRequested int
	RoundsCompleted int
}

// RunInterAgentConversation drives a strictly alternating exchange: agent A
// receives the seed topic and replies, agent B receives A's reply and
// replies, and so on for the requested number of full exchanges. The loop is
// strictly sequential because each step's input is the previous step's
// output.
//
// Every turn is persisted under its agent with inter-agent metadata. When a
// model call fails, one retry runs after a fixed delay; if that also fails,
// the loop aborts, persisted exchanges remain, and the report carries the
// partial completion count alongside the error.
func (o *Orchestrator) RunInterAgentConversation(ctx context.Context, nameA, nameB, topic string, rounds int) (*InterAgentReport, error) {
	agentA, err := o.Agent(nameA)
	if err != nil {
		return nil, err
	}
	agentB, err := o.Agent(nameB)
	if err != nil {
		return nil, err
	}

	if topic == "" {
		topic = DefaultInterAgentTopic
	}
	if rounds <= 0 {
		rounds = 1
	}

	report := &InterAgentReport{
		AgentA:          nameA,
		AgentB:          nameB,
		RoundsRequested: rounds,
	}

	o.logger.Info("Inter-agent conversation started",
		"agent_a", nameA, "agent_b", nameB, "rounds", rounds, "topic", topic)

	message := topic
	for round := 1; round <= rounds; round++ {
		start := time.Now()

		replyA, err := o.processWithRetry(ctx, agentA, message, &agent.TurnOptions{InterAgent: true, OtherAgent: nameB})
		if err != nil {
			o.logger.Error("Inter-agent conversation aborted",
				"agent", nameA, "round", round, "completed", report.RoundsCompleted, "error", err)
			return report, err
		}

		replyB, err := o.processWithRetry(ctx, agentB, replyA, &agent.TurnOptions{InterAgent: true, OtherAgent: nameA})
		if err != nil {
			o.logger.Error("Inter-agent conversation aborted",
				"agent", nameB, "round", round, "completed", report.RoundsCompleted, "error", err)
			return report, err
		}

		report.RoundsCompleted = round
		message = replyB
		if bl, ok := o.logger.(*logging.BotLogger); ok {
			bl.LogInterAgentRound(nameA, nameB, round, time.Since(start), true, nil)
		} else {
			o.logger.Debug("Inter-agent round completed",
				"round", round, "duration", time.Since(start))
		}
	}

	return report, nil
}

// processWithRetry runs one turn, retrying exactly once after a fixed delay
// when the model is unavailable. Other errors propagate immediately. The
// failed attempt already persisted the incoming message, so the retry is
// marked UserRecorded to keep one stored user row per logical turn.
func (o *Orchestrator) processWithRetry(ctx context.Context, a *agent.Agent, text string, turn *agent.TurnOptions) (string, error) {
	reply, err := a.ProcessInput(ctx, text, turn)
	if err == nil || !model.IsUnavailable(err) {
		return reply, err
	}

	o.logger.Warn("Model unavailable, retrying once",
		"agent", a.Name(), "delay", o.interAgentRetryDelay)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(o.interAgentRetryDelay):
	}

	retry := agent.TurnOptions{UserRecorded: true}
	if turn != nil {
		retry = *turn
		retry.UserRecorded = true
	}
	return a.ProcessInput(ctx, text, &retry)
}
