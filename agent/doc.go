// Package agent contains the runtime persona instance that turns input text
// into reply text. The package focuses on three concerns:
//
//  1. Conversation lifecycle (lazy open, explicit close, resumable state)
//  2. Model request assembly (system prompt + bounded history + new input)
//  3. Durable recording of every turn, user-driven or inter-agent
//
// Design principles:
//   - No hidden global state; stores and clients are injected at construction
//   - Capability interfaces (memory.Store, model.Client) instead of subtyping
//   - The agent never retries and never activates itself; both are
//     orchestrator decisions
package agent
