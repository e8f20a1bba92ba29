// Package memory contains the conversation history contract (Store) and its
// in-memory implementation. Durable backends live in subpackages; select an
// implementation at wiring time and depend on memory.Store in your code.
//
// The store keeps three kinds of records: conversations (bounded spans of
// messages per agent, at most one open at a time), messages (append-only,
// insertion-ordered) and opaque agent state blobs. Insertion order, not
// wall-clock order, is authoritative when timestamps tie.
package memory
