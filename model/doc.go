// Package model defines the provider-neutral language model boundary: the
// Client interface with its Request/Response structures, the UnavailableError
// classification for timeout and connection failures, and a MockClient for
// tests and examples.
//
// Provider adapters live in subpackages (ollama, openai, anthropic) and
// translate the normalized Request into vendor SDK calls. Agents depend only
// on Client, so backends are swapped at wiring time rather than through
// subclassing.
package model
