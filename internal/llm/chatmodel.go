// Package llm defines the ChatModel abstraction (C1): a provider-agnostic
// chat-completion call resolved from a model id, independent of which
// concrete transport (OpenAI-compatible, xAI-compatible, Google Gemini)
// ends up serving it.
package llm

import "context"

// Message is one turn in a chat transcript. Only system/user roles are
// produced by persona runnables; providers may emit an assistant reply.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatModel is the single operation every persona runnable depends on.
// Implementations must apply the model id and temperature they were
// constructed with; callers never see transport details.
type ChatModel interface {
	Invoke(ctx context.Context, messages []Message) (string, error)
}
