package callable

import "context"

// ChatModel abstracts an LLM chat provider, grounded on the teacher's
// model.ChatModel (graph/model/chat.go). It backs LLM-driven service
// activities: a workFn built with NewChatWorkFn sends the token's data as
// a prompt and merges the model's text response back in.
type ChatModel interface {
	// Chat sends messages to the LLM and returns its response.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is one turn of an LLM conversation.
type Message struct {
	Role    string
	Content string
}

// Standard roles, aligned with every major provider's convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is an LLM's response to a ChatModel.Chat call.
type ChatOut struct {
	Text string
}
