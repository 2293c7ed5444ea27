package callable

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/lucerna-run/workflow-go/token"
)

// ChatWorkFnOptions configures NewChatWorkFn.
type ChatWorkFnOptions struct {
	// SystemPrompt is sent once per call as a system message. Optional.
	SystemPrompt string

	// PromptField is the token.Data key read as the user message. Defaults
	// to "prompt".
	PromptField string

	// ResultField is the token.Data key the model's text is written under.
	// Defaults to "result".
	ResultField string

	// Limiter bounds outbound calls per second, grounded on the teacher's
	// tool/http.go timeout/retry posture. Nil disables rate limiting.
	Limiter *rate.Limiter
}

// NewChatWorkFn adapts a ChatModel into a WorkFn for a service activity:
// it reads PromptField from the token's data, sends it (with the
// optional system prompt) to model, and merges the response text under
// ResultField. A registered instance of this is what SPEC_FULL.md's
// "LLM-backed service activity" wires to anthropic-sdk-go, openai-go, or
// generative-ai-go.
func NewChatWorkFn(model ChatModel, opts ChatWorkFnOptions) WorkFn {
	promptField := opts.PromptField
	if promptField == "" {
		promptField = "prompt"
	}
	resultField := opts.ResultField
	if resultField == "" {
		resultField = "result"
	}

	return func(ctx context.Context, data token.Data) (token.Data, error) {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("callable: rate limiter wait: %w", err)
			}
		}

		prompt, _ := data[promptField].(string)
		if prompt == "" {
			return nil, fmt.Errorf("callable: token data missing string field %q", promptField)
		}

		var messages []Message
		if opts.SystemPrompt != "" {
			messages = append(messages, Message{Role: RoleSystem, Content: opts.SystemPrompt})
		}
		messages = append(messages, Message{Role: RoleUser, Content: prompt})

		out, err := model.Chat(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("callable: chat model call failed: %w", err)
		}

		return token.Data{resultField: out.Text}, nil
	}
}
