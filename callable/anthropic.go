package callable

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient defines the interface for Anthropic API operations,
// grounded on the teacher's model/anthropic adapter. Exists so Chat can be
// tested without a live API key.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []Message) (ChatOut, error)
}

// AnthropicChatModel implements ChatModel against Anthropic's Claude API.
type AnthropicChatModel struct {
	apiKey    string
	modelName string
	client    anthropicClient
}

// NewAnthropicChatModel creates an AnthropicChatModel. An empty modelName
// defaults to Claude Sonnet.
func NewAnthropicChatModel(apiKey, modelName string) *AnthropicChatModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &AnthropicChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultAnthropicClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements ChatModel.
func (m *AnthropicChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	if m.apiKey == "" {
		return ChatOut{}, errors.New("callable: anthropic api key is required")
	}

	systemPrompt, conversation := extractSystemPrompt(messages)
	return m.client.createMessage(ctx, systemPrompt, conversation)
}

func extractSystemPrompt(messages []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}

// defaultAnthropicClient wraps the official Anthropic SDK client.
type defaultAnthropicClient struct {
	apiKey    string
	modelName string
}

func (c *defaultAnthropicClient) createMessage(ctx context.Context, systemPrompt string, messages []Message) (ChatOut, error) {
	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertAnthropicMessages(messages),
		MaxTokens: 4096,
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return ChatOut{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	return ChatOut{Text: text}, nil
}

func convertAnthropicMessages(messages []Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			out[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content))
		default:
			out[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content))
		}
	}
	return out
}
