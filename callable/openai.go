package callable

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiClient defines the interface for OpenAI chat-completion operations,
// grounded on the teacher's model/openai adapter. Exists so Chat can be
// tested without a live API key.
type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []Message) (ChatOut, error)
}

// OpenAIChatModel implements ChatModel against OpenAI's chat completions
// API. Retries any failed call up to maxRetries times, with a fixed delay
// between attempts.
type OpenAIChatModel struct {
	apiKey     string
	modelName  string
	maxRetries int
	retryDelay time.Duration
	client     openaiClient
}

// NewOpenAIChatModel creates an OpenAIChatModel. An empty modelName
// defaults to gpt-4o.
func NewOpenAIChatModel(apiKey, modelName string) *OpenAIChatModel {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &OpenAIChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		maxRetries: 3,
		retryDelay: time.Second,
		client:     &defaultOpenAIClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements ChatModel.
func (m *OpenAIChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	if m.apiKey == "" {
		return ChatOut{}, errors.New("callable: openai api key is required")
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == m.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ChatOut{}, ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
	return ChatOut{}, fmt.Errorf("openai api error after %d attempts: %w", m.maxRetries+1, lastErr)
}

// defaultOpenAIClient wraps the official OpenAI SDK client.
type defaultOpenAIClient struct {
	apiKey    string
	modelName string
}

func (c *defaultOpenAIClient) createChatCompletion(ctx context.Context, messages []Message) (ChatOut, error) {
	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertOpenAIMessages(messages),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ChatOut{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ChatOut{}, nil
	}
	return ChatOut{Text: resp.Choices[0].Message.Content}, nil
}

func convertOpenAIMessages(messages []Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out[i] = openaisdk.SystemMessage(msg.Content)
		case RoleAssistant:
			out[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			out[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return out
}
