package callable

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// googleClient defines the interface for Google Gemini operations,
// grounded on the teacher's model/google adapter. Exists so Chat can be
// tested without a live API key.
type googleClient interface {
	generateContent(ctx context.Context, systemPrompt string, messages []Message) (ChatOut, error)
}

// GoogleChatModel implements ChatModel against Google's Gemini API.
type GoogleChatModel struct {
	apiKey    string
	modelName string
	client    googleClient
}

// NewGoogleChatModel creates a GoogleChatModel. An empty modelName
// defaults to gemini-2.5-flash.
func NewGoogleChatModel(apiKey, modelName string) *GoogleChatModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GoogleChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultGoogleClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements ChatModel.
func (m *GoogleChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	if m.apiKey == "" {
		return ChatOut{}, errors.New("callable: google api key is required")
	}

	systemPrompt, conversation := extractSystemPrompt(messages)
	return m.client.generateContent(ctx, systemPrompt, conversation)
}

// defaultGoogleClient wraps the official Google Gemini SDK client.
type defaultGoogleClient struct {
	apiKey    string
	modelName string
}

func (c *defaultGoogleClient) generateContent(ctx context.Context, systemPrompt string, messages []Message) (ChatOut, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return ChatOut{}, fmt.Errorf("failed to create google client: %w", err)
	}
	defer client.Close()

	genModel := client.GenerativeModel(c.modelName)
	if systemPrompt != "" {
		genModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	resp, err := genModel.GenerateContent(ctx, convertGoogleParts(messages)...)
	if err != nil {
		return ChatOut{}, fmt.Errorf("google api error: %w", err)
	}

	return convertGoogleResponse(resp), nil
}

func convertGoogleParts(messages []Message) []genai.Part {
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func convertGoogleResponse(resp *genai.GenerateContentResponse) ChatOut {
	var out ChatOut
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(text)
		}
	}
	return out
}
