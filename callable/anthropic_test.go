package callable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAnthropicClient struct {
	gotSystem   string
	gotMessages []Message
	out         ChatOut
	err         error
}

func (f *fakeAnthropicClient) createMessage(ctx context.Context, systemPrompt string, messages []Message) (ChatOut, error) {
	f.gotSystem = systemPrompt
	f.gotMessages = messages
	return f.out, f.err
}

func TestAnthropicChatModelRequiresAPIKey(t *testing.T) {
	m := NewAnthropicChatModel("", "")
	_, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
}

func TestAnthropicChatModelSplitsSystemPrompt(t *testing.T) {
	fake := &fakeAnthropicClient{out: ChatOut{Text: "hello"}}
	m := &AnthropicChatModel{apiKey: "k", modelName: "m", client: fake}

	out, err := m.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello", out.Text)
	require.Equal(t, "be terse", fake.gotSystem)
	require.Len(t, fake.gotMessages, 1)
	require.Equal(t, RoleUser, fake.gotMessages[0].Role)
}

func TestAnthropicChatModelPropagatesClientError(t *testing.T) {
	fake := &fakeAnthropicClient{err: errors.New("boom")}
	m := &AnthropicChatModel{apiKey: "k", modelName: "m", client: fake}

	_, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
}

func TestAnthropicChatModelRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewAnthropicChatModel("k", "")
	_, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, context.Canceled)
}
