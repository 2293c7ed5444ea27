package callable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeOpenAIClient struct {
	calls int
	out   ChatOut
	err   error
}

func (f *fakeOpenAIClient) createChatCompletion(ctx context.Context, messages []Message) (ChatOut, error) {
	f.calls++
	return f.out, f.err
}

func TestOpenAIChatModelRequiresAPIKey(t *testing.T) {
	m := NewOpenAIChatModel("", "")
	_, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
}

func TestOpenAIChatModelReturnsOnSuccess(t *testing.T) {
	fake := &fakeOpenAIClient{out: ChatOut{Text: "hello"}}
	m := &OpenAIChatModel{apiKey: "k", modelName: "m", maxRetries: 3, retryDelay: time.Millisecond, client: fake}

	out, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "hello", out.Text)
	require.Equal(t, 1, fake.calls)
}

func TestOpenAIChatModelRetriesThenFails(t *testing.T) {
	fake := &fakeOpenAIClient{err: errors.New("rate limited")}
	m := &OpenAIChatModel{apiKey: "k", modelName: "m", maxRetries: 2, retryDelay: time.Millisecond, client: fake}

	_, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	require.Equal(t, 3, fake.calls)
}

func TestOpenAIChatModelRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewOpenAIChatModel("k", "")
	_, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, context.Canceled)
}
