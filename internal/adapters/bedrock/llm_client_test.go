package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  []byte
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestGenerateClaudeMessages(t *testing.T) {
	invoker := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"{\"winner\":1"},{"type":"text","text":",\"explanation\":\"cheapest\"}"}]}`)}
	client := NewClient(invoker, "anthropic.claude-3-haiku-20240307-v1:0", 512, 0.1, 0.9, zap.NewNop())

	text, err := client.Generate(context.Background(), "compare")
	require.NoError(t, err)
	assert.Equal(t, `{"winner":1,"explanation":"cheapest"}`, text)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Equal(t, "bedrock-2023-05-31", payload["anthropic_version"])
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *invoker.input.ModelId)
}

func TestGenerateClaudeCompletion(t *testing.T) {
	invoker := &fakeInvoker{body: []byte(`{"completion":"{\"summary\":\"ok\"}"}`)}
	client := NewClient(invoker, "anthropic.claude-v2", 512, 0.1, 0.9, zap.NewNop())

	text, err := client.Generate(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, text)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
	assert.Contains(t, payload["prompt"], "\n\nHuman: ")
	assert.Contains(t, payload["prompt"], "\n\nAssistant:")
}

func TestGenerateTitanEmpty(t *testing.T) {
	invoker := &fakeInvoker{body: []byte(`{"results":[]}`)}
	client := NewClient(invoker, "amazon.titan-text-express-v1", 512, 0.1, 0.9, zap.NewNop())

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
}

func TestGenerateInvokeError(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("throttled")}
	client := NewClient(invoker, "meta.llama3-8b-instruct-v1:0", 512, 0.1, 0.9, zap.NewNop())

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
