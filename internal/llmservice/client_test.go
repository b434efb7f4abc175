package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"document-diff/internal/config"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.resp, f.err
}

func choice(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func TestGenerateSendsHumanMessage(t *testing.T) {
	m := &fakeModel{resp: choice("  the answer  ")}
	got, err := Generate(context.Background(), m, "compare these")
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)

	require.Len(t, m.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[0].Role)
	require.Len(t, m.messages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "compare these"}, m.messages[0].Parts[0])
}

func TestGenerateStripsThinkBlocks(t *testing.T) {
	m := &fakeModel{resp: choice("<think>\nweighing the clauses\n</think>\n{\"summary\": \"x\"}")}
	got, err := Generate(context.Background(), m, "p")
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "x"}`, got)
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(context.Background(), &fakeModel{err: errors.New("503 unavailable")}, "p")
	require.EqualError(t, err, "503 unavailable")

	_, err = Generate(context.Background(), &fakeModel{resp: &llms.ContentResponse{}}, "p")
	require.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(&config.LLMConfig{Provider: "vertex"})
	require.Error(t, err)

	g, err := NewGenerator(&config.LLMConfig{Provider: "openai", Key: "Bearer sk-test", Model: "gpt-4o-mini", BaseURL: "http://localhost:9999/v1"})
	require.NoError(t, err)
	assert.NotNil(t, g)

	g, err = NewGenerator(&config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		open   byte
		close  byte
		want   string
		wantOK bool
	}{
		{"object in fence", "```json\n{\"a\": {\"b\": 1}}\n```", '{', '}', `{"a": {"b": 1}}`, true},
		{"array with chatter", "Here you go: [{\"x\": 1}] done", '[', ']', `[{"x": 1}]`, true},
		{"missing", "no json here", '{', '}', "", false},
		{"reversed", "} then {", '{', '}', "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.raw, tt.open, tt.close)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
