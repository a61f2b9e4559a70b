package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-be/pkg/llm"
	"pdf-qa-be/pkg/vectorstore"
)

type fakeProvider struct {
	lastPrompt string
	reply      string
	err        error
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.reply, f.err
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func TestAnswerBuildsGroundedPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "Revenue grew 12%."}
	a := NewAnswerer(provider)

	answer, err := a.Answer(context.Background(), "How did revenue do?", []vectorstore.Snippet{
		{Document: "Revenue grew 12% year over year.", Filename: "q3.pdf", Similarity: 0.92},
		{Document: "Costs were flat.", Filename: "q3.pdf", Similarity: 0.81},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", answer)

	assert.Contains(t, provider.lastPrompt, "[from q3.pdf]")
	assert.Contains(t, provider.lastPrompt, "Revenue grew 12% year over year.")
	assert.Contains(t, provider.lastPrompt, "Costs were flat.")
	assert.Contains(t, provider.lastPrompt, "Question: How did revenue do?")
	assert.Contains(t, provider.lastPrompt, "I cannot find the answer in the provided documents.")
}

func TestAnswerWithNoSnippets(t *testing.T) {
	provider := &fakeProvider{reply: "I cannot find the answer in the provided documents."}
	a := NewAnswerer(provider)

	answer, err := a.Answer(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, "I cannot find the answer in the provided documents.", answer)
	assert.Contains(t, provider.lastPrompt, "Question: Anything?")
}

func TestAnswerPropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model overloaded")}
	a := NewAnswerer(provider)

	_, err := a.Answer(context.Background(), "Question", nil)
	assert.Error(t, err)
}
