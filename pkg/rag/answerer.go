package rag

import (
	"context"
	"fmt"
	"strings"

	"pdf-qa-be/pkg/llm"
	"pdf-qa-be/pkg/vectorstore"
)

// Answerer is the reasoning boundary: it turns a question and retrieved
// context into an answer.
type Answerer interface {
	Answer(ctx context.Context, question string, snippets []vectorstore.Snippet) (string, error)
}

type llmAnswerer struct {
	provider llm.LLMProvider
}

func NewAnswerer(provider llm.LLMProvider) Answerer {
	return &llmAnswerer{provider: provider}
}

const answerPromptTemplate = `Based on the following context, answer the question.
If the answer cannot be found in the context, say "I cannot find the answer in the provided documents."

Context:
%s

Question: %s`

func (a *llmAnswerer) Answer(ctx context.Context, question string, snippets []vectorstore.Snippet) (string, error) {
	var sb strings.Builder
	for _, s := range snippets {
		if s.Filename != "" {
			sb.WriteString(fmt.Sprintf("[from %s]\n", s.Filename))
		}
		sb.WriteString(s.Document)
		sb.WriteString("\n\n")
	}

	prompt := fmt.Sprintf(answerPromptTemplate, strings.TrimSpace(sb.String()), question)
	return a.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
}
