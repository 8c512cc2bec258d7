/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package summarize turns a rendered pull request context into
// changelog prose via a chat model. The output is treated as opaque
// text downstream: first line a summary, remaining lines bullets.
package summarize

import (
	"context"
	"fmt"
	"strings"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "You are a senior release engineer. Produce a concise, detailed, and actionable changelog entry suitable for a daily Notion changelog page. " +
	"Focus on user-visible changes, API/DB migrations, risk/rollback notes, and follow-ups. Use clear bullets; avoid code diffs."

const userPromptFormat = `From the following PR context, write a changelog section with:
- What changed (grouped by area or feature)
- Why it changed (intent)
- Impact and risks (perf, UX, reliability)
- Migration/ops notes if relevant
- Link text: include the PR number and title in the heading

Keep it crisp (6-12 bullets). If context is sparse, infer carefully but do not hallucinate.

Context:
---
%s
---

Output format:
- Start with a one-line summary.
- Then a bullet list (one point per line).`

// ChatModel is the slice of an eino chat model the summarizer needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Messages builds the role-tagged prompt for one rendered context.
func Messages(prContext string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf(userPromptFormat, prContext)),
	}
}

// Summarizer generates changelog text from rendered contexts.
type Summarizer struct {
	model ChatModel
}

// New returns a Summarizer backed by the given chat model.
func New(m ChatModel) *Summarizer {
	return &Summarizer{model: m}
}

// NewOpenAI returns a Summarizer backed by an OpenAI chat model.
func NewOpenAI(ctx context.Context, apiKey, modelName string) (*Summarizer, error) {
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model %q: %w", modelName, err)
	}
	return New(cm), nil
}

// Summarize renders the prompt for prContext and returns the model's
// reply with surrounding whitespace trimmed.
func (s *Summarizer) Summarize(ctx context.Context, prContext string) (string, error) {
	resp, err := s.model.Generate(ctx, Messages(prContext))
	if err != nil {
		return "", fmt.Errorf("generating changelog summary: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
