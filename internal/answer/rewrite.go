package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/llm"
)

const rewritePrompt = `Rewrite the user's question as a short, self-contained search query for a document retrieval system.

Rules:
- Keep every product, company, and document name from the question.
- Expand pronouns and vague references into explicit terms.
- Reply with the rewritten query only, no quotes, no explanation.`

// RewriteQuery asks the model to turn a conversational question into a
// retrieval-friendly query. On any failure the original question is
// returned so retrieval never blocks on the rewrite.
func (c *Composer) RewriteQuery(ctx context.Context, question string) string {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: rewritePrompt},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens: 256,
	})
	if err != nil {
		c.logger.Warn("query rewrite failed, using original question", zap.Error(err))
		return question
	}

	rewritten := strings.TrimSpace(resp.Content)
	rewritten = strings.Trim(rewritten, `"`)
	if rewritten == "" {
		return question
	}
	return rewritten
}
