package answer

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

const systemPrompt = `You are a careful assistant answering questions about a private document collection.

You are given numbered context passages. Answer the question using only those passages.

Rules:
- If the passages do not contain the answer, say so plainly instead of guessing.
- Cite every factual claim with the passage number in square brackets, e.g. [2].
- Respond with a single JSON object, no surrounding prose, shaped as:
  {"answer": "...", "thoughts": "...", "citations": [1, 2]}
- "answer" is the user-facing answer with inline [n] citations.
- "thoughts" is a short note on how you used the passages.
- "citations" lists every passage number you relied on.`

// buildContext renders the retrieved sources as numbered passages. The
// numbering is 1-based and is the namespace the model's [n] markers
// refer back to.
func buildContext(sources []retriever.Source) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] From %s", i+1, src.DocumentName)
		if src.PageNum > 0 {
			fmt.Fprintf(&b, ", page %d", src.PageNum)
		}
		if len(src.SectionPath) > 0 {
			fmt.Fprintf(&b, ", section %s", strings.Join(src.SectionPath, " > "))
		}
		b.WriteString(":\n")
		b.WriteString(strings.TrimSpace(src.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildUserMessage(question string, sources []retriever.Source) string {
	return fmt.Sprintf("Context passages:\n\n%s\n\nQuestion: %s", buildContext(sources), question)
}
