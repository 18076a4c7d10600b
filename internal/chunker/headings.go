package chunker

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// heading is a Markdown heading located at a 1-based source line.
type heading struct {
	line  int
	level int
	title string
}

// extractHeadings parses source as Markdown and returns its headings in
// document order, each mapped back to the source line it starts on.
func extractHeadings(source []byte) []heading {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var headings []heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}

		var title bytes.Buffer
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			title.Write(seg.Value(source))
		}

		seg := lines.At(0)
		line := 1 + bytes.Count(source[:seg.Start], []byte("\n"))
		headings = append(headings, heading{
			line:  line,
			level: h.Level,
			title: string(bytes.TrimSpace(title.Bytes())),
		})
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// sectionPathAt returns the stack of headings enclosing the given 1-based
// line: the most recent heading at each nesting level, outermost first.
// Lines before the first heading get an empty path.
func sectionPathAt(headings []heading, line int) []string {
	var stack []heading
	for _, h := range headings {
		if h.line > line {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)
	}
	if len(stack) == 0 {
		return nil
	}
	path := make([]string, len(stack))
	for i, h := range stack {
		path[i] = h.title
	}
	return path
}
