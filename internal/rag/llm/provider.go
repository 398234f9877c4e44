package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
)

type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// Passage is one retrieved chunk as presented to the model.
type Passage struct {
	SourceID string
	Title    string
	Page     int
	Text     string
}

type Prompt struct {
	System   string
	Question string
	Passages []Passage
	// History holds prior turns, oldest first.
	History []chatModel.Turn
}

const passageSeparator = "\n\n---\n\n"

// RenderContext numbers passages from 1 in retrieval order.
func RenderContext(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	parts := make([]string, len(passages))
	for i, p := range passages {
		label := p.Title
		if label == "" {
			label = p.SourceID
		}
		parts[i] = fmt.Sprintf("[Document %d - %s, Page %d]\n%s", i+1, label, p.Page, p.Text)
	}
	return strings.Join(parts, passageSeparator)
}

// UserMessage is the final user turn: the document context followed by the question.
func (p Prompt) UserMessage() string {
	var b strings.Builder
	if ctx := RenderContext(p.Passages); ctx != "" {
		b.WriteString("Context from the documents:\n\n")
		b.WriteString(ctx)
	} else {
		b.WriteString("No document passages matched this question.")
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(p.Question)
	return b.String()
}

// Flatten renders the whole prompt as a single text block for providers
// without a native conversation format.
func (p Prompt) Flatten() string {
	var b strings.Builder
	if len(p.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range p.History {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString(p.UserMessage())
	return b.String()
}
