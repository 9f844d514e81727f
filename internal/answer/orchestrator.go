package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// promptTemplate embeds the question and the assembled context. The context
// text already carries [n] citation markers from the assembler.
const promptTemplate = `Context:
%s
Question: %s

Answer the question using only the context above.`

// BuildPrompt renders the fixed prompt template.
func BuildPrompt(question string, c *models.Context) string {
	return fmt.Sprintf(promptTemplate, c.Text, question)
}

// Orchestrator calls the generation function and attaches provenance.
type Orchestrator struct {
	generator Generator
}

// NewOrchestrator creates an orchestrator over the given generator.
func NewOrchestrator(g Generator) *Orchestrator {
	return &Orchestrator{generator: g}
}

// Answer generates a grounded answer for question from the assembled context
// and attaches the context's citation map in order. A failed call surfaces
// ErrGenerationUnavailable; a deadline hit surfaces ErrTimeout. Both are
// distinct from "no relevant results": something was found here but could
// not be explained.
func (o *Orchestrator) Answer(ctx context.Context, question string, c *models.Context) (*models.Answer, error) {
	text, err := o.generator.Generate(ctx, BuildPrompt(question, c))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: generation: %v", models.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	ans := &models.Answer{
		Text:      strings.TrimSpace(text),
		Citations: c.Citations,
	}
	if len(c.Citations) > 0 {
		ans.AnswerType = c.Citations[0].SourceType
	}
	return ans, nil
}
