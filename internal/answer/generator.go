// Package answer turns an assembled context and a question into a grounded
// answer with citations.
package answer

import "context"

// Generator is the external generation capability: prompt in, prose out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
