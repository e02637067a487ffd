package out

import "context"

// LLMCompleter sends one prompt to a generative model and returns its raw reply.
type LLMCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}
