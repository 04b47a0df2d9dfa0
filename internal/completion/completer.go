package completion

import "context"

// Completer sends one prompt to a chat model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
