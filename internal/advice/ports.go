// Package advice turns the transaction log into short saving tips using a
// language model.
package advice

import "context"

// Generator sends a prompt to a text model and returns its reply.
//
//go:generate mockgen -destination=mocks/mock_generator.go -package=mocks -source=ports.go Generator
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
