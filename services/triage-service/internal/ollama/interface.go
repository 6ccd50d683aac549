package ollama

import (
	"context"

	"github.com/stoik/triage/internal/models"
)

// Gateway defines the interface for the text-generation backend.
type Gateway interface {
	// Complete sends the message sequence and returns the raw completion text.
	// An empty model uses the client's default chat model.
	Complete(ctx context.Context, messages []models.ChatMessage, model string) (string, error)

	// CheckConnection reports whether the backend answered the tags probe.
	CheckConnection(ctx context.Context) bool

	// Embed returns the embedding for text, or an empty vector when unavailable.
	Embed(ctx context.Context, text string) []float64

	// ListModels returns installed model names, empty on failure.
	ListModels(ctx context.Context) []string

	// BaseURL is the configured backend address.
	BaseURL() string
}
