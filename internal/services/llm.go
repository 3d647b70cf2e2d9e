// Package services holds the LLM provider clients. Providers return raw
// model output; decoding into domain records happens in the engine.
package services

import (
	"context"

	"github.com/eduquest/adventure-engine/pkg/chat"
)

// LLMService defines the interface for interacting with a text generation API
type LLMService interface {
	// InitModel initializes the LLM model on startup
	InitModel(ctx context.Context, modelName string) error

	// GenerateContent generates a completion for the given messages and
	// returns the raw assistant text
	GenerateContent(ctx context.Context, messages []chat.Message) (string, error)
}

// ImageService defines the interface for image generation APIs
type ImageService interface {
	// GenerateImage generates an image for the prompt and returns its URL
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
