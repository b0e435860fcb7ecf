// Package llm talks to the generative model. Providers return raw model text
// for a request; Client adds timeouts, retries and JSON decoding on top.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrGenerationFailed wraps the last error once every attempt is spent.
	ErrGenerationFailed = errors.New("generation failed")
	ErrEmptyResponse    = errors.New("empty response from model")
	ErrInvalidResponse  = errors.New("model response does not match the requested shape")
	ErrUnknownKind      = errors.New("unknown request kind")
)

// Kind selects the structured shape the model must answer with.
type Kind string

const (
	KindChoices     Kind = "choices"
	KindConsequence Kind = "consequence"
	KindAnswer      Kind = "answer"
)

// Request is a single structured generation call.
type Request struct {
	Kind      Kind
	Prompt    string
	MaxTokens int
}

// Provider is one model backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}
