package service

import (
	"context"
	"errors"

	"voice-aftercare/model"
)

// ErrLLMDisabled returned by the no-op provider
var ErrLLMDisabled = errors.New("llm collaborator disabled")

// LLMProvider answers free-form turns. Implementations must honor ctx.
type LLMProvider interface {
	Respond(ctx context.Context, prompt string, llmCtx model.LLMContext) (*model.LLMReply, error)
}

// NoopLLM provider used when the assistant runs without an LLM
type NoopLLM struct{}

func (NoopLLM) Respond(ctx context.Context, prompt string, llmCtx model.LLMContext) (*model.LLMReply, error) {
	return nil, ErrLLMDisabled
}
