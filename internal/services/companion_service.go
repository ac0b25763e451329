package services

import (
	"context"
	"fmt"
	"log/slog"

	"companion/internal/models"
	"companion/pkg/auth"
)

// Completer produces a completion for a composed prompt
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UsageLimiter enforces a per-user chat allowance. Implementations fail open.
type UsageLimiter interface {
	Allow(ctx context.Context, userID string) error
}

// Reply is the result of one pipeline run
type Reply struct {
	UserID  string
	Text    string
	Summary models.ContextSummary
}

// CompanionService runs the per-request pipeline:
// verify -> aggregate -> synthesize -> compose -> complete.
// It holds no per-request state and is safe for concurrent use.
type CompanionService struct {
	verifier   auth.Verifier
	aggregator *InsightAggregator
	composer   *PromptComposer
	completer  Completer
	limiter    UsageLimiter // optional
}

// NewCompanionService wires the pipeline stages together
func NewCompanionService(verifier auth.Verifier, aggregator *InsightAggregator, composer *PromptComposer, completer Completer) *CompanionService {
	return &CompanionService{
		verifier:   verifier,
		aggregator: aggregator,
		composer:   composer,
		completer:  completer,
	}
}

// SetUsageLimiter enables the per-user daily quota
func (s *CompanionService) SetUsageLimiter(limiter UsageLimiter) {
	s.limiter = limiter
}

// Reply answers message on behalf of the holder of token.
// The message is validated before any remote call.
func (s *CompanionService) Reply(ctx context.Context, token, message string) (*Reply, error) {
	if err := ValidateMessage(message); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing authorization header", auth.ErrUnauthenticated)
	}

	user, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	// History reads may act on the user's behalf
	insights := s.aggregator.Gather(auth.ContextWithToken(ctx, token), user.ID)
	summary := SynthesizeContext(insights)

	prompt, err := s.composer.Compose(summary, message)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "prompt composed",
		"user_id", user.ID,
		"has_context", summary.HasData,
		"prompt_chars", len(prompt),
	)

	text, err := s.completer.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Reply{
		UserID:  user.ID,
		Text:    text,
		Summary: summary,
	}, nil
}
