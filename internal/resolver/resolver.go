package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashwch/coreshell/internal/command"
	"github.com/ashwch/coreshell/internal/i18n"
	"github.com/ashwch/coreshell/internal/logging"
	"github.com/ashwch/coreshell/internal/safety"
	"go.uber.org/zap"
)

const DefaultTimeout = 20 * time.Second

type Status string

const (
	StatusEmpty         Status = "empty"
	StatusFound         Status = "found"
	StatusAIUnavailable Status = "ai_unavailable"
	StatusAIFailed      Status = "ai_failed"
)

// Lookup is the local tier.
type Lookup interface {
	Lookup(query string) (command.Record, bool)
}

// Generator is the AI tier. provider.Chain satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Outcome struct {
	Record  command.Record `json:"record"`
	Origin  command.Origin `json:"origin,omitempty"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
}

func (o Outcome) Found() bool {
	return o.Status == StatusFound
}

type Resolver struct {
	kb       Lookup
	ai       Generator
	timeout  time.Duration
	logger   *zap.Logger
	messages i18n.Messages
}

type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrNop(logger)
	}
}

func WithMessages(messages i18n.Messages) Option {
	return func(r *Resolver) {
		r.messages = messages
	}
}

// New builds a resolver. A nil ai disables the AI tier.
func New(kb Lookup, ai Generator, opts ...Option) *Resolver {
	r := &Resolver{
		kb:       kb,
		ai:       ai,
		timeout:  DefaultTimeout,
		logger:   logging.OrNop(nil),
		messages: i18n.Builtin("en").Messages,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) AIEnabled() bool {
	return r.ai != nil
}

// Resolve never returns an error: every failure is folded into the Outcome.
func (r *Resolver) Resolve(ctx context.Context, query string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	// substring lookup would match every key on a blank query
	if strings.TrimSpace(query) == "" {
		return Outcome{Status: StatusEmpty, Message: r.messages.EmptyQuery}
	}

	if r.kb != nil {
		if record, ok := r.kb.Lookup(query); ok {
			r.logger.Debug("resolved locally", zap.String("query", query), zap.String("key", record.Name))
			return Outcome{Record: record, Origin: command.OriginLocal, Status: StatusFound}
		}
	}

	if r.ai == nil {
		r.logger.Debug("local miss, AI unavailable", zap.String("query", query))
		return Outcome{Status: StatusAIUnavailable, Message: r.messages.AIUnavailable}
	}

	start := time.Now()
	aiCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.ai.Generate(aiCtx, BuildPrompt(query))
	if err == nil && aiCtx.Err() != nil {
		err = aiCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(aiCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("no answer within %s: %w", r.timeout, err)
		}
		message := safety.RedactError(err)
		r.logger.Warn("AI resolution failed",
			zap.String("query", query),
			zap.Duration("duration", time.Since(start)),
			zap.String("error", message))
		return Outcome{Status: StatusAIFailed, Message: fmt.Sprintf(r.messages.AIFailed, message)}
	}

	response := ParseResponse(text)
	r.logger.Debug("resolved by AI",
		zap.String("query", query),
		zap.Duration("duration", time.Since(start)),
		zap.String("warn", response.Warn))
	return Outcome{Record: response.Record(query), Origin: command.OriginAI, Status: StatusFound}
}
