package structured

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/aescanero/chloe/internal/application/limiter"
	"github.com/aescanero/chloe/pkg/ports"
	"go.uber.org/zap"
)

// DefaultMaxRetries is the number of repair attempts after the first call
const DefaultMaxRetries = 2

// Retrier drives a model call until it yields a schema-conformant value
type Retrier struct {
	generator ports.Generator
	limiter   *limiter.Limiter
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	maxRetries  int
	temperature float64
	maxTokens   int
	system      string
}

// Option configures a Retrier
type Option func(*Retrier)

// WithMaxRetries sets the number of repair attempts; negative values are ignored
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithGenerationDefaults sets the sampling parameters sent with every call
func WithGenerationDefaults(temperature float64, maxTokens int) Option {
	return func(r *Retrier) {
		r.temperature = temperature
		r.maxTokens = maxTokens
	}
}

// WithSystemPrompt sets the system prompt sent with every call
func WithSystemPrompt(system string) Option {
	return func(r *Retrier) {
		r.system = system
	}
}

// WithMetrics records call outcomes on m
func WithMetrics(m ports.MetricsCollector) Option {
	return func(r *Retrier) {
		r.metrics = m
	}
}

// NewRetrier creates a retrier. Every model call takes a permit from lim.
func NewRetrier(generator ports.Generator, lim *limiter.Limiter, logger *zap.Logger, opts ...Option) *Retrier {
	r := &Retrier{
		generator:  generator,
		limiter:    lim,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		maxTokens:  4096,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxRetries returns the configured number of repair attempts
func (r *Retrier) MaxRetries() int {
	return r.maxRetries
}

// Call describes one structured generation
type Call struct {
	// Name labels logs and metrics, usually the target schema
	Name   string
	Prompt string
	Model  string
}

// Result is the terminal state of a Generate call
type Result[T any] struct {
	Value    T
	Outcome  Outcome
	Attempts int
	// Err is the last error seen, nil on success
	Err error
}

// Ok reports whether the call ended in Success
func (r Result[T]) Ok() bool {
	return r.Outcome == OutcomeSuccess
}

// Generate invokes the model and parses the reply into T.
//
// Attempt 0 uses call.Prompt. Each schema failure before the last attempt
// triggers a repair prompt; any other failure ends the call immediately.
func Generate[T any](ctx context.Context, r *Retrier, call Call) Result[T] {
	logger := r.logger.With(zap.String("schema", call.Name))
	res := Result[T]{Outcome: OutcomeExhausted}

	defer func() {
		if r.metrics != nil {
			r.metrics.RecordStructuredOutcome(call.Name, string(res.Outcome), res.Attempts)
		}
	}()

	prompt := call.Prompt
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		res.Attempts = attempt + 1

		raw, err := r.invoke(ctx, call.Model, prompt)
		if err == nil {
			value, parseErr := Parse[T](raw)
			if parseErr == nil {
				res.Value = value
				res.Outcome = OutcomeSuccess
				res.Err = nil
				if attempt > 0 {
					logger.Info("structured output repaired", zap.Int("attempt", attempt))
				}
				return res
			}
			err = parseErr
		}
		res.Err = err

		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			logger.Error("model call failed, not retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return res
		}

		if attempt == r.maxRetries {
			break
		}

		logger.Warn("structured output rejected, repairing",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.maxRetries),
			zap.Error(err))

		schema, schemaGenErr := SchemaFor[T]()
		if schemaGenErr != nil {
			res.Err = schemaGenErr
			logger.Error("failed to build schema for repair prompt", zap.Error(schemaGenErr))
			return res
		}

		previous := schemaErr.Output
		if previous == "" {
			previous = raw
		}
		prompt, err = FixPrompt(schema, previous, schemaErr.Error())
		if err != nil {
			res.Err = err
			logger.Error("failed to render repair prompt", zap.Error(err))
			return res
		}
	}

	logger.Error("structured output retries exhausted",
		zap.Int("attempts", res.Attempts),
		zap.Error(res.Err))
	return res
}

// invoke sends one prompt under a limiter permit and returns the raw reply
func (r *Retrier) invoke(ctx context.Context, model, prompt string) (string, error) {
	var content string

	err := r.limiter.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		resp, err := r.generator.Generate(ctx, &ports.GenerationRequest{
			Model:       model,
			Prompt:      prompt,
			System:      r.system,
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
			JSONOutput:  true,
		})

		if r.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			r.metrics.RecordLLMCall(model, outcome, time.Since(start))
			if resp != nil {
				r.metrics.RecordLLMTokens(resp.Model, resp.InputTokens, resp.OutputTokens)
			}
		}

		if err != nil {
			return err
		}
		content = resp.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

var fixPromptTemplate = template.Must(template.New("fix").Parse(`Your previous reply could not be used because it does not match the expected JSON schema.

Expected schema:
{{.Schema}}

Your previous reply:
{{.PreviousOutput}}

Validation error:
{{.Error}}

Reply again with a single JSON object that matches the schema exactly.
Keep the meaning of your previous reply. Include every required field, use the declared types, and do not add fields the schema does not declare.
Reply with JSON only.`))

// FixPrompt renders the repair prompt sent after a schema failure
func FixPrompt(schema, previousOutput, validationError string) (string, error) {
	if previousOutput == "" {
		previousOutput = "No output captured"
	}

	var buf bytes.Buffer
	err := fixPromptTemplate.Execute(&buf, struct {
		Schema         string
		PreviousOutput string
		Error          string
	}{schema, previousOutput, validationError})
	if err != nil {
		return "", fmt.Errorf("failed to render fix prompt: %w", err)
	}
	return buf.String(), nil
}
