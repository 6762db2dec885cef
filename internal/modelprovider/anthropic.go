package modelprovider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// AnthropicGeneration wraps the Anthropic Messages API (§4.1). Anthropic has
// no embedding or native reranking endpoint, so only Generation is
// registered for this provider. Grounded on the donor's
// internal/llm/anthropic/client.go client-construction and
// Messages.New call shape, narrowed from its tool-calling agent loop down to
// a single-turn prompt-in/text-out contract.
type AnthropicGeneration struct {
	lc      *lifecycle
	sdk     anthropic.Client
	model   string
	metrics metricsCounter
}

func NewAnthropicGeneration(spec Spec) (Generation, error) {
	opts := []option.RequestOption{option.WithAPIKey(spec.APIKey)}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(spec.BaseURL, "/")))
	}
	model := spec.ModelName
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &AnthropicGeneration{
		lc:    newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		sdk:   anthropic.NewClient(opts...),
		model: model,
	}, nil
}

func (a *AnthropicGeneration) Initialize(ctx context.Context) error {
	return a.lc.initOnce(func() error { return nil })
}

func (a *AnthropicGeneration) Generate(ctx context.Context, prompt string, params GenerationParams) (GenerationResult, error) {
	if err := a.lc.checkReady(); err != nil {
		return GenerationResult{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return GenerationResult{}, ragerrors.Validation("generate prompt must not be empty", nil)
	}
	release, err := a.lc.acquire(ctx)
	if err != nil {
		return GenerationResult{}, ragerrors.Generation("failed to acquire generation slot", err)
	}
	defer release()

	maxTokens := int64(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	start := time.Now()
	var resp *anthropic.Message
	callErr := a.lc.withRetry(ctx, func() error {
		var e error
		resp, e = a.sdk.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(a.model),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(params.Temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		return e
	}, nil)
	if callErr != nil {
		a.metrics.recordFailure(time.Since(start))
		return GenerationResult{}, ragerrors.Generation(fmt.Sprintf("anthropic messages request failed for model %s", a.model), callErr)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	result := GenerationResult{
		Text:         sb.String(),
		PromptTokens: int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	a.metrics.recordSuccess(result.PromptTokens+result.OutputTokens, time.Since(start))
	return result, nil
}

func (a *AnthropicGeneration) Cleanup(ctx context.Context) error {
	a.lc.cleanup()
	return nil
}

func (a *AnthropicGeneration) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	if a.lc.currentState() != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: true}
}

func (a *AnthropicGeneration) GetMetrics() domain.Metrics { return a.metrics.snapshot() }

func registerAnthropicProvider(r *Registry) {
	r.RegisterLazyGeneration("anthropic", func() GenerationConstructor { return NewAnthropicGeneration })
}
