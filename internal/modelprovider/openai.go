package modelprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// openAIClient builds an openai.Client from a Spec, honoring base_url
// overrides for OpenAI-compatible gateways (siliconflow, deepseek,
// modelscope, local vLLM/Ollama-OpenAI shims all speak this wire format).
// Grounded on _examples/Tangerg-lynx/ai/extensions/models/openai/api.go's
// openai.NewClient(option.WithAPIKey(...)) construction.
func openAIClient(spec Spec) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(spec.APIKey)}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(spec.BaseURL))
	}
	return openai.NewClient(opts...)
}

func retryAfterFromError(err error) (time.Duration, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if ra := apiErr.Response.Header.Get("Retry-After"); ra != "" {
			if secs, perr := time.ParseDuration(ra + "s"); perr == nil {
				return secs, true
			}
		}
	}
	return 0, false
}

// OpenAIEmbedding wraps the OpenAI embeddings endpoint (§4.1, registered
// lazily under "openai" and reused for OpenAI-compatible gateways whose
// base_url routes elsewhere).
type OpenAIEmbedding struct {
	lc      *lifecycle
	client  openai.Client
	model   string
	metrics metricsCounter
}

func NewOpenAIEmbedding(spec Spec) (Embedding, error) {
	if spec.ModelName == "" {
		spec.ModelName = "text-embedding-3-small"
	}
	return &OpenAIEmbedding{
		lc:     newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		client: openAIClient(spec),
		model:  spec.ModelName,
	}, nil
}

func (o *OpenAIEmbedding) Initialize(ctx context.Context) error {
	return o.lc.initOnce(func() error { return nil })
}

func (o *OpenAIEmbedding) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := o.lc.checkReady(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ragerrors.Validation("embedding request requires at least one input", nil)
	}
	release, err := o.lc.acquire(ctx)
	if err != nil {
		return nil, ragerrors.Generation("failed to acquire embedding slot", err)
	}
	defer release()

	start := time.Now()
	var resp *openai.CreateEmbeddingResponse
	callErr := o.lc.withRetry(ctx, func() error {
		var e error
		resp, e = o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: o.model,
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		})
		return e
	}, retryAfterFromError)
	if callErr != nil {
		o.metrics.recordFailure(time.Since(start))
		return nil, ragerrors.Generation(fmt.Sprintf("openai embeddings request failed for model %s", o.model), callErr)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	o.metrics.recordSuccess(len(texts), time.Since(start))
	return out, nil
}

func (o *OpenAIEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Validation("embed_query text must not be empty", nil)
	}
	vecs, err := o.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embed(ctx, texts)
}

func (o *OpenAIEmbedding) Cleanup(ctx context.Context) error {
	o.lc.cleanup()
	return nil
}

func (o *OpenAIEmbedding) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	state := o.lc.currentState()
	if state != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	_, err := o.EmbedQuery(ctx, "healthcheck")
	if err != nil {
		return domain.HealthCheckResult{Status: domain.HealthUnhealthy, ModelLoaded: true, Detail: err.Error()}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: true}
}

func (o *OpenAIEmbedding) GetMetrics() domain.Metrics { return o.metrics.snapshot() }

// OpenAIGeneration wraps the OpenAI chat completions endpoint (§4.1, §4.6
// step 5). Grounded on Tangerg-lynx's chat_model.go message-building idiom
// (openai.SystemMessage/openai.UserMessage helpers).
type OpenAIGeneration struct {
	lc      *lifecycle
	client  openai.Client
	model   string
	metrics metricsCounter
}

func NewOpenAIGeneration(spec Spec) (Generation, error) {
	if spec.ModelName == "" {
		spec.ModelName = "gpt-4o-mini"
	}
	return &OpenAIGeneration{
		lc:     newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		client: openAIClient(spec),
		model:  spec.ModelName,
	}, nil
}

func (o *OpenAIGeneration) Initialize(ctx context.Context) error {
	return o.lc.initOnce(func() error { return nil })
}

func (o *OpenAIGeneration) Generate(ctx context.Context, prompt string, params GenerationParams) (GenerationResult, error) {
	if err := o.lc.checkReady(); err != nil {
		return GenerationResult{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return GenerationResult{}, ragerrors.Validation("generate prompt must not be empty", nil)
	}
	release, err := o.lc.acquire(ctx)
	if err != nil {
		return GenerationResult{}, ragerrors.Generation("failed to acquire generation slot", err)
	}
	defer release()

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	start := time.Now()
	var resp *openai.ChatCompletion
	callErr := o.lc.withRetry(ctx, func() error {
		var e error
		resp, e = o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: o.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature:         openai.Float(params.Temperature),
			MaxCompletionTokens: openai.Int(int64(maxTokens)),
		})
		return e
	}, retryAfterFromError)
	if callErr != nil {
		o.metrics.recordFailure(time.Since(start))
		return GenerationResult{}, ragerrors.Generation(fmt.Sprintf("openai chat completion failed for model %s", o.model), callErr)
	}
	if len(resp.Choices) == 0 {
		o.metrics.recordFailure(time.Since(start))
		return GenerationResult{}, ragerrors.Generation("openai chat completion returned no choices", nil)
	}

	text := resp.Choices[0].Message.Content
	result := GenerationResult{
		Text:         text,
		PromptTokens: int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	o.metrics.recordSuccess(result.PromptTokens+result.OutputTokens, time.Since(start))
	return result, nil
}

func (o *OpenAIGeneration) Cleanup(ctx context.Context) error {
	o.lc.cleanup()
	return nil
}

func (o *OpenAIGeneration) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	state := o.lc.currentState()
	if state != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: true}
}

func (o *OpenAIGeneration) GetMetrics() domain.Metrics { return o.metrics.snapshot() }

// OpenAIReranking has no dedicated OpenAI rerank endpoint, so relevance is
// scored via a constrained chat completion that asks the model to return a
// single 0-1 float per document (§4.1 "Reranking" capability is provider
// agnostic about the underlying mechanism). Kept deliberately simple: one
// call per document, since OpenAI exposes no native batched-score API.
type OpenAIReranking struct {
	lc      *lifecycle
	client  openai.Client
	model   string
	metrics metricsCounter
}

func NewOpenAIReranking(spec Spec) (Reranking, error) {
	if spec.ModelName == "" {
		spec.ModelName = "gpt-4o-mini"
	}
	return &OpenAIReranking{
		lc:     newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		client: openAIClient(spec),
		model:  spec.ModelName,
	}, nil
}

func (o *OpenAIReranking) Initialize(ctx context.Context) error {
	return o.lc.initOnce(func() error { return nil })
}

func (o *OpenAIReranking) scoreOne(ctx context.Context, query, doc string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate how relevant the document is to the query on a scale from 0.0 to 1.0.\n"+
			"Respond with only the number.\n\nQuery: %s\n\nDocument: %s", query, doc)

	var resp *openai.ChatCompletion
	err := o.lc.withRetry(ctx, func() error {
		var e error
		resp, e = o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: o.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage("You are a precise relevance scoring function. Reply with only a decimal number between 0 and 1."),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
			MaxCompletionTokens: openai.Int(8),
		})
		return e
	}, retryAfterFromError)
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, nil
	}
	return parseRelevanceScore(resp.Choices[0].Message.Content), nil
}

func parseRelevanceScore(text string) float64 {
	text = strings.TrimSpace(text)
	var score float64
	if _, err := fmt.Sscanf(text, "%f", &score); err != nil {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (o *OpenAIReranking) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if err := o.lc.checkReady(); err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return []float64{}, nil
	}
	release, err := o.lc.acquire(ctx)
	if err != nil {
		return nil, ragerrors.Reranker("failed to acquire reranking slot", err)
	}
	defer release()

	start := time.Now()
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		s, serr := o.scoreOne(ctx, query, doc)
		if serr != nil {
			o.metrics.recordFailure(time.Since(start))
			return nil, ragerrors.Reranker("openai relevance scoring failed", serr)
		}
		scores[i] = s
	}
	o.metrics.recordSuccess(len(documents), time.Since(start))
	return scores, nil
}

func (o *OpenAIReranking) RerankBatch(ctx context.Context, queries []string, docsList [][]string) ([][]float64, error) {
	out := make([][]float64, len(queries))
	for i, q := range queries {
		scores, err := o.Rerank(ctx, q, docsList[i])
		if err != nil {
			return nil, err
		}
		out[i] = scores
	}
	return out, nil
}

func (o *OpenAIReranking) Cleanup(ctx context.Context) error {
	o.lc.cleanup()
	return nil
}

func (o *OpenAIReranking) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	state := o.lc.currentState()
	if state != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: true}
}

func (o *OpenAIReranking) GetMetrics() domain.Metrics { return o.metrics.snapshot() }

func registerOpenAICompatibleProviders(r *Registry) {
	for _, provider := range []string{"openai", "siliconflow", "deepseek", "modelscope"} {
		r.RegisterLazyEmbedding(provider, func() EmbeddingConstructor { return NewOpenAIEmbedding })
		r.RegisterLazyGeneration(provider, func() GenerationConstructor { return NewOpenAIGeneration })
		r.RegisterLazyReranking(provider, func() RerankingConstructor { return NewOpenAIReranking })
	}
}
