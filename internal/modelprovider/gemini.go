package modelprovider

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// geminiClient constructs a genai.Client from a Spec. Grounded on the
// donor's internal/llm/google/client.go New(), narrowed to the API-key path
// (no Vertex/ADC wiring, since the base spec only ever supplies api_key +
// base_url per provider).
func geminiClient(ctx context.Context, spec Spec) (*genai.Client, error) {
	httpOpts := genai.HTTPOptions{}
	if spec.BaseURL != "" {
		httpOpts.BaseURL = strings.TrimSuffix(spec.BaseURL, "/") + "/"
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      spec.APIKey,
		HTTPOptions: httpOpts,
	})
}

// GeminiGeneration wraps genai's GenerateContent call (§4.1).
type GeminiGeneration struct {
	lc      *lifecycle
	client  *genai.Client
	model   string
	metrics metricsCounter
}

func NewGeminiGeneration(spec Spec) (Generation, error) {
	client, err := geminiClient(context.Background(), spec)
	if err != nil {
		return nil, ragerrors.ModelInit("failed to construct gemini client", err)
	}
	model := spec.ModelName
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGeneration{
		lc:     newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiGeneration) Initialize(ctx context.Context) error {
	return g.lc.initOnce(func() error { return nil })
}

func (g *GeminiGeneration) Generate(ctx context.Context, prompt string, params GenerationParams) (GenerationResult, error) {
	if err := g.lc.checkReady(); err != nil {
		return GenerationResult{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return GenerationResult{}, ragerrors.Validation("generate prompt must not be empty", nil)
	}
	release, err := g.lc.acquire(ctx)
	if err != nil {
		return GenerationResult{}, ragerrors.Generation("failed to acquire generation slot", err)
	}
	defer release()

	maxTokens := int32(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := float32(params.Temperature)

	start := time.Now()
	var resp *genai.GenerateContentResponse
	callErr := g.lc.withRetry(ctx, func() error {
		var e error
		resp, e = g.client.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
			&genai.GenerateContentConfig{
				Temperature:     &temp,
				MaxOutputTokens: maxTokens,
			})
		return e
	}, nil)
	if callErr != nil {
		g.metrics.recordFailure(time.Since(start))
		return GenerationResult{}, ragerrors.Generation(fmt.Sprintf("gemini generateContent failed for model %s", g.model), callErr)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		g.metrics.recordFailure(time.Since(start))
		return GenerationResult{}, ragerrors.Generation("gemini returned no candidates", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	promptTokens, outputTokens := 0, 0
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	result := GenerationResult{Text: sb.String(), PromptTokens: promptTokens, OutputTokens: outputTokens}
	g.metrics.recordSuccess(promptTokens+outputTokens, time.Since(start))
	return result, nil
}

func (g *GeminiGeneration) Cleanup(ctx context.Context) error {
	g.lc.cleanup()
	return nil
}

func (g *GeminiGeneration) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	if g.lc.currentState() != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: true}
}

func (g *GeminiGeneration) GetMetrics() domain.Metrics { return g.metrics.snapshot() }

// GeminiEmbedding wraps genai's EmbedContent call (§4.1).
type GeminiEmbedding struct {
	lc         *lifecycle
	client     *genai.Client
	model      string
	dimensions int
	metrics    metricsCounter
}

func NewGeminiEmbedding(spec Spec) (Embedding, error) {
	client, err := geminiClient(context.Background(), spec)
	if err != nil {
		return nil, ragerrors.ModelInit("failed to construct gemini client", err)
	}
	model := spec.ModelName
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedding{
		lc:     newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiEmbedding) Initialize(ctx context.Context) error {
	return g.lc.initOnce(func() error { return nil })
}

func (g *GeminiEmbedding) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.lc.checkReady(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ragerrors.Validation("embedding request requires at least one input", nil)
	}
	release, err := g.lc.acquire(ctx)
	if err != nil {
		return nil, ragerrors.Generation("failed to acquire embedding slot", err)
	}
	defer release()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	start := time.Now()
	var resp *genai.EmbedContentResponse
	callErr := g.lc.withRetry(ctx, func() error {
		var e error
		resp, e = g.client.Models.EmbedContent(ctx, g.model, contents, nil)
		return e
	}, nil)
	if callErr != nil {
		g.metrics.recordFailure(time.Since(start))
		return nil, ragerrors.Generation(fmt.Sprintf("gemini embedContent failed for model %s", g.model), callErr)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	if len(out) > 0 {
		g.dimensions = len(out[0])
	}
	g.metrics.recordSuccess(len(texts), time.Since(start))
	return out, nil
}

func (g *GeminiEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Validation("embed_query text must not be empty", nil)
	}
	vecs, err := g.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, texts)
}

func (g *GeminiEmbedding) Cleanup(ctx context.Context) error {
	g.lc.cleanup()
	return nil
}

func (g *GeminiEmbedding) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	state := g.lc.currentState()
	if state != domain.ModelLoaded {
		return domain.HealthCheckResult{Status: domain.HealthUnknown, ModelLoaded: false}
	}
	return domain.HealthCheckResult{Status: domain.HealthHealthy, Dimensions: g.dimensions, ModelLoaded: true}
}

func (g *GeminiEmbedding) GetMetrics() domain.Metrics { return g.metrics.snapshot() }

func registerGeminiProvider(r *Registry) {
	r.RegisterLazyGeneration("gemini", func() GenerationConstructor { return NewGeminiGeneration })
	r.RegisterLazyEmbedding("gemini", func() EmbeddingConstructor { return NewGeminiEmbedding })
}
