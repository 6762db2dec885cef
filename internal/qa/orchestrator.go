// Package qa implements C6: the QA orchestrator's answer_question
// operation (§4.6) — session bootstrap, retrieval, context assembly,
// prompt building, generation with degraded fallback, confidence scoring,
// and history persistence.
//
// Grounded on the donor's internal/rag/service/service.go: functional-
// options Service construction (New/Option/With*), and the same
// per-stage-timing-then-package-result shape Retrieve uses, adapted from
// search+fusion+rerank to retrieve+assemble+generate+score.
package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragcore/internal/config"
	"ragcore/internal/domain"
	"ragcore/internal/history"
	"ragcore/internal/modelprovider"
	"ragcore/internal/ragerrors"
)

// Retriever is the subset of retrieval.Engine the orchestrator calls (§4.6
// step 2), narrowed so tests can supply a fake without a real Engine.
type Retriever interface {
	SearchWithConfig(ctx context.Context, query string, cfg domain.RetrievalConfig) ([]domain.SearchResult, error)
}

// Generator is the subset of modelprovider.Generation the orchestrator
// needs (§4.6 step 5).
type Generator interface {
	Generate(ctx context.Context, prompt string, params modelprovider.GenerationParams) (modelprovider.GenerationResult, error)
}

var _ Generator = modelprovider.Generation(nil)

// ConfigSource exposes the live config snapshot the orchestrator reads
// per-call (retrieval config, LLM temperature/max_tokens/timeout/
// max_context_length), so a hot reload via C7 is picked up by the next
// question without the orchestrator holding a stale copy. *config.Manager
// satisfies this directly; tests supply a fixed struct instead.
type ConfigSource interface {
	Current() config.AppConfig
}

// degradedAnswer is returned verbatim whenever generation times out or
// errors (§4.6 step 5).
const degradedAnswer = "I cannot answer this question due to a temporary issue"

// ConfidenceWeights are the (w1, w2, w3) weights of §4.6 step 6's formula,
// defaulting to the spec's (0.6, 0.25, 0.15).
type ConfidenceWeights struct {
	Similarity  float64
	SourceCount float64
	Length      float64
}

// DefaultConfidenceWeights is the spec's default weighting.
var DefaultConfidenceWeights = ConfidenceWeights{Similarity: 0.6, SourceCount: 0.25, Length: 0.15}

// Orchestrator implements answer_question (§4.6).
type Orchestrator struct {
	history  history.Store
	retrieve Retriever
	generate func(ctx context.Context) (Generator, error)
	configs  ConfigSource
	log      zerolog.Logger
	clock    func() time.Time
	weights  ConfidenceWeights
}

// New constructs an Orchestrator, mirroring the donor's functional-options
// Service construction (internal/rag/service/service.go's New/Option).
func New(hist history.Store, retriever Retriever, generate func(ctx context.Context) (Generator, error), configs ConfigSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		history:  hist,
		retrieve: retriever,
		generate: generate,
		configs:  configs,
		log:      zerolog.Nop(),
		clock:    time.Now,
		weights:  DefaultConfidenceWeights,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures an Orchestrator during construction.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(l zerolog.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithClock overrides time.Now, for deterministic tests.
func WithClock(c func() time.Time) Option { return func(o *Orchestrator) { o.clock = c } }

// WithConfidenceWeights overrides the default (0.6, 0.25, 0.15) weighting.
func WithConfidenceWeights(w ConfidenceWeights) Option {
	return func(o *Orchestrator) { o.weights = w }
}

// AnswerQuestion runs the full §4.6 pipeline.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, question, sessionID, userID string) (domain.QAResponse, error) {
	start := o.clock()

	// Step 1: session bootstrap.
	if sessionID == "" {
		session, err := o.history.CreateSession(ctx, userID, "")
		if err != nil {
			return domain.QAResponse{}, ragerrors.Session("failed to create session for question", err)
		}
		sessionID = session.ID
	}

	// Step 2: retrieval.
	cfg := o.configs.Current()
	results, err := o.retrieve.SearchWithConfig(ctx, question, cfg.Retrieval)
	if err != nil {
		return domain.QAResponse{}, ragerrors.Retrieval("retrieval failed while answering question", err)
	}

	// Step 3: context assembly.
	assembled := assembleContext(results, cfg.LLM.MaxContextLength)

	// Step 4: prompt building.
	systemPrompt, userPrompt := buildPrompt(question, assembled)
	prompt := systemPrompt + "\n\n" + userPrompt

	sources := toSourceAttributions(results)

	// Step 5: generation, with degraded fallback on timeout/error.
	answer, confidence := o.generateAnswer(ctx, prompt, cfg, results, sources)

	elapsed := o.clock().Sub(start)

	// Step 7: history write.
	turn := domain.QATurn{
		ID:               domain.NewID(),
		SessionID:        sessionID,
		Question:         question,
		Answer:           answer,
		Sources:          sources,
		ConfidenceScore:  confidence,
		ProcessingTimeMS: elapsed.Milliseconds(),
		CreatedAt:        o.clock(),
	}
	if err := o.history.AppendTurn(ctx, turn); err != nil {
		o.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to persist qa turn")
	}

	return domain.QAResponse{
		Question:         question,
		Answer:           answer,
		Sources:          sources,
		ConfidenceScore:  confidence,
		SessionID:        sessionID,
		ProcessingTimeMS: elapsed.Milliseconds(),
	}, nil
}

// generateAnswer runs step 5 (generation with deadline+fallback) and step 6
// (confidence scoring), returning a confidence of 0 whenever the degraded
// answer is used.
func (o *Orchestrator) generateAnswer(ctx context.Context, prompt string, cfg config.AppConfig, results []domain.SearchResult, sources []domain.SourceAttribution) (string, float64) {
	llm, err := o.generate(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("no active generation model, returning degraded answer")
		return degradedAnswer, 0
	}

	deadline := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	genCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, err := llm.Generate(genCtx, prompt, modelprovider.GenerationParams{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		o.log.Warn().Err(err).Msg("generation failed or timed out, returning degraded answer")
		return degradedAnswer, 0
	}

	confidence := confidenceScore(results, len(sources), result.Text, o.weights)
	return result.Text, confidence
}

// assembleContext concatenates chunk contents in retrieved order, each
// prefixed "[Source i: <document_name>]", truncated to maxChars. Trailing
// sources are dropped whole rather than mid-content; only a first source
// that alone exceeds maxChars is cut, to its first maxChars characters
// (§4.6 step 3).
func assembleContext(results []domain.SearchResult, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 4000
	}
	var parts []string
	total := 0
	for i, r := range results {
		name := documentName(r)
		block := fmt.Sprintf("[Source %d: %s]\n%s", i+1, name, r.Content)
		if total+len(block) > maxChars {
			if len(parts) == 0 {
				if runes := []rune(block); len(runes) > maxChars {
					block = string(runes[:maxChars])
				}
				parts = append(parts, block)
			}
			break
		}
		parts = append(parts, block)
		total += len(block) + 2
	}
	return strings.Join(parts, "\n\n")
}

func documentName(r domain.SearchResult) string {
	if r.Metadata != nil {
		if name, ok := r.Metadata["document_name"].(string); ok && name != "" {
			return name
		}
	}
	return r.DocumentID
}

// buildPrompt implements §4.6 step 4.
func buildPrompt(question, context string) (system, user string) {
	system = "Answer the user's question using only the information in the provided sources. " +
		"If the sources do not contain the answer, say that the information is not available."
	user = question + "\n\n" + context
	return system, user
}

// toSourceAttributions converts retrieval hits into the history-facing
// attribution shape, with 200-char content previews (§4.6 step 7).
func toSourceAttributions(results []domain.SearchResult) []domain.SourceAttribution {
	out := make([]domain.SourceAttribution, len(results))
	for i, r := range results {
		preview := r.Content
		if runes := []rune(preview); len(runes) > 200 {
			preview = string(runes[:200])
		}
		attr := domain.SourceAttribution{
			ChunkID:         r.ChunkID,
			DocumentID:      r.DocumentID,
			DocumentName:    documentName(r),
			SimilarityScore: r.SimilarityScore,
			ContentPreview:  preview,
		}
		if score, ok := r.RerankScore(); ok {
			attr.RerankScore = &score
		}
		out[i] = attr
	}
	return out
}
