package modelprovider

import "strings"

// Factory resolves Specs into capability instances via a Registry,
// performing provider auto-detection and constructing (primary, fallback)
// pairs when requested (§4.1 "Auto-detection" / "factory may return a
// (primary, fallback) pair").
type Factory struct {
	registry *Registry
}

func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry}
}

// AutoDetectProvider infers a provider name from base_url when Provider is
// blank but both APIKey and BaseURL are set (§4.1 "Auto-detection"),
// otherwise it defaults to a local provider ("sentence-transformers" for
// embedding/reranking duties, "mock" here since this module ships no local
// inference binding).
func AutoDetectProvider(spec Spec, localDefault string) string {
	if spec.Provider != "" {
		return spec.Provider
	}
	if spec.APIKey == "" || spec.BaseURL == "" {
		return localDefault
	}
	host := strings.ToLower(spec.BaseURL)
	switch {
	case strings.Contains(host, "siliconflow"):
		return "siliconflow"
	case strings.Contains(host, "openai"):
		return "openai"
	case strings.Contains(host, "anthropic"):
		return "anthropic"
	case strings.Contains(host, "googleapis") || strings.Contains(host, "generativelanguage"):
		return "gemini"
	case strings.Contains(host, "deepseek"):
		return "deepseek"
	case strings.Contains(host, "modelscope"):
		return "modelscope"
	default:
		return "openai" // OpenAI-compatible gateway, the common local/self-hosted shape
	}
}

// BuildEmbedding resolves spec.Provider (auto-detecting if blank) and
// returns an Embedding instance, plus a fallback instance when
// spec.EnableFallback is set and spec.FallbackProvider resolves.
func (f *Factory) BuildEmbedding(spec Spec) (primary Embedding, fallback Embedding, err error) {
	spec.Provider = AutoDetectProvider(spec, "mock")
	ctor, err := f.registry.resolveEmbedding(spec.Provider)
	if err != nil {
		return nil, nil, err
	}
	primary, err = ctor(spec)
	if err != nil {
		return nil, nil, err
	}
	if spec.EnableFallback && spec.FallbackProvider != "" && spec.FallbackProvider != spec.Provider {
		fbSpec := spec
		fbSpec.Provider = spec.FallbackProvider
		if fbCtor, ferr := f.registry.resolveEmbedding(fbSpec.Provider); ferr == nil {
			fallback, _ = fbCtor(fbSpec)
		}
	}
	return primary, fallback, nil
}

// BuildReranking mirrors BuildEmbedding for the reranking capability.
func (f *Factory) BuildReranking(spec Spec) (primary Reranking, fallback Reranking, err error) {
	spec.Provider = AutoDetectProvider(spec, "mock")
	ctor, err := f.registry.resolveReranking(spec.Provider)
	if err != nil {
		return nil, nil, err
	}
	primary, err = ctor(spec)
	if err != nil {
		return nil, nil, err
	}
	if spec.EnableFallback && spec.FallbackProvider != "" && spec.FallbackProvider != spec.Provider {
		fbSpec := spec
		fbSpec.Provider = spec.FallbackProvider
		if fbCtor, ferr := f.registry.resolveReranking(fbSpec.Provider); ferr == nil {
			fallback, _ = fbCtor(fbSpec)
		}
	}
	return primary, fallback, nil
}

// BuildGeneration mirrors BuildEmbedding for the generation capability.
func (f *Factory) BuildGeneration(spec Spec) (primary Generation, fallback Generation, err error) {
	spec.Provider = AutoDetectProvider(spec, "mock")
	ctor, err := f.registry.resolveGeneration(spec.Provider)
	if err != nil {
		return nil, nil, err
	}
	primary, err = ctor(spec)
	if err != nil {
		return nil, nil, err
	}
	if spec.EnableFallback && spec.FallbackProvider != "" && spec.FallbackProvider != spec.Provider {
		fbSpec := spec
		fbSpec.Provider = spec.FallbackProvider
		if fbCtor, ferr := f.registry.resolveGeneration(fbSpec.Provider); ferr == nil {
			fallback, _ = fbCtor(fbSpec)
		}
	}
	return primary, fallback, nil
}
