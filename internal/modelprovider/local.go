package modelprovider

import (
	"fmt"

	"ragcore/internal/ragerrors"
)

// registerLocalProviders registers the source's local-inference provider
// names (sentence-transformers, huggingface, ollama) so that resolution
// fails closed with an UnsupportedProviderError rather than reporting an
// unknown provider (§4.1: "a provider declared in configuration but
// unavailable at runtime ... must fail closed, not silently substitute
// another provider"). This module ships no local inference binding:
// sentence-transformers and huggingface are Python-only in the source, and
// wiring an embedded ONNX/ggml runtime is out of scope; ollama is reachable
// over HTTP but speaks its own non-OpenAI-compatible API that would need a
// dedicated client, which nothing in the example pack provides.
func registerLocalProviders(r *Registry) {
	for _, provider := range []string{"sentence-transformers", "huggingface", "ollama"} {
		name := provider
		r.RegisterLazyEmbedding(name, func() EmbeddingConstructor {
			return func(spec Spec) (Embedding, error) { return nil, unavailableProviderErr(name) }
		})
		r.RegisterLazyGeneration(name, func() GenerationConstructor {
			return func(spec Spec) (Generation, error) { return nil, unavailableProviderErr(name) }
		})
		r.RegisterLazyReranking(name, func() RerankingConstructor {
			return func(spec Spec) (Reranking, error) { return nil, unavailableProviderErr(name) }
		})
	}
}

func unavailableProviderErr(name string) error {
	return ragerrors.UnsupportedProvider(fmt.Sprintf("provider %q has no local inference binding in this build", name), nil)
}
