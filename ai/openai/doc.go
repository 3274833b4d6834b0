// Package openai provides production implementations of the ai
// interfaces backed by HTTP model services.
//
// The embedder targets any OpenAI-compatible embeddings API (Ollama,
// LocalAI, vLLM, the OpenAI platform). The cross-encoder targets a
// Jina-style POST /rerank endpoint and wraps calls in a circuit
// breaker so a degraded rerank service fails fast instead of stalling
// retrieval.
package openai
