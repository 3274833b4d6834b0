package rerank

// ModelInfo describes a cross-encoder model.
type ModelInfo struct {
	// Name is the full model identifier sent to the rerank service.
	Name string

	// Description summarizes speed/accuracy tradeoffs.
	Description string

	// MaxLength is the model's maximum input length in tokens.
	MaxLength int
}

// DefaultModel balances speed and accuracy.
const DefaultModel = "ms-marco-MiniLM-L-6-v2"

var knownModels = map[string]ModelInfo{
	"ms-marco-MiniLM-L-6-v2": {
		Name:        "cross-encoder/ms-marco-MiniLM-L-6-v2",
		Description: "Fast and efficient, good for general use (22M params)",
		MaxLength:   512,
	},
	"ms-marco-MiniLM-L-12-v2": {
		Name:        "cross-encoder/ms-marco-MiniLM-L-12-v2",
		Description: "Better accuracy than L-6, still fast (33M params)",
		MaxLength:   512,
	},
	"bge-reranker-base": {
		Name:        "BAAI/bge-reranker-base",
		Description: "Good balance of performance and accuracy (278M params)",
		MaxLength:   512,
	},
	"bge-reranker-large": {
		Name:        "BAAI/bge-reranker-large",
		Description: "High accuracy, suitable for quality-critical applications (560M params)",
		MaxLength:   512,
	},
	"bge-reranker-v2-m3": {
		Name:        "BAAI/bge-reranker-v2-m3",
		Description: "Multilingual support, good for Chinese and other languages",
		MaxLength:   8192,
	},
}

// ListAvailableModels returns the registry of known cross-encoder
// models keyed by short name.
func ListAvailableModels() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(knownModels))
	for k, v := range knownModels {
		out[k] = v
	}
	return out
}

// ResolveModel maps a short model name to its full info. Unknown names
// are passed through as custom models so callers can use any identifier
// their rerank service accepts.
func ResolveModel(name string) ModelInfo {
	if info, ok := knownModels[name]; ok {
		return info
	}
	return ModelInfo{
		Name:        name,
		Description: "Custom model",
		MaxLength:   512,
	}
}
