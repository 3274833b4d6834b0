package vector

import (
	"fmt"
	"math"

	"github.com/poiesic/noesis/core"
)

// Metric selects the similarity function for a store. All metrics score
// higher-is-better: L2 distances are negated so descending order is
// uniform across metrics.
type Metric string

const (
	// MetricCosine scores by cosine similarity.
	MetricCosine Metric = "cos"
	// MetricL2 scores by negated Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricInnerProduct scores by raw inner product.
	MetricInnerProduct Metric = "ip"
)

// ParseMetric converts a metric name to a Metric.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, MetricL2, MetricInnerProduct:
		return Metric(name), nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", core.ErrInvalidInput, name)
}

// score computes the similarity between two vectors of equal length.
func (m Metric) score(a, b []float32) float32 {
	switch m {
	case MetricL2:
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return -float32(math.Sqrt(float64(sum)))
	case MetricInnerProduct:
		return dotProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	// Zero vectors have no direction
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
