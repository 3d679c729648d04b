package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CorpusFitter is implemented by embedders whose vector space depends on the
// indexed corpus. Every Prepare invalidates previously produced vectors.
type CorpusFitter interface {
	Prepare(corpus []string) error
}

// IsZero reports whether vec carries no signal, e.g. a query made only of
// out-of-vocabulary terms.
func IsZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
