package vectorstore

import "context"

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// Match is a search hit. Score is cosine similarity; higher is closer.
type Match struct {
	Point
	Score float64
}

// Filter restricts a search to points whose payload equals every value in
// Must. An empty filter matches everything.
type Filter struct {
	Must map[string]any
}

// Matches reports whether payload satisfies the filter.
func (f Filter) Matches(payload map[string]any) bool {
	for k, want := range f.Must {
		got, ok := payload[k]
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Storage persists vectors and supports filtered similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error)
	Clear(ctx context.Context) error
}
