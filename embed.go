package pathfinder

import "context"

// Embedder converts text into a fixed-dimension float vector.
//
// Implementations must be deterministic for identical input and model
// version. The core always L2-normalizes embedder output before storage or
// search, so implementations need not return unit vectors.
type Embedder interface {
	// Embed returns the embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed output dimension.
	Dimension() int
}
