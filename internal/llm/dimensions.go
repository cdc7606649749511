package llm

import (
	"context"
	"fmt"
)

// dimensionChecked rejects embeddings whose length does not match the vector column
type dimensionChecked struct {
	Embedder
	dims int
}

// RequireDimensions wraps e so every returned vector must have exactly dims components.
// A non-positive dims returns e unchanged.
func RequireDimensions(e Embedder, dims int) Embedder {
	if dims <= 0 {
		return e
	}
	return &dimensionChecked{Embedder: e, dims: dims}
}

func (d *dimensionChecked) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := d.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := d.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (d *dimensionChecked) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := d.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, vec := range vecs {
		if err := d.check(vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (d *dimensionChecked) check(vec []float32) error {
	if len(vec) != d.dims {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), d.dims)
	}
	return nil
}
