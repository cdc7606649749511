// Package llm provides centralized LLM configuration and client abstractions.
// The same client serves CV parsing, narrative generation and facet embeddings.
package llm

// ModelTier selects a model by the capability a task needs
type ModelTier string

const (
	// TierLite is the cheapest model; GetModel falls back to it last
	TierLite ModelTier = "lite"
	// TierStandard handles structured extraction such as CV parsing
	TierStandard ModelTier = "standard"
	// TierAdvanced writes the recommendation memo
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the only provider wired to a client
const ProviderGemini Provider = "gemini"

// DefaultEmbeddingModel is the embedding model used for CV facets and job facets alike.
// Both sides of a similarity search must be embedded with the same model.
const DefaultEmbeddingModel = "text-embedding-004"

// Config holds the model configuration for the application
type Config struct {
	Provider       Provider
	Models         map[ModelTier]string
	EmbeddingModel string
}

// DefaultConfig returns the Gemini models used when no override is configured
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		EmbeddingModel: DefaultEmbeddingModel,
	}
}

// GetModel returns the model for tier, falling back to the standard and then the lite model.
// It returns "" when none is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}

func (c *Config) clone() *Config {
	newConfig := &Config{
		Provider:       c.Provider,
		Models:         make(map[ModelTier]string, len(c.Models)),
		EmbeddingModel: c.EmbeddingModel,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	return newConfig
}

// Overrides replace individual models; empty fields keep the current value
type Overrides struct {
	ParsingModel   string
	NarrativeModel string
	EmbeddingModel string
}

// ApplyOverrides returns a copy of c with the non-empty overrides applied
func (c *Config) ApplyOverrides(o Overrides) *Config {
	out := c.clone()
	if o.ParsingModel != "" {
		out.Models[TierStandard] = o.ParsingModel
	}
	if o.NarrativeModel != "" {
		out.Models[TierAdvanced] = o.NarrativeModel
	}
	if o.EmbeddingModel != "" {
		out.EmbeddingModel = o.EmbeddingModel
	}
	return out
}
