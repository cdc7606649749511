package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("## Report\n"), genai.Text("Good fit.")}},
		}},
	}

	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "## Report\nGood fit.", text)
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"no candidates", &genai.GenerateContentResponse{}, "no candidates"},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "no content"},
		{"no text parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
		}}}, "no text parts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractTextFromResponse(tt.resp)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	assert.EqualError(t, err, "API key is required")
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	assert.ErrorContains(t, err, "unsupported LLM provider")
}
