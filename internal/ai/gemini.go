package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey    string `json:"api_key"`
	APIKeyEnv string `json:"api_key_env"`
}

type geminiEmbedProvider struct {
	client *genai.Client
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, req *EmbedRequest) ([][]float32, error) {
	if p.client == nil {
		return nil, ErrUnavailable
	}
	contents := make([]*genai.Content, 0, len(req.Texts))
	for _, text := range req.Texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	var config *genai.EmbedContentConfig
	if req.TaskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: req.TaskType,
		}
	}
	resp, err := p.client.Models.EmbedContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(req.Texts))
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, item := range resp.Embeddings {
		if item == nil || len(item.Values) == 0 {
			return nil, fmt.Errorf("no embedding values returned")
		}
		out = append(out, item.Values)
	}
	return out, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.APIKeyEnv != "" {
		apiKey = strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	}
	if apiKey == "" {
		return &geminiEmbedProvider{}, nil
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiEmbedProvider{client: client}, nil
}

func init() {
	Register("gemini", createGeminiEmbedFactory)
}
