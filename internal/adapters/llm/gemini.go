package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiConfig selects the backend: an API key means the Gemini API,
// otherwise Project and Location select Vertex AI.
type GeminiConfig struct {
	APIKey      string
	Project     string
	Location    string
	Model       string
	Temperature float32
}

type GeminiClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiClient creates an LLMClient backed by Gemini.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("gemini: an API key or a GCP project and location are required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &GeminiClient{
		client:      client,
		modelName:   model,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateReply implements domain.LLMClient. The transcript already starts
// with the assistant preamble, so no system instruction is sent.
func (g *GeminiClient) GenerateReply(ctx context.Context, transcript []domain.Turn) (string, error) {
	contents := toContents(transcript)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: empty transcript")
	}

	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	// Empty text is a valid "no output" answer; the caller decides.
	return res.Text(), nil
}

func toContents(transcript []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for _, t := range transcript {
		if t.Content == "" {
			continue
		}

		var role genai.Role
		switch t.Role {
		case domain.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}

		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return contents
}
