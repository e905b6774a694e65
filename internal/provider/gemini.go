package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/agentkit/llm"
	"google.golang.org/genai"
)

// generator is the slice of the genai Models service the adapter calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini adapts the Google GenAI SDK to llm.Provider.
// Unlike the agentkit providers it honors a fixed sampling temperature.
type Gemini struct {
	models      generator
	model       string
	maxTokens   int
	temperature *float32
}

// GeminiOption configures a Gemini adapter.
type GeminiOption func(*Gemini)

// WithTemperature fixes the sampling temperature for every request.
func WithTemperature(t float32) GeminiOption {
	return func(g *Gemini) {
		g.temperature = &t
	}
}

// WithMaxTokens caps the output length.
func WithMaxTokens(n int) GeminiOption {
	return func(g *Gemini) {
		g.maxTokens = n
	}
}

// NewGemini creates a Gemini adapter backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}
	return newGemini(client.Models, model, opts...), nil
}

func newGemini(models generator, model string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		models: models,
		model:  strings.TrimPrefix(model, "models/"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the provider name.
func (g *Gemini) Name() string { return "google" }

// Temperature returns the fixed temperature, if any.
func (g *Gemini) Temperature() (float32, bool) {
	if g.temperature == nil {
		return 0, false
	}
	return *g.temperature, true
}

// Chat sends one request and returns the first candidate's text.
func (g *Gemini) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	contents, system := convertMessages(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: request has no user or assistant messages")
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.temperature != nil {
		t := *g.temperature
		cfg.Temperature = &t
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("google genai completion failed: %w", err)
	}
	return buildResponse(resp, g.model), nil
}

// ChatStream delivers the whole response as a single chunk.
func (g *Gemini) ChatStream(ctx context.Context, req llm.ChatRequest, callback func(string)) (*llm.ChatResponse, error) {
	resp, err := g.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if callback != nil && resp.Content != "" {
		callback(resp.Content)
	}
	return resp, nil
}

// convertMessages splits system messages out into a single instruction.
func convertMessages(msgs []llm.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func buildResponse(resp *genai.GenerateContentResponse, model string) *llm.ChatResponse {
	out := &llm.ChatResponse{Model: model}
	if resp == nil {
		return out
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			out.StopReason = string(resp.PromptFeedback.BlockReason)
		}
		return out
	}

	candidate := resp.Candidates[0]
	out.StopReason = string(candidate.FinishReason)
	if candidate.Content == nil {
		return out
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	out.Content = sb.String()
	return out
}
