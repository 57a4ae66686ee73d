package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"craftfolio/internal/logging"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	// MinRequestInterval spaces out requests to stay under per-minute
	// quotas. Zero disables spacing.
	MinRequestInterval time.Duration
}

// DefaultGeminiConfig returns sensible defaults for the given key.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:             apiKey,
		Model:              "gemini-2.5-flash",
		Timeout:            45 * time.Second,
		MinRequestInterval: 100 * time.Millisecond,
	}
}

// GeminiAdapter implements Adapter on the Gemini API with enforced JSON
// output (responseMimeType + responseSchema).
type GeminiAdapter struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiAdapter creates the adapter and its underlying client.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key not configured", ErrUnavailable)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiAdapter{
		client:      client,
		model:       model,
		timeout:     timeout,
		minInterval: cfg.MinRequestInterval,
	}, nil
}

// Available always reports true for a constructed adapter; construction
// fails without a key.
func (g *GeminiAdapter) Available() bool { return g != nil && g.client != nil }

// Generate sends one structured-generation request.
func (g *GeminiAdapter) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if !g.Available() {
		return nil, ErrUnavailable
	}
	if req.Schema == nil {
		return nil, fmt.Errorf("gemini: request has no output schema")
	}

	// Centralized timeout: apply the adapter default only when the caller
	// did not set a deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.throttle()

	start := time.Now()
	logging.ProviderDebug("gemini generate: model=%s system_len=%d prompt_len=%d",
		g.model, len(req.System), len(req.Prompt))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenAISchema(req.Schema),
		Temperature:      genai.Ptr[float32](0.2),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("gemini: %w after %v", ErrTimeout, time.Since(start))
		}
		return nil, fmt.Errorf("gemini: %w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: %.120s", ErrInvalidOutput, text)
	}

	logging.Provider("gemini generate completed in %v (response_len=%d)", time.Since(start), len(text))
	return json.RawMessage(text), nil
}

// throttle spaces requests by the configured minimum interval.
func (g *GeminiAdapter) throttle() {
	if g.minInterval <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if elapsed := time.Since(g.lastRequest); elapsed < g.minInterval {
		time.Sleep(g.minInterval - elapsed)
	}
	g.lastRequest = time.Now()
}

// toGenAISchema converts the provider-neutral schema into the SDK's type.
func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}
	switch strings.ToLower(s.Type) {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]string(nil), s.Enum...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toGenAISchema(s.Items)
	}
	return out
}
