package gemini

import (
	"context"
	"sync"
	"time"

	"github.com/Cyclone1070/butterfi/internal/provider"
)

// GeminiProvider implements chat generation for Google Gemini.
type GeminiProvider struct {
	client      GeminiClient
	mu          sync.RWMutex
	modelName   string
	temperature *float32
	timeout     time.Duration
}

// NewGeminiProvider creates a provider with the specified client and model.
// A nil temperature keeps the model default.
func NewGeminiProvider(client GeminiClient, modelName string, temperature *float32) *GeminiProvider {
	return &GeminiProvider{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}
}

// WithTimeout bounds every Generate call.
func (p *GeminiProvider) WithTimeout(d time.Duration) *GeminiProvider {
	p.timeout = d
	return p
}

// Generate sends the conversation to Gemini and returns the model's message.
func (p *GeminiProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.Message, error) {
	p.mu.RLock()
	model := p.modelName
	temperature := p.temperature
	p.mu.RUnlock()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	contents, system := toGeminiContents(req.Messages)
	config := toGeminiConfig(req, system, temperature)

	resp, err := p.client.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}

	return fromGeminiResponse(resp)
}

// SetModel changes the active model at runtime.
func (p *GeminiProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modelName = model
}

// GetModel returns the currently active model name.
func (p *GeminiProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelName
}
