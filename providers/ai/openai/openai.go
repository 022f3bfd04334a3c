package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/observability"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// ErrMissingAPIKey is returned by requests made without an API key.
var ErrMissingAPIKey = errors.New("API key is not set")

// OpenAIProvider talks to an OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	vendor  string
	client  *http.Client
}

var _ ai.StreamProvider = (*OpenAIProvider)(nil)

// New creates a provider from OPENAI_API_KEY and OPENAI_API_BASE
// (OPENAI_API_BASE_URL is accepted as well). The base URL defaults to the
// OpenAI API.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE")
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_API_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	provider := &OpenAIProvider{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		client: &http.Client{},
	}
	provider.setBaseURL(baseURL)
	return provider
}

// WithAPIKey sets the API key for the provider.
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL, e.g. https://open.bigmodel.cn/api/paas/v4.
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.setBaseURL(baseURL)
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// BaseURL returns the configured base URL without trailing slash.
func (p *OpenAIProvider) BaseURL() string {
	return p.baseURL
}

// Vendor is the backend guessed from the base URL, used as the
// llm.provider attribute.
func (p *OpenAIProvider) Vendor() string {
	return p.vendor
}

func (p *OpenAIProvider) setBaseURL(baseURL string) {
	p.baseURL = strings.TrimRight(baseURL, "/")
	p.vendor = detectVendor(p.baseURL)
}

// detectVendor maps well-known hosts to a short vendor name.
func detectVendor(baseURL string) string {
	baseURL = strings.ToLower(baseURL)
	switch {
	case strings.Contains(baseURL, "api.openai.com"):
		return "openai"
	case strings.Contains(baseURL, "bigmodel.cn"):
		return "zhipu"
	case strings.Contains(baseURL, "azure.com"):
		return "azure"
	case strings.Contains(baseURL, "openrouter.ai"):
		return "openrouter"
	case strings.Contains(baseURL, ":11434"):
		return "ollama"
	default:
		return "openai-compatible"
	}
}

// SendMessage implements ai.Provider.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.annotate(ctx, request, false)

	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	httpResponse, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client,
		p.baseURL+chatCompletionsEndpoint, p.apiKey, requestToChatCompletion(request))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from %s: %s", p.vendor, httpResponse.Status)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response %q", resp.ID)
	}

	response := chatCompletionToGeneric(*resp)
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMResponseID, response.Id),
			observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		)
	}
	return response, nil
}

// IsStopMessage reports whether the response ends the model's turn.
func (p *OpenAIProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	switch message.FinishReason {
	case "stop", "length", "content_filter", "sensitive":
		return true
	}
	return message.Content == ""
}

// annotate enriches the span and logs the outgoing request when the context
// carries them.
func (p *OpenAIProvider) annotate(ctx context.Context, request ai.ChatRequest, streaming bool) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, p.vendor),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
		)
	}

	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "provider preparing request",
			observability.String(observability.AttrLLMProvider, p.vendor),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}
}
