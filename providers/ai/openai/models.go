package openai

import (
	"encoding/json"
	"strings"

	"github.com/spyword/undercover/providers/ai"
)

/*
	CHAT COMPLETIONS - REQUEST
*/

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Stream        *bool          `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

/*
	CHAT COMPLETIONS - RESPONSE
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content,omitempty"`
	Refusal          string `json:"refusal,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"` // GLM / DeepSeek spelling
}

type chatUsage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	} `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens,omitempty"`
	} `json:"prompt_tokens_details,omitempty"`
}

/*
	CHAT COMPLETIONS - STREAM CHUNKS
*/

type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"` // final chunk only, with include_usage
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	Reasoning        *string `json:"reasoning,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

func unmarshalStreamChunk(data string) (*chatCompletionStreamChunk, error) {
	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

/*
	CONVERSION
*/

func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:    request.Model,
		Messages: make([]chatMessage, 0, len(request.Messages)+1),
	}

	if request.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(ai.RoleSystem),
			Content: request.SystemPrompt,
		})
	}
	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		})
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.Temperature > 0 {
			temperature := float64(cfg.Temperature)
			req.Temperature = &temperature
		}
		if cfg.TopP > 0 {
			topP := float64(cfg.TopP)
			req.TopP = &topP
		}
		if cfg.MaxTokens > 0 {
			maxTokens := cfg.MaxTokens
			req.MaxTokens = &maxTokens
		}
	}

	return req
}

func chatCompletionToGeneric(resp chatCompletionResponse) *ai.ChatResponse {
	chatResp := &ai.ChatResponse{
		Id:      resp.ID,
		Model:   resp.Model,
		Object:  resp.Object,
		Created: resp.Created,
		Usage:   usageToGeneric(resp.Usage),
	}
	if len(resp.Choices) == 0 {
		chatResp.FinishReason = "error"
		return chatResp
	}

	choice := resp.Choices[0]
	explicitReasoning := strings.TrimSpace(choice.Message.Reasoning + choice.Message.ReasoningContent)
	content, tagReasoning := splitThinkTags(choice.Message.Content)

	chatResp.Content = content
	chatResp.Reasoning = joinNonEmpty(explicitReasoning, tagReasoning)
	chatResp.Refusal = choice.Message.Refusal
	chatResp.FinishReason = choice.FinishReason
	return chatResp
}

func usageToGeneric(u *chatUsage) *ai.Usage {
	if u == nil {
		return nil
	}
	usage := &ai.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	if u.PromptTokensDetails != nil {
		usage.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	return usage
}

const (
	thinkStartTag = "<think>"
	thinkEndTag   = "</think>"
)

// splitThinkTags separates "<think>...</think>" reasoning from the visible
// content. A missing start tag means the reasoning starts at the beginning;
// without an end tag the content is returned untouched.
func splitThinkTags(content string) (visible, reasoning string) {
	end := strings.Index(content, thinkEndTag)
	if end == -1 {
		return strings.TrimSpace(content), ""
	}

	start := strings.Index(content, thinkStartTag)
	prefix := ""
	if start == -1 || start > end {
		start = 0
	} else {
		prefix = content[:start]
		start += len(thinkStartTag)
	}

	reasoning = strings.TrimSpace(content[start:end])
	visible = strings.TrimSpace(prefix + content[end+len(thinkEndTag):])
	return visible, reasoning
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}
