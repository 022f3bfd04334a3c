// Package openai implements [ai.Provider] and [ai.StreamProvider] against any
// OpenAI-compatible /chat/completions endpoint (OpenAI, Zhipu GLM, Ollama,
// OpenRouter, ...).
//
// [New] reads OPENAI_API_KEY and OPENAI_API_BASE from the environment; use
// [OpenAIProvider.WithAPIKey] and [OpenAIProvider.WithBaseURL] to override
// them. Reasoning emitted inside <think> tags is moved out of the content
// into [ai.ChatResponse.Reasoning].
package openai
