// Package openaicompat implements llm.Provider against any endpoint that speaks
// the OpenAI Chat Completions format (OpenAI, DeepSeek, Qwen, vLLM, Ollama ...).
//
// Structured output is requested with response_format {"type":"json_object"}
// when ChatRequest.ResponseFormat is llm.ResponseFormatJSON.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "openai",
//	    APIKey:       cfg.LLM.APIKey,
//	    BaseURL:      cfg.LLM.BaseURL,
//	    DefaultModel: cfg.LLM.Model,
//	    Timeout:      cfg.LLM.Timeout,
//	}, logger)
package openaicompat
