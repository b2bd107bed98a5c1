// Package llm is a client for an OpenAI-compatible generation API.
//
// It covers the calls the enrichment step needs: JSON chat completions with
// optional file references, plain-text completions for short translations,
// file uploads and image generation.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, network timeouts and empty
// completions with exponential backoff. A Retry-After header overrides the
// computed delay. Context cancellation aborts retries immediately.
//
// # Reasoning models
//
// Models named gpt-5* or o1* reject the temperature parameter, so it is never
// sent for them regardless of configuration.
package llm
