package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const jsonResponseType = "json_object"

// MaxUserChars bounds the user text of a request.
const MaxUserChars = 40000

// Request is one chat exchange.
type Request struct {
	Model           string
	SystemPrompt    string
	UserPrompt      string
	ReasoningEffort string
	// Temperature is sent only when set and the model accepts it.
	Temperature *float64
	// FileIDs reference documents uploaded with UploadFile.
	FileIDs []string
	// MaxUserChars truncates UserPrompt; zero means MaxUserChars.
	MaxUserChars int
}

// SupportsTemperature reports whether model accepts a temperature parameter.
func SupportsTemperature(model string) bool {
	lowered := strings.ToLower(strings.TrimSpace(model))
	return !strings.HasPrefix(lowered, "gpt-5") && !strings.HasPrefix(lowered, "o1")
}

// Truncate shortens s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

type chatCompletionRequest struct {
	Model           string            `json:"model"`
	Messages        []chatMessage     `json:"messages"`
	Temperature     *float64          `json:"temperature,omitempty"`
	ReasoningEffort string            `json:"reasoning_effort,omitempty"`
	ResponseFormat  map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	FileID string `json:"file_id"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls"`
	Refusal   string     `json:"refusal"`
}

type toolCall struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

// CompleteJSON issues a chat completion that must answer with a JSON object
// and returns the raw payload.
func (c *Client) CompleteJSON(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, req, true, "llm complete json")
}

// Complete issues a plain-text chat completion.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, req, false, "llm complete")
}

// CompleteInto runs CompleteJSON and decodes the answer into target.
func (c *Client) CompleteInto(ctx context.Context, req Request, target any) (string, error) {
	content, err := c.CompleteJSON(ctx, req)
	if err != nil {
		return "", err
	}
	if err := DecodeLLMJSON(content, target); err != nil {
		return content, fmt.Errorf("llm complete json: parse payload: %w", err)
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, req Request, jsonMode bool, op string) (string, error) {
	if err := c.requireKey(op); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Model) == "" {
		return "", fmt.Errorf("%s: model required", op)
	}
	limit := req.MaxUserChars
	if limit <= 0 {
		limit = MaxUserChars
	}
	userText := Truncate(strings.TrimSpace(req.UserPrompt), limit)
	if userText == "" && len(req.FileIDs) == 0 {
		return "", fmt.Errorf("%s: user prompt required", op)
	}
	payload := chatCompletionRequest{
		Model:           req.Model,
		ReasoningEffort: strings.TrimSpace(req.ReasoningEffort),
	}
	if req.Temperature != nil && SupportsTemperature(req.Model) {
		temp := *req.Temperature
		payload.Temperature = &temp
	}
	if jsonMode {
		payload.ResponseFormat = map[string]string{"type": jsonResponseType}
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: system})
	}
	payload.Messages = append(payload.Messages, userMessage(userText, req.FileIDs))

	var content string
	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		body, err := c.postJSON(ctx, "chat/completions", payload)
		if err != nil {
			return err
		}
		var completion chatCompletionResponse
		if err := json.Unmarshal(body, &completion); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if completion.Error != nil {
			return fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
		}
		text, finishReason := extractCompletionPayload(completion)
		if text == "" {
			if len(completion.Choices) == 0 {
				return errors.New("empty choices")
			}
			return &emptyContentError{
				Op:           op,
				FinishReason: finishReason,
				Refusal:      extractCompletionRefusal(completion),
				Snippet:      summarizePayloadSnippet(string(body)),
			}
		}
		content = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func userMessage(text string, fileIDs []string) chatMessage {
	if len(fileIDs) == 0 {
		return chatMessage{Role: "user", Content: text}
	}
	parts := make([]contentPart, 0, len(fileIDs)+1)
	if text != "" {
		parts = append(parts, contentPart{Type: "text", Text: text})
	}
	for _, id := range fileIDs {
		parts = append(parts, contentPart{Type: "file", File: &filePart{FileID: id}})
	}
	return chatMessage{Role: "user", Content: parts}
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
		for _, calls := range [][]toolCall{choice.Message.ToolCalls, choice.Delta.ToolCalls} {
			for _, call := range calls {
				if args := strings.TrimSpace(call.Function.Arguments); args != "" {
					return args, finishReason
				}
			}
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
