package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"racefeed/internal/retry"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(retry.NoSleep)}, opts...)
	return NewClient(Config{APIKey: "test", BaseURL: url}, opts...)
}

func TestCompleteJSONSendsStageOptions(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatReply(`{"summary":"ok"}`))
	}))
	defer server.Close()

	temp := 0.4
	content, err := newTestClient(server.URL).CompleteJSON(context.Background(), Request{
		Model:           "gpt-4.1",
		SystemPrompt:    "system",
		UserPrompt:      "race text",
		ReasoningEffort: "low",
		Temperature:     &temp,
		FileIDs:         []string{"file-1"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %q", content)
	}
	if captured["reasoning_effort"] != "low" || captured["temperature"] != 0.4 {
		t.Fatalf("stage options not sent: %v", captured)
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", captured["response_format"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", messages)
	}
	user, _ := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text and file parts, got %v", user["content"])
	}
	file, _ := parts[1].(map[string]any)["file"].(map[string]any)
	if file["file_id"] != "file-1" {
		t.Fatalf("unexpected file part %v", parts[1])
	}
}

func TestCompleteOmitsTemperatureForReasoningModels(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(chatReply("Corrida de Lisboa"))
	}))
	defer server.Close()

	temp := 0.3
	if _, err := newTestClient(server.URL).Complete(context.Background(), Request{
		Model:       "gpt-5-mini",
		UserPrompt:  "Lisbon Run",
		Temperature: &temp,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := captured["temperature"]; ok {
		t.Fatalf("temperature must be omitted for gpt-5 models: %v", captured)
	}
	if _, ok := captured["response_format"]; ok {
		t.Fatalf("plain completion must not request json: %v", captured)
	}
}

func TestCompleteTruncatesUserText(t *testing.T) {
	var captured struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(chatReply(`{}`))
	}))
	defer server.Close()

	long := strings.Repeat("a", MaxUserChars+500)
	if _, err := newTestClient(server.URL).CompleteJSON(context.Background(), Request{Model: "m", UserPrompt: long}); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if got := len(captured.Messages[0].Content); got != MaxUserChars {
		t.Fatalf("expected %d chars, got %d", MaxUserChars, got)
	}
}

func TestCompleteIntoDecodesCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatReply("```json\n{\"summary\":\"fenced\"}\n```"))
	}))
	defer server.Close()

	var out struct {
		Summary string `json:"summary"`
	}
	if _, err := newTestClient(server.URL).CompleteInto(context.Background(), Request{Model: "m", UserPrompt: "x"}, &out); err != nil {
		t.Fatalf("CompleteInto: %v", err)
	}
	if out.Summary != "fenced" {
		t.Fatalf("unexpected summary %q", out.Summary)
	}
}

func TestCompleteIntoRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatReply("I cannot help with that"))
	}))
	defer server.Close()

	var out map[string]any
	if _, err := newTestClient(server.URL).CompleteInto(context.Background(), Request{Model: "m", UserPrompt: "x"}, &out); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCompleteRetriesOnHTTP429(t *testing.T) {
	var calls int32
	var delays []time.Duration
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(chatReply(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleeper(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	if _, err := client.CompleteJSON(context.Background(), Request{Model: "m", UserPrompt: "x"}); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delay, got %v", delays)
	}
}

func TestCompleteRetriesOnEmptyContent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{map[string]any{"finish_reason": "length", "message": map[string]any{"content": ""}}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(chatReply(`{"ok":true}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).CompleteJSON(context.Background(), Request{Model: "m", UserPrompt: "x"}); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected retry after empty content, got %d calls", calls)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompleteJSON(context.Background(), Request{Model: "m", UserPrompt: "x"})
	if err == nil || StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestUploadFileSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("purpose"); got != FilePurpose {
			t.Errorf("unexpected purpose %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != "%PDF-1.4" || header.Filename != "rules.pdf" {
				t.Errorf("unexpected upload %q %q", header.Filename, data)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-abc"})
	}))
	defer server.Close()

	id, err := newTestClient(server.URL).UploadFile(context.Background(), "/tmp/rules.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if id != "file-abc" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestGenerateImageDecodesBase64AndURL(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	mux := http.NewServeMux()
	var useURL atomic.Bool
	var serverURL string
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-image-1" || req["size"] != "1024x1024" || req["quality"] != "high" {
			t.Errorf("unexpected image request %v", req)
		}
		if useURL.Load() {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"url": serverURL + "/img.png"}}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(png)}}})
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(png)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(server.URL)
	req := ImageRequest{Model: "gpt-image-1", Prompt: "runners at dawn", Size: "1024x1024", Quality: "high"}
	for _, viaURL := range []bool{false, true} {
		useURL.Store(viaURL)
		data, err := client.GenerateImage(context.Background(), req)
		if err != nil {
			t.Fatalf("GenerateImage(url=%v): %v", viaURL, err)
		}
		if string(data) != string(png) {
			t.Fatalf("unexpected image bytes %v", data)
		}
	}
}

func TestRequireAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.CompleteJSON(context.Background(), Request{Model: "m", UserPrompt: "x"}); err == nil {
		t.Fatal("expected missing key error")
	}
	if client.cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", client.cfg.BaseURL)
	}
}

func TestSupportsTemperature(t *testing.T) {
	tests := map[string]bool{
		"gpt-4.1":     true,
		"gpt-4o-mini": true,
		"gpt-5":       false,
		"GPT-5-mini":  false,
		"o1-preview":  false,
	}
	for model, want := range tests {
		if got := SupportsTemperature(model); got != want {
			t.Fatalf("SupportsTemperature(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestDecodeLLMJSONExtractsObject(t *testing.T) {
	var out map[string]string
	if err := DecodeLLMJSON("Here you go: {\"a\":\"b\"} thanks", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out["a"] != "b" {
		t.Fatalf("unexpected decode %v", out)
	}
}
