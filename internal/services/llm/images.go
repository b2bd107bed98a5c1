package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ImageRequest describes one generated image.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

type imageGenerationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// ErrNoImage reports a generation response without image data.
var ErrNoImage = errors.New("no image in response")

// GenerateImage returns the bytes of a single generated image. Inline base64
// data is preferred; a returned URL is downloaded.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	const op = "llm generate image"
	if err := c.requireKey(op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%s: prompt required", op)
	}
	payload := imageGenerationRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		N:       1,
		Size:    req.Size,
		Quality: req.Quality,
	}
	var image []byte
	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		body, err := c.postJSON(ctx, "images/generations", payload)
		if err != nil {
			return err
		}
		var resp imageGenerationResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Data) == 0 {
			return ErrNoImage
		}
		item := resp.Data[0]
		switch {
		case item.B64JSON != "":
			decoded, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return fmt.Errorf("decode image: %w", err)
			}
			image = decoded
		case item.URL != "":
			downloaded, err := c.download(ctx, item.URL)
			if err != nil {
				return err
			}
			image = downloaded
		default:
			return ErrNoImage
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image read: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: summarizePayloadSnippet(string(data))}
	}
	return data, nil
}
