package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// FilePurpose is the purpose sent for document uploads.
const FilePurpose = "user_data"

// UploadFile uploads a document and returns its file ID for use in
// Request.FileIDs.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	const op = "llm upload file"
	if err := c.requireKey(op); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: empty document", op)
	}
	if name == "" {
		name = "document.pdf"
	}
	var fileID string
	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if err := writer.WriteField("purpose", FilePurpose); err != nil {
			return fmt.Errorf("write purpose: %w", err)
		}
		part, err := writer.CreateFormFile("file", filepath.Base(name))
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return fmt.Errorf("write form file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("close form: %w", err)
		}
		body, err := c.send(ctx, http.MethodPost, "files", writer.FormDataContentType(), &buf)
		if err != nil {
			return err
		}
		var resp struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if resp.ID == "" {
			return fmt.Errorf("response missing file id")
		}
		fileID = resp.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return fileID, nil
}
