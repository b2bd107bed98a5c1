package woocommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Media is an uploaded media library item.
type Media struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

// bearer runs fn with a JWT. A 401 answer refreshes the token and retries
// once.
func (c *Client) bearer(ctx context.Context, fn func(token string) error) error {
	token, err := c.jwt(ctx, false)
	if err != nil {
		return err
	}
	err = fn(token)
	if !IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	c.logger.Debug("jwt rejected; refreshing")
	token, err = c.jwt(ctx, true)
	if err != nil {
		return err
	}
	return fn(token)
}

func (c *Client) jwt(ctx context.Context, refresh bool) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && !refresh {
		return c.token, nil
	}
	if c.cfg.AdminUser == "" || c.cfg.AdminPass == "" {
		return "", errors.New("jwt: admin user and password required")
	}
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/wp-json/jwt-auth/v1/token",
		body:   map[string]string{"username": c.cfg.AdminUser, "password": c.cfg.AdminPass},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("jwt: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("jwt: response missing token")
	}
	c.token = resp.Token
	return c.token, nil
}

// UpdateACF writes custom fields on a product.
func (c *Client) UpdateACF(ctx context.Context, productID int64, fields map[string]any) error {
	path := "/wp-json/acf/v3/product/" + strconv.FormatInt(productID, 10)
	err := c.bearer(ctx, func(token string) error {
		return c.do(ctx, request{
			method:  http.MethodPost,
			path:    path,
			body:    map[string]any{"fields": fields},
			headers: map[string]string{"Authorization": "Bearer " + token},
		}, nil)
	})
	if err != nil {
		return fmt.Errorf("update acf of %d: %w", productID, err)
	}
	return nil
}

// UploadMedia stores a file in the media library.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, data []byte) (Media, error) {
	if len(data) == 0 {
		return Media{}, errors.New("upload media: empty file")
	}
	filename = strings.ReplaceAll(filename, `"`, "")
	var media Media
	err := c.bearer(ctx, func(token string) error {
		return c.do(ctx, request{
			method: http.MethodPost,
			path:   "/wp-json/wp/v2/media",
			raw:    data,
			headers: map[string]string{
				"Authorization":       "Bearer " + token,
				"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
				"Content-Type":        contentType,
			},
		}, &media)
	})
	if err != nil {
		return Media{}, fmt.Errorf("upload media: %w", err)
	}
	if media.ID == 0 {
		return Media{}, errors.New("upload media: response missing id")
	}
	return media, nil
}

// LinkTranslation pairs a translated product with its original.
func (c *Client) LinkTranslation(ctx context.Context, originalID, translatedID int64, lang string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/wp-json/custom-api/v1/set-translation/",
		body: map[string]any{
			"original_id":   originalID,
			"translated_id": translatedID,
			"lang_code":     lang,
		},
		basic: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("link translation %d->%d: %w", originalID, translatedID, err)
	}
	return nil
}
