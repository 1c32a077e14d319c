// Package strapi is the headless-CMS adapter of the storage port. It talks to
// a Strapi instance over its REST API and is the alternative to the Postgres
// backend; the lifecycle logic is identical for both because it only sees the
// storage interfaces.
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vomprater-server/internal/models"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 10 * time.Second

// Client is a thin JSON client for the Strapi REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Strapi API client. The token is a Strapi API token with
// full access to the story content type.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     logger.Named("StrapiClient"),
	}
}

// apiError is the error envelope Strapi returns on failures.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs a JSON request against the Strapi API and decodes the response
// into out (when non-nil). Strapi error statuses are mapped onto the
// application's sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Strapi request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: strapi request failed: %v", models.ErrInternalServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.Warn("Strapi returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.String("message", apiErr.Error.Message))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return models.ErrNotFound
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", models.ErrValidation, apiErr.Error.Message)
		case http.StatusConflict:
			return models.ErrAlreadyExists
		}
		return fmt.Errorf("%w: strapi status %d", models.ErrInternalServer, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode strapi response: %w", err)
		}
	}
	return nil
}
