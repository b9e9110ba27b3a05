package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 60 * time.Second
	captionPath    = "/v1/caption"

	// maxResponseSize bounds how much of the service response we read.
	maxResponseSize = 1 << 20
)

// Config configures the caption service client.
type Config struct {
	// URL is the base URL of the caption service.
	URL string
	// Timeout bounds a single caption request. Vision models are slow;
	// the default is generous.
	Timeout time.Duration
	// RequestsPerSecond rate-limits outbound requests so a burst of new
	// files doesn't overwhelm the model.
	RequestsPerSecond float64
}

// Client calls a vision-model caption service over HTTP.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a caption service client.
func NewClient(logger *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// captionRequest is the service's request body.
type captionRequest struct {
	ImageBase64 string `json:"image_base64"`
	Length      string `json:"length"`
}

// captionResponse is the service's response body.
type captionResponse struct {
	Caption string `json:"caption"`
}

// Caption reads the image and asks the service to describe it. The
// returned caption is trimmed but otherwise unmodified; callers that
// need a filesystem-safe form should sanitize it themselves.
func (c *Client) Caption(ctx context.Context, imagePath string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for caption rate limit: %w", err)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	reqBody, err := json.Marshal(captionRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Length:      "short",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode caption request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+captionPath, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create caption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read caption response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result captionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode caption response: %w", err)
	}

	text := strings.TrimSpace(result.Caption)
	if text == "" {
		return "", fmt.Errorf("caption service returned an empty caption")
	}

	c.logger.Debug("captioned image",
		"path", imagePath,
		"duration", time.Since(start).String(),
	)
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
