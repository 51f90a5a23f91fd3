// Package metrics fetches per-platform account snapshots from the social metrics provider.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/templui/goalpulse/internal/model"
)

type Client struct {
	BaseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Snapshots returns the latest snapshot per connected platform. Unknown platforms are dropped.
func (c *Client) Snapshots(ctx context.Context, userID string) ([]model.MetricSnapshot, error) {
	endpoint := fmt.Sprintf("%s/users/%s/metrics", c.BaseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close metrics response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return []model.MetricSnapshot{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metrics provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapshots []model.MetricSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}

	valid := snapshots[:0]
	for _, s := range snapshots {
		if !model.IsValidPlatform(s.Platform) || s.Platform == model.PlatformAll {
			slog.Debug("dropping snapshot for unsupported platform", "platform", s.Platform, "user_id", userID)
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}
