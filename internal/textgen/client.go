// Package textgen phrases challenge titles and descriptions through an Ollama-compatible model server.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const DefaultURL = "http://127.0.0.1:11434"

var (
	ErrEmptyResponse     = errors.New("text generation returned no title or description")
	ErrMalformedResponse = errors.New("text generation returned malformed JSON")
)

// Prompt is the structured input for one challenge.
type Prompt struct {
	Frequency      string
	ChallengeType  string
	TargetValue    float64
	RewardXP       int
	ParentTitle    string
	ParentGoalType string
	Platform       string
}

type Text struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Client struct {
	BaseURL    string
	Model      string
	httpClient *http.Client
}

func NewClient(url, model string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(url, "/"),
		Model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate asks the model for a JSON object with title and description.
// Both fields must be non-empty for the result to count.
func (c *Client) Generate(ctx context.Context, p Prompt) (*Text, error) {
	reqBody := generateRequest{
		Model:  c.Model,
		Prompt: BuildPrompt(p),
		Format: "json",
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text generation request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close text generation response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("text generation returned status %d: %s", resp.StatusCode, string(body))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return parseText(response.Response)
}

func parseText(raw string) (*Text, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var text Text
	if err := json.Unmarshal([]byte(raw), &text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	text.Title = strings.TrimSpace(text.Title)
	text.Description = strings.TrimSpace(text.Description)
	if text.Title == "" || text.Description == "" {
		return nil, ErrEmptyResponse
	}
	return &text, nil
}

// BuildPrompt renders p as model instructions.
func BuildPrompt(p Prompt) string {
	var b strings.Builder
	b.WriteString("You write short, motivating challenges for a social media creator.\n")
	fmt.Fprintf(&b, "Frequency: %s\n", p.Frequency)
	fmt.Fprintf(&b, "Task type: %s\n", strings.ReplaceAll(p.ChallengeType, "_", " "))
	fmt.Fprintf(&b, "Target: %s tasks\n", strconv.FormatFloat(p.TargetValue, 'f', -1, 64))
	fmt.Fprintf(&b, "Reward: %d XP\n", p.RewardXP)
	if p.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	}
	if p.ParentTitle != "" {
		fmt.Fprintf(&b, "It supports the goal %q (%s).\n", p.ParentTitle, p.ParentGoalType)
	}
	b.WriteString(`Respond with JSON only: {"title": "...", "description": "..."}. Title under 60 characters, description one sentence.`)
	return b.String()
}
