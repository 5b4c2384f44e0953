// Package fixes asks an LLM completion endpoint for concrete remediation
// text for a page's critical and warning issues. The generator never
// surfaces a failure to the caller: any error degrades to an empty list,
// because missing fixes must not fail a crawl.
package fixes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// Generator produces remediation fixes for a page's issues.
type Generator interface {
	GenerateFixes(ctx context.Context, page model.PageSignal, issues []model.Issue) []model.Fix
}

const (
	generateTimeout = 60 * time.Second
	apiVersion      = "2023-06-01"
	maxTokens       = 2000
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// Client calls a messages-style completion API. An empty API key disables
// generation entirely.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewClient returns a fix generator talking to the given endpoint.
func NewClient(apiURL, apiKey, modelName string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: generateTimeout},
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      modelName,
		logger:     logger,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateFixes requests fixes for the page's critical and warning issues.
// Info issues never trigger a request, and neither does an issue-free page.
func (c *Client) GenerateFixes(ctx context.Context, page model.PageSignal, issues []model.Issue) []model.Fix {
	var actionable []model.Issue
	for _, issue := range issues {
		if issue.Severity != model.SeverityInfo {
			actionable = append(actionable, issue)
		}
	}
	if len(actionable) == 0 || c.apiKey == "" {
		return nil
	}

	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: buildPrompt(page, actionable)}},
	})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to generate fixes", "url", page.URL, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("fix generation returned non-OK status", "url", page.URL, "status", resp.StatusCode)
		return nil
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		c.logger.Error("failed to decode fix response", "url", page.URL, "error", err)
		return nil
	}

	for _, block := range completion.Content {
		if block.Type == "text" {
			return c.parseFixes(block.Text)
		}
	}
	return nil
}

// parseFixes extracts the JSON array from the response text, which may be
// wrapped in markdown fences, and drops malformed entries.
func (c *Client) parseFixes(text string) []model.Fix {
	raw := jsonArrayPattern.FindString(text)
	if raw == "" {
		return nil
	}

	var parsed []model.Fix
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Warn("failed to parse generated fixes", "error", err)
		return nil
	}

	var valid []model.Fix
	for _, fix := range parsed {
		switch fix.Priority {
		case "high", "medium", "low":
		default:
			continue
		}
		if fix.Issue == "" || fix.Recommendation == "" {
			continue
		}
		valid = append(valid, fix)
	}
	return valid
}

func buildPrompt(page model.PageSignal, issues []model.Issue) string {
	var issueList strings.Builder
	for i, issue := range issues {
		current := ""
		if issue.CurrentValue != "" {
			current = fmt.Sprintf(" (Current: %q)", issue.CurrentValue)
		}
		fmt.Fprintf(&issueList, "%d. [%s] %s: %s%s\n",
			i+1, strings.ToUpper(string(issue.Severity)), issue.Category, issue.Message, current)
	}

	return fmt.Sprintf(`You are an SEO expert. Analyze the following page and generate specific, actionable fixes for each issue.

PAGE URL: %s
CURRENT TITLE: %s
CURRENT META DESCRIPTION: %s
CURRENT H1: %s
WORD COUNT: %d
IMAGES: %d total, %d missing alt text
INTERNAL LINKS: %d
EXTERNAL LINKS: %d

ISSUES FOUND:
%s
For each issue, respond in this exact JSON format (array of objects):
[
  {
    "issue": "brief issue description",
    "current_state": "what it is now",
    "recommendation": "what to do",
    "ai_generated_fix": "the exact replacement text or action",
    "priority": "high|medium|low"
  }
]

Rules:
- Title tags should be 50-60 characters, include the primary keyword and brand name
- Meta descriptions should be 150-160 characters with a call-to-action
- Write in plain English suitable for a small business owner
- Be specific: write the actual replacement text, not generic advice
- Respond ONLY with the JSON array, no other text`,
		page.URL,
		orMissing(page.Title),
		orMissing(page.MetaDescription),
		orMissing(page.H1),
		page.WordCount,
		page.ImageCount, page.ImagesWithoutAlt,
		page.InternalLinks,
		page.ExternalLinks,
		issueList.String())
}

func orMissing(s string) string {
	if s == "" {
		return "(missing)"
	}
	return s
}
