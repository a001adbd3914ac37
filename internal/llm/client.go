package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-assistant/internal/config"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Part is one piece of a prompt: either text or an inline binary blob.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart builds a text prompt part.
func TextPart(s string) Part { return Part{Text: s} }

// BlobPart builds an inline binary prompt part, e.g. a screenshot.
func BlobPart(data []byte, mimeType string) Part { return Part{Data: data, MIMEType: mimeType} }

// Generator produces text from a multi-part prompt.
type Generator interface {
	Generate(ctx context.Context, parts []Part) (string, error)
}

// APIError is a non-2xx response from the model service.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API error %d (%s): %s", e.Code, e.Status, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Code }

// RateLimited reports whether the service rejected the call for quota reasons.
func (e *APIError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests || strings.EqualFold(e.Status, "RESOURCE_EXHAUSTED")
}

// Client calls a Gemini-compatible generateContent endpoint.
// Each Generate is a single attempt; callers wrap it in retry.Do.
type Client struct {
	client  *resty.Client
	apiKey  string
	model   string
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Generator = (*Client)(nil)

// NewClient creates a model client from configuration.
func NewClient(cfg *config.Gemini, logger *zap.Logger) *Client {
	url := cfg.BaseURL
	if url == "" {
		url = defaultBaseURL
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  resty.New().SetBaseURL(url).SetTimeout(cfg.Timeout),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger.Named("llm"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// Generate sends parts as a single user turn and returns the concatenated text answer.
func (c *Client) Generate(ctx context.Context, parts []Part) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	body := generateRequest{Contents: []content{{Role: "user", Parts: toWire(parts)}}}
	path := fmt.Sprintf("/models/%s:generateContent", c.model)

	c.logger.Debug("Executing request", zap.String("model", c.model), zap.Int("parts", len(parts)))
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&generateResponse{}).
		SetError(&errorEnvelope{}).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}

	if resp.IsError() {
		apiErr := APIError{Code: resp.StatusCode(), Status: resp.Status(), Message: resp.String()}
		if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Message != "" {
			apiErr.Status = env.Error.Status
			apiErr.Message = env.Error.Message
		}
		return "", &apiErr
	}

	result := resp.Result().(*generateResponse)
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates returned")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response (finish reason %q)", result.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func toWire(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, wirePart{InlineData: &inlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		out = append(out, wirePart{Text: p.Text})
	}
	return out
}
