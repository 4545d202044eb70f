package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// ExtractStructured implements llm.Extractor using chat/completions with a
// json_object response format. The JSON Schema rides along in a trailing
// system message and the response is validated against it locally; a single
// lenient sanitize pass runs before giving up.
func (c *Client) ExtractStructured(ctx context.Context, req llm.StructuredRequest) (map[string]any, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	model := c.modelFor(req.Images)

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", model,
		"temp", c.cfg.Temperature,
		"user_len", len(req.User),
		"images", len(req.Images),
		"has_schema", req.Schema != nil,
	)

	messages := []map[string]any{
		{"role": "system", "content": req.System},
		{"role": "user", "content": userContent(req.User, req.Images)},
	}
	if req.Schema != nil {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": "JSON Schema:\n" + mustJSON(req.Schema),
		})
	}

	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}

	content, err := c.chat(ctx, rid, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, err
	}
	rawContent := []byte(content)

	if req.Schema != nil {
		if err := llm.ValidateJSONAgainstSchema(req.Schema, rawContent); err != nil {
			if c.cfg.StrictOnly {
				c.logger.Error("llm.extract.schema_validation_failed",
					"req_id", rid, "error", err,
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return nil, rawContent, fmt.Errorf("schema validation failed: %w", err)
			}
			cleaned, dropped, sErr := llm.SanitizeToSchema(rawContent, req.Schema, c.logger)
			if sErr != nil {
				c.logger.Error("llm.extract.sanitize_failed",
					"req_id", rid, "error", sErr,
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return nil, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
			}
			if vErr := llm.ValidateJSONAgainstSchema(req.Schema, cleaned); vErr != nil {
				c.logger.Error("llm.extract.schema_validation_failed",
					"req_id", rid, "error", vErr, "content", string(rawContent),
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return nil, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
			}
			c.logger.Warn("llm.extract.lenient_sanitize_applied",
				"req_id", rid, "dropped", dropped,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			rawContent = cleaned
		}
	}

	var out map[string]any
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.logger.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"keys", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

// Complete implements the free-form side of llm.Extractor. Used for short
// classification answers like per-page invoice numbers.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	model := c.modelFor(req.Images)

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"model", model,
		"user_len", len(req.User),
		"images", len(req.Images),
	)

	body := map[string]any{
		"model":       model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": userContent(req.User, req.Images)},
		},
	}

	content, err := c.chat(ctx, rid, body)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(content), nil
}

// chat posts a completion request with retries and returns the first choice's
// message content.
func (c *Client) chat(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	return retry.DoWithData(
		func() (string, error) {
			raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, rid, c.logger)
			if err != nil {
				return "", err
			}

			var cc struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			if err := json.Unmarshal(raw, &cc); err != nil {
				return "", fmt.Errorf("decode openai response: %w", err)
			}
			if len(cc.Choices) == 0 {
				return "", fmt.Errorf("no choices in openai response")
			}
			return strings.TrimSpace(cc.Choices[0].Message.Content), nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("llm.chat.retry", "req_id", rid, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) modelFor(images []string) string {
	if len(images) > 0 {
		return c.cfg.VisionModel
	}
	return c.cfg.Model
}

// userContent builds the user message: a plain string for text-only calls,
// or content parts with image_url entries for vision calls.
func userContent(text string, images []string) any {
	if len(images) == 0 {
		return text
	}
	parts := []map[string]any{
		{"type": "text", "text": text},
	}
	for _, img := range images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": img},
		})
	}
	return parts
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
