// Package gemini wraps the external generative image service. The core
// treats it as a collaborator with a narrow contract: edit an image with a
// prompt, or suggest prompt completions. A successful response without an
// image part is a valid empty result, not an error.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/digkill/aieditor/internal/config"
)

type Client struct {
	apiKey       string
	baseURL      string
	editModel    string
	suggestModel string
	httpClient   *http.Client
	log          *slog.Logger
}

// Image is one decoded inline image from a model response.
type Image struct {
	Data string
	Mime string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &Client{
		apiKey:       cfg.GeminiAPIKey,
		baseURL:      strings.TrimRight(cfg.GeminiBaseURL, "/"),
		editModel:    cfg.GeminiEditModel,
		suggestModel: cfg.GeminiSuggestModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// EditImage sends the base64 image and prompt to the edit model and returns
// the first inline image from the response. A response with no image part
// returns (nil, nil): the caller surfaces "try a different prompt".
func (c *Client) EditImage(ctx context.Context, imageBlob, mimeType, prompt string) (*Image, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: imageBlob}},
				{Text: prompt},
			},
		}},
	}

	resp, err := c.generate(ctx, c.editModel, req)
	if err != nil {
		return nil, err
	}

	// The image part is not guaranteed to be first; scan everything.
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				mime := p.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return &Image{Data: p.InlineData.Data, Mime: mime}, nil
			}
		}
	}

	if c.log != nil {
		c.log.Warn("edit response contained no image part", "model", c.editModel)
	}
	return nil, nil
}

// Suggest returns up to three short prompt completions for the text typed
// so far. An empty slice is a valid answer.
func (c *Client) Suggest(ctx context.Context, promptSoFar, contextText string) ([]string, error) {
	instruction := "Suggest up to 3 short completions for an image editing instruction. " +
		"Answer with one suggestion per line, nothing else.\nInstruction so far: " + promptSoFar
	if contextText != "" {
		instruction += "\nContext: " + contextText
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: instruction}}}},
	}

	resp, err := c.generate(ctx, c.suggestModel, req)
	if err != nil {
		return nil, err
	}

	var suggestions []string
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			for _, line := range strings.Split(p.Text, "\n") {
				line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
				if line == "" {
					continue
				}
				suggestions = append(suggestions, line)
				if len(suggestions) == 3 {
					return suggestions, nil
				}
			}
		}
	}
	return suggestions, nil
}

func (c *Client) generate(ctx context.Context, model string, payload generateRequest) (*generateResponse, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post gemini: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("gemini request failed", "status", resp.StatusCode, "model", model, "body", truncateBody(rawBody))
		}
		return nil, fmt.Errorf("gemini error: status=%d model=%s body=%s", resp.StatusCode, model, truncateBody(rawBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini error: code=%d msg=%s", parsed.Error.Code, parsed.Error.Message)
	}
	return &parsed, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
