package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the public completion-service endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Part is one piece of multimodal request content: either text or an
// inline base64-encoded image.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries a base64-encoded image payload.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// TextPart builds a text Part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline-image Part from base64 data.
func ImagePart(mimeType, data string) Part {
	return Part{InlineData: &InlineData{MIMEType: mimeType, Data: data}}
}

// Schema describes the expected JSON output structure for structured
// responses. Schemas nest: array schemas set Items, object schemas set
// Properties.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// GenerationConfig tunes a single completion request. A non-nil
// ResponseSchema together with a JSON ResponseMIMEType requests strict
// structured output.
type GenerationConfig struct {
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// Client communicates with the completion service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a Client for the given model. An empty baseURL selects the
// public endpoint. The client carries no overall timeout; callers bound
// requests via ctx.
func New(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 0},
	}
}

/// generateRequest is the JSON body for :generateContent.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []Part `json:"parts"`
}

// generateResponse is the JSON returned by :generateContent.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends the parts to the model and returns the
// concatenated text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, parts []Part, cfg *GenerationConfig) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("generate: no candidates in response")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
