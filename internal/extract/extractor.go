// Package extract turns raw support material (pasted text, chat
// screenshots) into candidate knowledge items via the completion service.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/csgenius/csgenius/internal/genai"
	"github.com/csgenius/csgenius/internal/knowledge"
)

// ErrEmptyInput is returned when neither context text nor an image is
// provided; the contract must not be invoked without input.
var ErrEmptyInput = errors.New("extraction requires text or an image")

// Generator is the completion-service call used by the Extractor.
type Generator interface {
	GenerateContent(ctx context.Context, parts []genai.Part, cfg *genai.GenerationConfig) (string, error)
}

// Extractor implements the knowledge-extraction contract.
type Extractor struct {
	client Generator
}

// New creates an Extractor backed by the given Generator.
func New(client Generator) *Extractor {
	return &Extractor{client: client}
}

// extractionTemperature keeps the model factual rather than creative.
const extractionTemperature = 0.2

// candidate mirrors one record of the service's structured response.
// The response is untrusted: every field may be absent.
type candidate struct {
	App                  string   `json:"app"`
	Category             string   `json:"category"`
	Question             string   `json:"question"`
	AlternativeQuestions []string `json:"alternativeQuestions"`
	Answer               string   `json:"answer"`
	OptimizedAnswer      string   `json:"optimizedAnswer"`
	Frequency            string   `json:"frequency"`
}

type extractionResponse struct {
	Items []candidate `json:"items"`
}

// Extract sends the context text and/or inline PNG image to the service
// and returns the candidate knowledge items. At least one input must be
// non-empty. App labels outside the closed product list are coerced to
// the catch-all tag. An empty items array is a valid result, not an
// error.
func (e *Extractor) Extract(ctx context.Context, contextText, imageBase64 string) ([]knowledge.Item, error) {
	if contextText == "" && imageBase64 == "" {
		return nil, ErrEmptyInput
	}

	var parts []genai.Part
	if imageBase64 != "" {
		parts = append(parts, genai.ImagePart("image/png", imageBase64))
	}
	parts = append(parts, genai.TextPart(buildPrompt(contextText)))

	temp := extractionTemperature
	raw, err := e.client.GenerateContent(ctx, parts, &genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema(),
		Temperature:      &temp,
	})
	if err != nil {
		slog.Warn("knowledge extraction call failed", "error", err)
		return nil, fmt.Errorf("extracting knowledge: %w", err)
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		slog.Warn("knowledge extraction returned malformed JSON", "error", err, "response", raw)
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}

	items := make([]knowledge.Item, len(resp.Items))
	for i, c := range resp.Items {
		items[i] = knowledge.Item{
			App:                  knowledge.NormalizeApp(c.App),
			Category:             c.Category,
			Question:             c.Question,
			AlternativeQuestions: c.AlternativeQuestions,
			Answer:               c.Answer,
			OptimizedAnswer:      c.OptimizedAnswer,
			Frequency:            c.Frequency,
		}
	}
	return items, nil
}

// extractionSchema returns the strict JSON schema requested from the
// service: {items: [{app, category, question, ...}]}.
func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"items": {
				Type: "array",
				Items: &genai.Schema{
					Type: "object",
					Properties: map[string]*genai.Schema{
						"app":      {Type: "string", Description: "App 名称，必须是指定列表中的一个"},
						"category": {Type: "string", Description: "问题分类，例如：会员问题、使用问题"},
						"question": {Type: "string", Description: "标准问题描述"},
						"alternativeQuestions": {
							Type:        "array",
							Items:       &genai.Schema{Type: "string"},
							Description: "用户可能询问该问题的其他不同说法 (3-5个)",
						},
						"answer":          {Type: "string", Description: "从原文中提取的原始回答"},
						"optimizedAnswer": {Type: "string", Description: "基于原始回答优化后的专业、共情客服话术 (中文)"},
						"frequency":       {Type: "string", Description: "出现频率: 高, 中, 低"},
					},
					Required: []string{"app", "category", "question", "alternativeQuestions", "answer", "optimizedAnswer", "frequency"},
				},
			},
		},
	}
}
