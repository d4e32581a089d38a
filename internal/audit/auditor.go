// Package audit scores transcribed support interactions from chat
// screenshots via the completion service.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/csgenius/csgenius/internal/genai"
)

// ErrNoImage is returned when the required screenshot is missing.
var ErrNoImage = errors.New("audit requires a chat screenshot")

// Sentiment labels the service is instructed to choose from.
var SentimentOptions = []string{"满意", "平静", "不满", "愤怒"}

// Generator is the completion-service call used by the Auditor.
type Generator interface {
	GenerateContent(ctx context.Context, parts []genai.Part, cfg *genai.GenerationConfig) (string, error)
}

// Result is one quality assessment. It is ephemeral: results live only
// for the current audit session and are never stored, though a caller
// may promote one into a knowledge item via an explicit save.
type Result struct {
	ID                    string  `json:"id"`
	UserIssue             string  `json:"userIssue"`
	AgentResponseOriginal string  `json:"agentResponseOriginal"`
	Score                 float64 `json:"score"`
	Critique              string  `json:"critique"`
	ImprovedResponse      string  `json:"improvedResponse"`
	Sentiment             string  `json:"sentiment"`
	Timestamp             string  `json:"timestamp"`
}

// Grade buckets a score for display. The contract itself never clamps
// or validates the score; out-of-range values pass through unchanged
// and only affect the bucket chosen here.
func (r Result) Grade() string {
	switch {
	case r.Score >= 8:
		return "good"
	case r.Score >= 5:
		return "fair"
	default:
		return "poor"
	}
}

// Negative reports whether the detected sentiment is an unhappy one.
func (r Result) Negative() bool {
	switch r.Sentiment {
	case "不满", "愤怒", "Negative", "Frustrated":
		return true
	}
	return false
}

// Auditor implements the chat-audit contract.
type Auditor struct {
	client Generator
	now    func() time.Time
}

// New creates an Auditor backed by the given Generator.
func New(client Generator) *Auditor {
	return &Auditor{client: client, now: time.Now}
}

// assessment mirrors the service's structured response.
type assessment struct {
	UserIssue             string  `json:"userIssue"`
	AgentResponseOriginal string  `json:"agentResponseOriginal"`
	Score                 float64 `json:"score"`
	Critique              string  `json:"critique"`
	ImprovedResponse      string  `json:"improvedResponse"`
	Sentiment             string  `json:"sentiment"`
}

// Audit sends the screenshot (required, inline JPEG) and optional
// context text to the service and returns the structured assessment.
func (a *Auditor) Audit(ctx context.Context, imageBase64, contextText string) (Result, error) {
	if imageBase64 == "" {
		return Result{}, ErrNoImage
	}

	parts := []genai.Part{
		genai.ImagePart("image/jpeg", imageBase64),
		genai.TextPart(buildPrompt(contextText)),
	}

	raw, err := a.client.GenerateContent(ctx, parts, &genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   auditSchema(),
	})
	if err != nil {
		slog.Warn("chat audit call failed", "error", err)
		return Result{}, fmt.Errorf("auditing chat: %w", err)
	}

	var parsed assessment
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("chat audit returned malformed JSON", "error", err, "response", raw)
		return Result{}, fmt.Errorf("parsing audit response: %w", err)
	}

	return Result{
		ID:                    uuid.New().String(),
		UserIssue:             parsed.UserIssue,
		AgentResponseOriginal: parsed.AgentResponseOriginal,
		Score:                 parsed.Score,
		Critique:              parsed.Critique,
		ImprovedResponse:      parsed.ImprovedResponse,
		Sentiment:             parsed.Sentiment,
		Timestamp:             a.now().Format(time.RFC3339),
	}, nil
}

func auditSchema() *genai.Schema {
	return &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"userIssue":             {Type: "string", Description: "用户的问题 (中文)"},
			"agentResponseOriginal": {Type: "string", Description: "从图片转录的客服原始回复"},
			"score":                 {Type: "number", Description: "质量评分 1-10"},
			"critique":              {Type: "string", Description: "评分理由及改进点 (中文)"},
			"improvedResponse":      {Type: "string", Description: "更具同理心且准确的优化话术 (中文)"},
			"sentiment":             {Type: "string", Description: "用户情绪: 满意, 平静, 不满, 愤怒"},
		},
		Required: []string{"userIssue", "agentResponseOriginal", "score", "critique", "improvedResponse", "sentiment"},
	}
}
