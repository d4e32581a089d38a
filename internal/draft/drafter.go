// Package draft generates suggested support replies from keywords, a
// tone selector, and free-text business rules.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/csgenius/csgenius/internal/genai"
)

// ErrNoKeywords is returned when the required keywords are empty.
var ErrNoKeywords = errors.New("draft requires keywords")

// DefaultTone is used when the requested tone is not one of ToneOptions.
const DefaultTone = "专业且共情 (Empathetic & Professional)"

// ToneOptions is the fixed set of tone selector values.
var ToneOptions = []string{
	DefaultTone,
	"正式且直接 (Formal & Direct)",
	"轻松友好 (Casual & Friendly)",
	"诚恳致歉 (Apologetic)",
}

// Generator is the completion-service call used by the Drafter.
type Generator interface {
	GenerateContent(ctx context.Context, parts []genai.Part, cfg *genai.GenerationConfig) (string, error)
}

// Drafter implements the reply-drafting contract.
type Drafter struct {
	client Generator
}

// New creates a Drafter backed by the given Generator.
func New(client Generator) *Drafter {
	return &Drafter{client: client}
}

// NormalizeTone maps a tone label onto ToneOptions, falling back to the
// default tone.
func NormalizeTone(tone string) string {
	for _, opt := range ToneOptions {
		if tone == opt {
			return tone
		}
	}
	return DefaultTone
}

// Draft generates a single reply from the keywords, tone, and ordered
// business rules. Keywords are required. The response is plain text; an
// empty result means no draft is available and the caller may simply
// re-invoke.
func (d *Drafter) Draft(ctx context.Context, keywords, tone string, rules []string) (string, error) {
	if strings.TrimSpace(keywords) == "" {
		return "", ErrNoKeywords
	}

	prompt := buildPrompt(keywords, NormalizeTone(tone), rules)
	reply, err := d.client.GenerateContent(ctx, []genai.Part{genai.TextPart(prompt)}, nil)
	if err != nil {
		slog.Warn("draft generation call failed", "error", err)
		return "", fmt.Errorf("generating draft: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// buildPrompt embeds keywords, the tone label, and a bullet-joined rule
// list into the single free-text drafting prompt. Supplied business
// rules take priority over the general style guidance, and the sign-off
// is a fixed generic closing, never a placeholder name.
func buildPrompt(keywords, tone string, rules []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `请编写一条客户服务回复（邮件或消息）。
关键词/问题: %s
语气要求: %s
`, keywords, tone)

	if len(rules) > 0 {
		sb.WriteString("\n必须遵守以下参考语料/业务规则:\n")
		for _, r := range rules {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}

	sb.WriteString(`
通用生成规则:
- 语言必须是中文。
- 充满同理心。
- 清晰简洁。
- 如果是拒绝请求，请礼貌但坚定。
- 如果提供了业务规则，请优先依据规则生成。
- 落款为 '客服团队'，不要使用 [你的名字] 等占位符。
`)
	return sb.String()
}
