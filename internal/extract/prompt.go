package extract

import (
	"fmt"
	"strings"

	"github.com/csgenius/csgenius/internal/knowledge"
)

// buildPrompt constructs the extraction instruction text. The closed app
// list is spelled out so the model classifies against it; anything it
// invents anyway is coerced at parse time.
func buildPrompt(contextText string) string {
	var sb strings.Builder
	sb.WriteString(`分析提供的内容（文本或图片）。
提取客户服务问答知识条目。
**重要：如果这是一张包含多个问题的表格或列表图片，请务必提取所有可见的行/问题，不要遗漏。**

对于每一条提取的内容：
`)
	fmt.Fprintf(&sb, "1. **识别 App 名称**：必须严格归类为以下列表之一：['%s']。如果不确定或不属于前述产品，请归类为 '%s'。\n",
		strings.Join(knowledge.AppOptions, "', '"), knowledge.AppGeneral)
	sb.WriteString(`2. **识别问题分类**：例如：会员问题、使用问题、功能建议、账号异常、支付问题等。
3. **识别标准问题 (Question)**。
4. **生成相似问法 (AlternativeQuestions)**：列出 3-5 个用户可能询问同一问题的不同说法（使用不同的关键词、口语化表达或从不同角度提问）。
5. 提取原始的官方回复 (Answer)。
6. **生成优化话术 (OptimizedAnswer)**：基于原始回复，编写一段更具同理心、专业且清晰的客服回复。
7. 如果内容中提到了频率，请提取；如果没有，请根据问题严重性估算为：高、中、低。

请直接输出中文内容。
返回严格的 JSON 格式。
`)
	if contextText != "" {
		fmt.Fprintf(&sb, "上下文文本: %s\n", contextText)
	}
	return sb.String()
}
