package audit

import (
	"fmt"
	"strings"
)

func buildPrompt(contextText string) string {
	var sb strings.Builder
	sb.WriteString(`分析这张聊天记录截图。
1. 识别用户的具体问题。
2. 转录客服的回复。
3. 基于同理心、清晰度和解决方案准确性对回复进行打分 (1-10)。
4. 用中文提供点评，指出不足之处。
5. 提供一个更好的回复话术 (中文)。
6. 判断用户情绪。
`)
	if contextText != "" {
		fmt.Fprintf(&sb, "额外上下文: %s\n", contextText)
	}
	return sb.String()
}
