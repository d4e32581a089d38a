package knowledge

import "time"

// DateLayout is the calendar-date format used for LastUpdated.
// Knowledge items carry no time component.
const DateLayout = "2006-01-02"

// AppGeneral is the catch-all product tag for entries that do not belong
// to a specific app.
const AppGeneral = "通用"

// Uncategorized is the sentinel label used in distributions for entries
// with an empty app or category.
const Uncategorized = "未分类"

// AppOptions is the closed set of product tags an item may carry.
var AppOptions = []string{"辞书", "Test", "阅读", "Kana", "会话", "Web", "活动", AppGeneral}

// Frequency display values.
const (
	FrequencyHigh   = "高"
	FrequencyMedium = "中"
	FrequencyLow    = "低"
)

// Item is one canonical support Q&A record.
type Item struct {
	ID                   string   `json:"id"`
	App                  string   `json:"app"`
	Category             string   `json:"category"`
	Question             string   `json:"question"`
	AlternativeQuestions []string `json:"alternativeQuestions,omitempty"`
	Answer               string   `json:"answer"`
	OptimizedAnswer      string   `json:"optimizedAnswer,omitempty"`
	Frequency            string   `json:"frequency"`
	LastUpdated          string   `json:"lastUpdated"`
}

// NormalizeApp maps an app label onto the closed AppOptions list.
// Unrecognized or empty values fall back to the catch-all tag.
func NormalizeApp(app string) string {
	for _, opt := range AppOptions {
		if app == opt {
			return app
		}
	}
	return AppGeneral
}

// parseDate parses an item date, reporting whether it was valid.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Seed returns the built-in starter entries shipped with an empty
// knowledge base.
func Seed() []Item {
	return []Item{
		{
			ID:       "seed-1",
			App:      "辞书",
			Category: "会员问题",
			Question: "为什么我的退款被拒绝？",
			AlternativeQuestions: []string{
				"退款失败是什么原因？",
				"申请退款没通过",
				"怎么才能符合退款条件？",
			},
			Answer:          "只有在购买后 14 天内且未使用的商品才能申请退款。",
			OptimizedAnswer: "我们完全理解您的困扰。根据我们的退款政策，退款通常适用于购买后 14 天内未使用的商品。虽然这次无法为您办理，但我们很乐意为您提供下一次订阅的折扣优惠。",
			Frequency:       FrequencyHigh,
			LastUpdated:     "2023-10-27",
		},
		{
			ID:       "seed-2",
			App:      "Test",
			Category: "使用问题",
			Question: "应用启动崩溃 (iOS)",
			AlternativeQuestions: []string{
				"打开App就闪退",
				"iOS版本无法进入应用",
				"Test应用总是崩溃",
			},
			Answer:          "请确保版本为 2.4.5。尝试彻底卸载并重新安装。",
			OptimizedAnswer: "很抱歉给您带来不便。请尝试将应用更新至最新的 2.4.5 版本。如果问题依旧，建议您卸载后重新安装，这通常能解决大多数启动问题。如有需要，请随时联系我们。",
			Frequency:       FrequencyMedium,
			LastUpdated:     "2023-11-02",
		},
	}
}
