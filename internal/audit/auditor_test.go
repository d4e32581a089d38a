package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/csgenius/csgenius/internal/genai"
)

type fakeGenerator struct {
	parts []genai.Part
	cfg   *genai.GenerationConfig
	resp  string
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts []genai.Part, cfg *genai.GenerationConfig) (string, error) {
	f.parts = parts
	f.cfg = cfg
	return f.resp, f.err
}

const sampleAssessment = `{
	"userIssue": "退款被拒绝",
	"agentResponseOriginal": "不符合条件",
	"score": 4,
	"critique": "缺乏同理心",
	"improvedResponse": "我们理解您的困扰……",
	"sentiment": "不满"
}`

func TestAuditRequiresImage(t *testing.T) {
	a := New(&fakeGenerator{resp: sampleAssessment})
	if _, err := a.Audit(context.Background(), "", "ctx"); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
}

func TestAuditParsesAssessment(t *testing.T) {
	fake := &fakeGenerator{resp: sampleAssessment}
	a := New(fake)
	a.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	res, err := a.Audit(context.Background(), "aW1n", "额外说明")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.UserIssue != "退款被拒绝" || res.Score != 4 || res.Sentiment != "不满" {
		t.Errorf("result = %+v", res)
	}
	if res.ID == "" || res.Timestamp != "2024-06-01T12:00:00Z" {
		t.Errorf("display fields = id %q, ts %q", res.ID, res.Timestamp)
	}

	// Image goes first as inline JPEG, then the instruction text.
	if len(fake.parts) != 2 || fake.parts[0].InlineData == nil {
		t.Fatalf("parts = %+v", fake.parts)
	}
	if fake.parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", fake.parts[0].InlineData.MIMEType)
	}
	if fake.cfg == nil || fake.cfg.ResponseSchema == nil {
		t.Errorf("structured output not requested: %+v", fake.cfg)
	}
}

func TestAuditScorePassedThroughUnclamped(t *testing.T) {
	a := New(&fakeGenerator{resp: `{"userIssue":"q","agentResponseOriginal":"r","score":37,"critique":"c","improvedResponse":"i","sentiment":"平静"}`})
	res, err := a.Audit(context.Background(), "aW1n", "")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.Score != 37 {
		t.Errorf("Score = %v, want out-of-range 37 passed through", res.Score)
	}
}

func TestGradeThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10, "good"},
		{8, "good"},
		{7.9, "fair"},
		{5, "fair"},
		{4.9, "poor"},
		{-3, "poor"},
	}
	for _, tt := range tests {
		if got := (Result{Score: tt.score}).Grade(); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNegativeSentiment(t *testing.T) {
	for _, s := range []string{"不满", "愤怒", "Negative", "Frustrated"} {
		if !(Result{Sentiment: s}).Negative() {
			t.Errorf("Negative(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"满意", "平静", ""} {
		if (Result{Sentiment: s}).Negative() {
			t.Errorf("Negative(%q) = true, want false", s)
		}
	}
}

func TestAuditFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGenerator
	}{
		{"service error", &fakeGenerator{err: errors.New("boom")}},
		{"malformed response", &fakeGenerator{resp: "not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.fake).Audit(context.Background(), "aW1n", ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}
