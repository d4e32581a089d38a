package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeService returns an httptest.Server mimicking the completion
// endpoint and a Client pointed at it.
func fakeService(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", "test-model")
}

func candidateJSON(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]string{"text": text}}}},
		},
	})
	return string(b)
}

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, candidateJSON("hello"))
	})

	temp := 0.2
	out, err := c.GenerateContent(context.Background(),
		[]Part{ImagePart("image/png", "aW1n"), TextPart("describe")},
		&GenerationConfig{ResponseMIMEType: "application/json", Temperature: &temp},
	)
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q, want hello", out)
	}
	if gotPath != "/v1beta/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("request contents = %+v", gotBody.Contents)
	}
	img := gotBody.Contents[0].Parts[0].InlineData
	if img == nil || img.MIMEType != "image/png" || img.Data != "aW1n" {
		t.Errorf("inline data = %+v", img)
	}
	if gotBody.GenerationConfig == nil || gotBody.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("generation config = %+v", gotBody.GenerationConfig)
	}
}

func TestGenerateContentConcatenatesParts(t *testing.T) {
	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"foo"},{"text":"bar"}]}}]}`)
	})

	out, err := c.GenerateContent(context.Background(), []Part{TextPart("x")}, nil)
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if out != "foobar" {
		t.Errorf("out = %q, want foobar", out)
	}
}

func TestGenerateContentNon200(t *testing.T) {
	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	})

	_, err := c.GenerateContent(context.Background(), []Part{TextPart("x")}, nil)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestGenerateContentMalformedBody(t *testing.T) {
	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})

	if _, err := c.GenerateContent(context.Background(), []Part{TextPart("x")}, nil); err == nil {
		t.Fatal("expected error for malformed response body")
	}
}

func TestGenerateContentNoCandidates(t *testing.T) {
	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	})

	if _, err := c.GenerateContent(context.Background(), []Part{TextPart("x")}, nil); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
