package gen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/shadowbox/shadow"
)

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator("", "gpt-4o-mini"); err == nil {
		t.Error("empty api key accepted")
	}
}

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		wantLen int
	}{
		{
			name:    "plain json",
			content: `{"sentences":[{"id":1,"text":"Hello.","translation":"こんにちは。"}]}`,
			wantLen: 1,
		},
		{
			name: "fenced json",
			content: "```json\n" +
				`{"sentences":[{"id":1,"text":"Hi.","translation":"やあ。"},{"id":2,"text":"Bye.","translation":"じゃあ。"}]}` +
				"\n```",
			wantLen: 2,
		},
		{
			name: "bare fence",
			content: "```\n" +
				`{"sentences":[{"id":1,"text":"Hi.","translation":"やあ。"}]}` +
				"\n```",
			wantLen: 1,
		},
		{
			name:    "not json",
			content: "Sure! Here are some sentences:",
			wantErr: true,
		},
		{
			name:    "empty sentences",
			content: `{"sentences":[]}`,
			wantErr: true,
		},
		{
			name:    "fallback sentinel",
			content: `{"sentences":[{"id":1,"text":"` + shadow.FallbackText + `"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := parseScript(tt.content, "test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScript: %v", err)
			}
			if len(script.Sentences) != tt.wantLen {
				t.Errorf("sentences = %d, want %d", len(script.Sentences), tt.wantLen)
			}
			if script.Theme != "test" {
				t.Errorf("theme = %q, want test", script.Theme)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := shadow.GenerateRequest{
		Theme:          "Today's News",
		SearchContext:  "headline: markets up",
		SentenceCount:  3,
		ExcludedTopics: []string{"The market rallied today."},
	}
	prompt := buildPrompt(req)

	for _, want := range []string{
		"Theme: Today's News",
		"Sentence count: 3",
		"headline: markets up",
		"- The market rallied today.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := buildPrompt(shadow.GenerateRequest{Theme: "Travel"})
	if !strings.Contains(prompt, "Sentence count: 5") {
		t.Errorf("default sentence count not applied:\n%s", prompt)
	}
	if strings.Contains(prompt, "search results") {
		t.Errorf("empty search context leaked into prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "Do not repeat") {
		t.Errorf("empty exclusions leaked into prompt:\n%s", prompt)
	}
}

// TestGenerateRoundTrip drives Generate against a local chat-completions
// stub and checks the request and the parsed script.
func TestGenerateRoundTrip(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reply := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"sentences":[{"id":1,"text":"Good morning.","translation":"おはよう。"}]}`,
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply) //nolint:errcheck
	}))
	defer srv.Close()

	g, err := NewGenerator("test-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	script, err := g.Generate(context.Background(), shadow.GenerateRequest{
		Theme:         "Morning Routine",
		SentenceCount: 1,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(script.Sentences) != 1 || script.Sentences[0].Text != "Good morning." {
		t.Errorf("script = %+v", script)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("request model = %v", gotBody["model"])
	}
}

// TestGenerateServerError verifies HTTP failures map to the generation
// sentinel.
func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewGenerator("test-key", "", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	_, err = g.Generate(context.Background(), shadow.GenerateRequest{Theme: "x"})
	if !errors.Is(err, shadow.ErrGenerationFailed) {
		t.Errorf("Generate = %v, want ErrGenerationFailed", err)
	}
}
