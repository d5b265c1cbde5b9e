package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionPayload(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"finish_reason": "stop",
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := json.NewEncoder(w).Encode(completionPayload("  APPROVED\n")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "APPROVED" {
		t.Fatalf("expected trimmed APPROVED, got %q", content)
	}
}

func TestClientCompleteJSONRequestsJSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat["type"] != jsonResponseType {
			t.Fatalf("expected json response format, got %v", req.ResponseFormat)
		}
		if err := json.NewEncoder(w).Encode(completionPayload(`[[1,2],[3,4]]`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.CompleteJSON(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	var groups [][]int64
	if err := DecodeJSON(content, &groups); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}
}

func TestClientCompleteRequiresPrompts(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo-model"})
	if _, err := client.Complete(context.Background(), "", "user"); err == nil {
		t.Fatal("expected error for missing system prompt")
	}
	if _, err := client.Complete(context.Background(), "system", "  "); err == nil {
		t.Fatal("expected error for missing user prompt")
	}
}

func TestClientCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "demo-model"})
	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(completionPayload("DECLINED"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", RetryCount: 5},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	content, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "DECLINED" {
		t.Fatalf("expected DECLINED, got %q", content)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryOnHTTP400(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", RetryCount: 5},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Complete(context.Background(), "system prompt", "user prompt"); err == nil {
		t.Fatal("expected client error to surface")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "APPROVED"
		}
		_ = json.NewEncoder(w).Encode(completionPayload(content))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", RetryCount: 5},
		WithSleeper(func(time.Duration) {}),
	)
	content, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "APPROVED" {
		t.Fatalf("expected APPROVED, got %q", content)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientExhaustedRetriesReportAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", RetryCount: 3},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain array", `[[1,2]]`, false},
		{"code fence", "```json\n[[1,2]]\n```", false},
		{"prose wrapped", "Here are the groups: [[1,2]] as requested.", false},
		{"empty", "   ", true},
		{"not json", "no groups found", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var groups [][]int64
			err := DecodeJSON(tc.payload, &groups)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON(%q): %v", tc.payload, err)
			}
			if len(groups) != 1 || len(groups[0]) != 2 {
				t.Fatalf("unexpected decode result: %v", groups)
			}
		})
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo", RetryDelaySeconds: 5})
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := client.backoffDelay(tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
