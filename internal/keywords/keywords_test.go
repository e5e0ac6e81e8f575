package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jjalkak/go-meme-service/internal/config"
)

func TestHeuristic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentence string
		want     []string
	}{
		{"particles removed", "커피 없이 못 살아", []string{"커피", "살아"}},
		{"plain words", "월요일 출근하기 싫어", []string{"월요일", "출근하기", "싫어"}},
		{"single syllables only", "나 너 왜", []string{"짤", "밈"}},
		{"empty", "", []string{"짤", "밈"}},
		{"at most five", "바나나 햄버거 치킨 피자 라면 냉면", []string{"바나나", "햄버거", "치킨", "피자", "라면"}},
		{"particle splits word", "고양이가 귀여워", []string{"고양", "귀여워"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Heuristic(tt.sentence)
			if !reflect.DeepEqual(got.Korean, tt.want) {
				t.Errorf("Heuristic(%q) = %v, want %v", tt.sentence, got.Korean, tt.want)
			}
		})
	}
}

func TestExtractKeywordsWithoutCredential(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.OpenAIAPIKey = ""
	cfg.OpenAIBaseURL = "http://127.0.0.1:1"

	e := New(cfg, nil, nil)
	if e.UsesLLM() {
		t.Fatal("UsesLLM() = true without credential")
	}

	got := e.ExtractKeywords(context.Background(), "커피 없이 못 살아")
	if got.Empty() {
		t.Fatal("ExtractKeywords() returned empty set")
	}
	if !reflect.DeepEqual(got.Korean, []string{"커피", "살아"}) {
		t.Errorf("ExtractKeywords() = %v", got.Korean)
	}
}

func fakeLLM(t *testing.T, reply string, status int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		if req["model"] != "gpt-3.5-turbo" {
			t.Errorf("model = %v", req["model"])
		}
		if req["max_tokens"] != float64(100) {
			t.Errorf("max_tokens = %v", req["max_tokens"])
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
}

func llmConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OpenAIAPIKey = "sk-test-0000000000000000"
	cfg.OpenAIBaseURL = baseURL + "/v1"
	cfg.OpenAIModel = "gpt-3.5-turbo"
	return cfg
}

func TestExtractKeywordsLLM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reply  string
		status int
		want   []string
	}{
		{
			name:   "json reply",
			reply:  `{"korean": ["월요병", "출근", "직장인"]}`,
			status: http.StatusOK,
			want:   []string{"월요병", "출근", "직장인"},
		},
		{
			name:   "json wrapped in prose",
			reply:  "키워드입니다:\n{\"korean\": [\"퇴근\"]}\n감사합니다",
			status: http.StatusOK,
			want:   []string{"퇴근"},
		},
		{
			name:   "no json falls back",
			reply:  "죄송합니다",
			status: http.StatusOK,
			want:   []string{"월요일", "출근하기", "싫어"},
		},
		{
			name:   "empty korean list falls back",
			reply:  `{"korean": []}`,
			status: http.StatusOK,
			want:   []string{"월요일", "출근하기", "싫어"},
		},
		{
			name:   "server error falls back",
			status: http.StatusInternalServerError,
			want:   []string{"월요일", "출근하기", "싫어"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := fakeLLM(t, tt.reply, tt.status, &calls)
			defer srv.Close()

			e := New(llmConfig(srv.URL), nil, nil)
			got := e.ExtractKeywords(context.Background(), "월요일 출근하기 싫어")
			if !reflect.DeepEqual(got.Korean, tt.want) {
				t.Errorf("ExtractKeywords() = %v, want %v", got.Korean, tt.want)
			}
			if calls.Load() != 1 {
				t.Errorf("llm called %d times, want exactly 1", calls.Load())
			}
		})
	}
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	if _, err := ParseReply(`{"english": ["a"]}`); !errors.Is(err, ErrNoKeywords) {
		t.Errorf("missing korean field error = %v, want ErrNoKeywords", err)
	}
	if _, err := ParseReply(`{"korean": [}`); !errors.Is(err, ErrNoJSON) {
		t.Errorf("invalid json error = %v, want ErrNoJSON", err)
	}
	got, err := ParseReply(`{"korean": [" 짤 ", ""]}`)
	if err != nil || !reflect.DeepEqual(got.Korean, []string{"짤"}) {
		t.Errorf("ParseReply() = %v, %v", got.Korean, err)
	}
}

func TestPromptContainsSentence(t *testing.T) {
	t.Parallel()

	p := Prompt("배고파 죽겠어")
	if !strings.Contains(p, `문장: "배고파 죽겠어"`) || !strings.Contains(p, `{"korean"`) {
		t.Errorf("Prompt() = %q", p)
	}
}
