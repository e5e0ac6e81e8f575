// Package keywords 从句子中提取用于表情包搜索的韩语关键词。
package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jjalkak/go-meme-service/internal/config"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/unicode/norm"
)

const (
	temperature = 0.7
	maxTokens   = 100
	maxLocal    = 5
	minTokenLen = 2
)

// 조사（助词）替换成空格后再切分
const particles = "은는이가을를의와과에서로부터까지"

// 本地提取什么都没得到时的默认关键词
var defaultKeywords = []string{"짤", "밈"}

var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

// Set 关键词集合
type Set struct {
	Korean []string `json:"korean"`
}

// Empty 是否为空
func (s Set) Empty() bool {
	return len(s.Korean) == 0
}

// Clone 深拷贝
func (s Set) Clone() Set {
	out := make([]string, len(s.Korean))
	copy(out, s.Korean)
	return Set{Korean: out}
}

// Extractor 关键词提取器
//
// 没有配置 OpenAI 凭证时只使用本地规则，不发起任何网络请求。
type Extractor struct {
	client  *openai.Client
	model   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New 创建提取器
func New(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = applog.Discard()
	}
	e := &Extractor{
		model:   cfg.OpenAIModel,
		metrics: m,
		logger:  logger.With("component", "keywords"),
	}
	if e.model == "" {
		e.model = openai.GPT3Dot5Turbo
	}

	if cfg.HasLLM() {
		oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		e.client = openai.NewClientWithConfig(oc)
	}
	return e
}

// UsesLLM 是否会调用模型
func (e *Extractor) UsesLLM() bool {
	return e.client != nil
}

// ExtractKeywords 提取关键词
//
// 模型调用只尝试一次；调用失败、回复中没有 JSON、korean 字段缺失或为空都退回本地规则。
// 因此返回值总是非空，调用方的第二阶段关键词搜索一定会执行。
func (e *Extractor) ExtractKeywords(ctx context.Context, sentence string) Set {
	if e.client == nil {
		e.metrics.KeywordExtraction("local")
		return Heuristic(sentence)
	}

	set, err := e.complete(ctx, sentence)
	if err != nil {
		e.logger.Warn("llm keyword extraction failed, using heuristic", "error", err)
		e.metrics.KeywordExtraction("fallback")
		return Heuristic(sentence)
	}

	e.metrics.KeywordExtraction("llm")
	e.logger.Debug("keywords extracted", "keywords", set.Korean)
	return set
}

func (e *Extractor) complete(ctx context.Context, sentence string) (Set, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: Prompt(sentence)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Set{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Set{}, ErrNoChoices
	}
	return ParseReply(resp.Choices[0].Message.Content)
}

// Prompt 固定的 JSON-only 提示词
func Prompt(sentence string) string {
	return "다음 문장에서 짤/밈 검색에 적합한 한국어 키워드를 추출해줘.\n" +
		"반드시 아래 JSON 형식으로만 응답해:\n" +
		`{"korean": ["키워드1", "키워드2", "키워드3"]}` + "\n\n" +
		`문장: "` + sentence + `"`
}

// ParseReply 解析模型回复中第一个 {...} 片段
func ParseReply(content string) (Set, error) {
	span := jsonSpan.FindString(content)
	if span == "" {
		return Set{}, ErrNoJSON
	}

	var parsed struct {
		Korean []string `json:"korean"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	out := make([]string, 0, len(parsed.Korean))
	for _, k := range parsed.Korean {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return Set{}, ErrNoKeywords
	}
	return Set{Korean: out}, nil
}

// Heuristic 本地关键词规则：去助词、按空白切分、保留两字以上的前五个
func Heuristic(sentence string) Set {
	s := norm.NFC.String(sentence)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(particles, r) {
			return ' '
		}
		return r
	}, s)

	var words []string
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) >= minTokenLen {
			words = append(words, w)
		}
		if len(words) == maxLocal {
			break
		}
	}

	if len(words) == 0 {
		words = append([]string(nil), defaultKeywords...)
	}
	return Set{Korean: words}
}
