package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// Completer sends one system+user prompt pair to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Assistant implements the classifier, summarizer and keyword extractor
// on top of a single Completer.
type Assistant struct {
	completer       Completer
	relevancePrompt string
	summaryPrompt   string
	keywordPrompt   string
	maxRetries      int
	newBackOff      func() backoff.BackOff
	logger          *zap.Logger
}

var (
	_ ports.RelevanceClassifier = (*Assistant)(nil)
	_ ports.Summarizer          = (*Assistant)(nil)
	_ ports.KeywordExtractor    = (*Assistant)(nil)
)

// NewCompleter picks the provider named in configuration.
func NewCompleter(cfg config.LLMConfig) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai", "chatgpt":
		return NewChatGPTClient(cfg, nil), nil
	case "anthropic", "claude":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewAssistant wires prompts and the retry policy from configuration.
func NewAssistant(completer Completer, cfg config.LLMConfig, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		completer:       completer,
		relevancePrompt: cfg.RelevancePrompt,
		summaryPrompt:   cfg.SummaryPrompt,
		keywordPrompt:   cfg.KeywordPrompt,
		maxRetries:      cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: logger,
	}
}

// Classify asks the model for the relevance tier of a headline title.
func (a *Assistant) Classify(ctx context.Context, title string) (domain.RelevanceTier, error) {
	answer, err := a.complete(ctx, a.relevancePrompt, title)
	if err != nil {
		return "", err
	}
	tier, ok := domain.ParseRelevanceTier(answer)
	if !ok {
		return "", &domain.ClassificationError{Answer: answer}
	}
	return tier, nil
}

// Summarize asks the model for an effect/cause pair describing the article content.
func (a *Assistant) Summarize(ctx context.Context, content string) (domain.Summary, error) {
	answer, err := a.complete(ctx, a.summaryPrompt, content)
	if err != nil {
		return domain.Summary{}, err
	}
	return parseSummary(answer)
}

// ExtractKeywords turns a free-text request into a space separated search string.
// An empty result is not an error.
func (a *Assistant) ExtractKeywords(ctx context.Context, prompt string) (string, error) {
	answer, err := a.complete(ctx, a.keywordPrompt, prompt)
	if err != nil {
		return "", err
	}
	answer = strings.NewReplacer("\"", " ", "'", " ", "、", " ", "，", " ", ",", " ").Replace(answer)
	return strings.Join(strings.Fields(answer), " "), nil
}

func (a *Assistant) complete(ctx context.Context, system, user string) (string, error) {
	if a.completer == nil {
		return "", fmt.Errorf("llm completer is not configured")
	}

	var b backoff.BackOff = a.newBackOff()
	if a.maxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(a.maxRetries))
	}
	b = backoff.WithContext(b, ctx)

	var answer string
	op := func() error {
		var err error
		answer, err = a.completer.Complete(ctx, system, user)
		return err
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Debug("llm call failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// parseSummary accepts the JSON object with either the Chinese or English keys,
// optionally wrapped in a markdown code fence or surrounding prose.
func parseSummary(answer string) (domain.Summary, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return domain.Summary{}, &domain.SummaryError{}
	}

	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return domain.Summary{}, &domain.SummaryError{Answer: answer, Err: errors.New("no json object in response")}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(answer[start:end+1]), &fields); err != nil {
		return domain.Summary{}, &domain.SummaryError{Answer: answer, Err: err}
	}

	summary := domain.Summary{
		Effect: firstString(fields, "影響", "effect", "summary"),
		Cause:  firstString(fields, "原因", "cause", "reason"),
	}
	if summary.Empty() {
		return domain.Summary{}, &domain.SummaryError{Answer: answer, Err: errors.New("summary fields are empty")}
	}
	return summary, nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
