package aisvc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
)

const systemPrompt = "You write short, friendly bios for children in a parents' group. Reply with the bio only."

var errEmptyCompletion = errors.New("openai returned no choices")

type Options struct {
	APIKey    string
	BaseURL   string // empty means the public OpenAI API
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIGenerator generates bios with the chat completion API behind a circuit breaker.
type OpenAIGenerator struct {
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	opts    Options
}

var _ child.BioGenerator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(opts Options, logger core.Logger) *OpenAIGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	st := gobreaker.Settings{
		Name:     "openai-bio",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// a caller giving up is not an upstream fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				map[string]interface{}{"breaker": name, "from": from.String(), "to": to.String()})
		},
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		breaker: gobreaker.NewCircuitBreaker(st),
		opts:    opts,
	}
}

func (g *OpenAIGenerator) GenerateBio(ctx context.Context, prompt string) (string, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, prompt)
	})
	if err != nil {
		return "", errors.Wrap(err, "generating bio")
	}
	return out.(string), nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: 0.8,
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// State returns the circuit breaker state.
func (g *OpenAIGenerator) State() gobreaker.State {
	return g.breaker.State()
}
