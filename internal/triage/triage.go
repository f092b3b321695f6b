// Package triage asks a language model for the likely cause of a failed run.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = `You are on call for a synthetic monitor that buys travel insurance through a website.
Given the step that failed, the error and the text of the page at the time, answer with ONE short
sentence naming the most likely cause (site change, outage, validation message, slow page, test data).
Do not suggest fixes. Do not use markdown.`

// maxHintLen bounds what ends up in a chat message.
const maxHintLen = 300

// Input is what the model gets to see.
type Input struct {
	Step     string
	Error    string
	PageText string
}

func (in Input) prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Failed step: %s\n", in.Step)
	fmt.Fprintf(&b, "Error: %s\n", in.Error)
	if in.PageText != "" {
		fmt.Fprintf(&b, "\nPage text:\n%s\n", in.PageText)
	}
	return b.String()
}

// Config is the configuration of the Triager.
type Config struct {
	Model  llms.Model
	Logger logrus.FieldLogger
}

func (c *Config) defaults() error {
	if c.Model == nil {
		return fmt.Errorf("model is required")
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	c.Logger = c.Logger.WithField("svc", "triage.Triager")
	return nil
}

// Triager explains failures.
type Triager struct {
	model  llms.Model
	logger logrus.FieldLogger
}

func New(cfg Config) (*Triager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Triager{model: cfg.Model, logger: cfg.Logger}, nil
}

// NewOpenAI builds a Triager backed by an OpenAI compatible endpoint.
func NewOpenAI(apiKey, model, baseURL string, logger logrus.FieldLogger) (*Triager, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return New(Config{Model: llm, Logger: logger})
}

var errEmptyAnswer = errors.New("model returned no answer")

// Explain returns a one line hint for the failure described by in.
func (t *Triager) Explain(ctx context.Context, in Input) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(in.prompt())},
		},
	}

	resp, err := t.model.GenerateContent(ctx, messages, llms.WithTemperature(0), llms.WithMaxTokens(120))
	if err != nil {
		return "", fmt.Errorf("failed to ask model: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errEmptyAnswer
	}

	hint := oneLine(resp.Choices[0].Content)
	if hint == "" {
		return "", errEmptyAnswer
	}
	t.logger.WithField("step", in.Step).Debugf("Triage hint: %s", hint)
	return hint, nil
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`")
	r := []rune(s)
	if len(r) > maxHintLen {
		s = string(r[:maxHintLen-3]) + "..."
	}
	return s
}
