package llm

import (
	"context"
	"errors"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"swipe_server/pkg/httputil"
)

// Client is a chat-completion client used for email classification.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	jsonMode    bool
}

type ClientConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // OpenAI-compatible endpoint, empty for api.openai.com
	MaxTokens   int
	Temperature *float64 // nil uses DefaultTemperature
	Timeout     time.Duration
	// JSONMode requests a JSON object response. Some compatible gateways reject it.
	JSONMode bool
}

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 400
	DefaultTemperature = 0.2
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

func NewClientWithConfig(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	// go-openai omits a zero temperature from the request body
	if temperature <= 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = httputil.NewClient(httputil.LLMClientConfig(cfg.Timeout))

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		jsonMode:    cfg.JSONMode,
	}
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user prompt and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
