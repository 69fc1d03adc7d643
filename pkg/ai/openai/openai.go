package openai

import (
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client talks to an OpenAI compatible chat completions endpoint.
//
// A Client should be created using NewClient.
type Client struct {
	model   string
	chatURL string

	metrics ai.MetricsRecorder

	ChatClient *openai.Client
}

// NewClientParams configures NewClient.
//
// ChatURL may be empty to use the public OpenAI API. ChatKey is required.
type NewClientParams struct {
	Model   string
	ChatURL string
	ChatKey string
}

// NewClient creates a chat client for the given endpoint.
//
//	client := openai.NewClient(openai.NewClientParams{
//		Model:   "gpt-4o-mini",
//		ChatKey: os.Getenv("AI_CHAT_KEY"),
//	})
func NewClient(params NewClientParams) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(params.ChatKey),
	}
	if params.ChatURL != "" {
		opts = append(opts, option.WithBaseURL(params.ChatURL))
	}
	chat := openai.NewClient(opts...)

	return &Client{
		model:      params.Model,
		chatURL:    params.ChatURL,
		ChatClient: &chat,
	}
}

// ResetMetrics clears accumulated token and timing metrics.
func (c *Client) ResetMetrics() {
	c.metrics.Reset()
}

// GetMetrics returns token usage and timing since the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	return c.metrics.Snapshot()
}

var _ ai.Client = (*Client)(nil)
