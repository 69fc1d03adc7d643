package ollama

import (
	"net/http"
	"net/url"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client implements ai.Client against an Ollama server.
type Client struct {
	model string

	reqLock *semaphore.Weighted
	metrics ai.MetricsRecorder

	Client *api.Client
}

// NewClientParams configures NewClient.
type NewClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient connects to the Ollama server at BaseURL, or the library
// default when empty. At most MaxConcurrentRequests calls run at once.
func NewClient(params NewClientParams) (*Client, error) {
	var u *url.URL
	if params.BaseURL != "" {
		var err error
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{headers: headers, rt: http.DefaultTransport},
	}

	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 1
	}

	return &Client{
		model:   params.Model,
		reqLock: semaphore.NewWeighted(parallel),
		Client:  api.NewClient(u, httpClient),
	}, nil
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
