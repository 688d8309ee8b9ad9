package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/logger"
)

var (
	// ErrFlowNotConfigured is returned when no endpoint is set for a flow.
	ErrFlowNotConfigured = errors.New("agent flow not configured")
	// ErrEmptyAnswer is returned when the agent replied without text.
	ErrEmptyAnswer = errors.New("agent returned no text")
)

// StatusError is a non-2xx reply from the workflow service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent responded with HTTP %d: %s", e.StatusCode, e.Body)
}

type workflowRequest struct {
	Question string        `json:"question"`
	ChatID   string        `json:"chatId"`
	Uploads  []core.Upload `json:"uploads,omitempty"`
}

type workflowResponse struct {
	Text   string `json:"text"`
	Output string `json:"output"`
}

// WorkflowClient calls a hosted prediction workflow, one endpoint per flow.
type WorkflowClient struct {
	httpClient *http.Client
	flows      map[core.Flow]string
	apiKey     string
}

var _ core.ReviewAgent = (*WorkflowClient)(nil)

func NewWorkflowClient(flows map[core.Flow]string, apiKey string, timeout time.Duration) *WorkflowClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &WorkflowClient{
		httpClient: &http.Client{Timeout: timeout},
		flows:      flows,
		apiKey:     apiKey,
	}
}

// Ask posts the question and returns the `text` (or `output`) field of the
// reply. Failures are not retried.
func (c *WorkflowClient) Ask(ctx context.Context, req core.AgentRequest) (string, error) {
	url := c.flows[req.Flow]
	if url == "" {
		return "", fmt.Errorf("%w: %s", ErrFlowNotConfigured, req.Flow)
	}

	payload, err := json.Marshal(workflowRequest{
		Question: req.Question,
		ChatID:   req.ChatID,
		Uploads:  req.Uploads,
	})
	if err != nil {
		return "", fmt.Errorf("marshal agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send agent request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read agent response: %w", err)
	}
	logger.Debug(ctx, "agent call finished", "flow", req.Flow, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var out workflowResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse agent response: %w", err)
	}
	text := out.Text
	if text == "" {
		text = out.Output
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
