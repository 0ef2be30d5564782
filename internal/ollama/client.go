// ABOUTME: Streaming chat client for a local Ollama inference server
// ABOUTME: Sends one chat request and folds the line-delimited response into a single reply

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds the whole exchange, not individual lines.
const DefaultTimeout = 120 * time.Second

// maxErrorBody caps how much of an error response body is kept for diagnostics.
const maxErrorBody = 2048

// Message is one chat turn in the request payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Client issues streaming chat requests to an Ollama server. It performs no
// retries; retry policy belongs to the caller.
type Client struct {
	endpoint string
	model    string
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// New creates a client for the given base URL and model. Any path on the
// base URL is discarded; requests always go to /api/chat on its host.
func New(baseURL, model string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must use http or https scheme, got %q", baseURL)
	}

	return &Client{
		endpoint: u.Scheme + "://" + u.Host + "/api/chat",
		model:    model,
		timeout:  timeout,
		http:     &http.Client{},
		logger:   logger.With("component", "ollama"),
	}, nil
}

// StreamChat sends one chat request built from the persona prompt, prior
// history, and the latest user text, and returns the raw concatenated reply.
// Failures come back as *Error with a Kind; the raw reply is uncleaned.
func (c *Client) StreamChat(ctx context.Context, personaPrompt string, history []Message, userText string) (string, error) {
	requestID := uuid.New().String()[:8]
	logger := c.logger.With("request_id", requestID)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: personaPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userText})

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	// One deadline covers the whole exchange, including stream consumption
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("sending chat request",
		"endpoint", c.endpoint,
		"model", c.model,
		"messages", len(messages))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.classifyTransport(ctx, err, logger)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Error("backend rejected request",
			"status", resp.StatusCode,
			"body", string(excerpt))
		return "", &Error{
			Kind:   KindBackendRejected,
			Status: resp.StatusCode,
			Body:   string(excerpt),
		}
	}

	reply, err := c.consumeStream(ctx, resp.Body, logger)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// consumeStream folds decoded line events into the full reply. It stops at
// the first done record; remaining bytes are discarded when the body closes.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, logger *slog.Logger) (string, error) {
	var reply strings.Builder
	received := false

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		evt := DecodeLine(scanner.Text())
		switch evt.Type {
		case EventToken:
			reply.WriteString(evt.Text)
			received = true
		case EventDone:
			if evt.Text != "" {
				reply.WriteString(evt.Text)
				received = true
			}
			logger.Debug("stream done", "lines", lineNo)
			if !received {
				return "", &Error{Kind: KindEmptyResponse}
			}
			return reply.String(), nil
		case EventParseError:
			logger.Warn("skipping malformed stream record",
				"line", lineNo,
				"error", evt.Err)
		case EventSkip:
			// keep-alive or empty record
		}
	}

	if err := scanner.Err(); err != nil {
		return "", c.classifyTransport(ctx, err, logger)
	}

	// Stream ended without an explicit done record
	logger.Debug("stream ended without done record", "lines", lineNo)
	if !received {
		return "", &Error{Kind: KindEmptyResponse}
	}
	return reply.String(), nil
}

// classifyTransport maps a transport-level failure to a typed error. A
// deadline expiry anywhere in the exchange is a timeout; everything else is
// a connection failure.
func (c *Client) classifyTransport(ctx context.Context, err error, logger *slog.Logger) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Error("inference request timed out", "timeout", c.timeout)
		return &Error{Kind: KindTimeout, Err: err}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		logger.Error("inference request timed out", "timeout", c.timeout)
		return &Error{Kind: KindTimeout, Err: err}
	}

	logger.Error("connection to backend failed", "error", err)
	return &Error{Kind: KindConnectionFailed, Err: err}
}
