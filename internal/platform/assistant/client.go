// Package assistant is the client of the conversational suggestion service.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

const (
	searchPath   = "/api/market/search-suggestions"
	continuePath = "/api/market/continue"
)

// Client implements domain.SuggestionService over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.SuggestionService = (*Client)(nil)

// NewClient creates a suggestion-service client.
//
// baseURL is the service root, e.g. "https://pivot-tst.onrender.com".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Suggest sends one turn. Without a session id it starts a search,
// otherwise it continues the session. A reply with success=false or a
// non-2xx status is returned as *domain.ServiceError.
func (c *Client) Suggest(ctx context.Context, req domain.SuggestionRequest) (domain.SuggestionReply, error) {
	var (
		path string
		body any
	)
	if req.SessionID == "" {
		path = searchPath
		body = searchRequest{Query: req.Text, UserID: req.UserID, Context: req.Context}
	} else {
		path = continuePath
		body = continueRequest{SessionID: req.SessionID, Response: req.Text, Context: req.Context}
	}

	status, respBody, err := c.doPost(ctx, path, body)
	if err != nil {
		return domain.SuggestionReply{}, fmt.Errorf("assistant: %s: %w", path, err)
	}

	var reply apiReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		if status < 200 || status >= 300 {
			return domain.SuggestionReply{}, &domain.ServiceError{Status: status}
		}
		return domain.SuggestionReply{}, fmt.Errorf("assistant: decode %s: %w", path, err)
	}
	if status < 200 || status >= 300 || (reply.Success != nil && !*reply.Success) {
		return domain.SuggestionReply{}, &domain.ServiceError{Status: status, Message: strings.TrimSpace(reply.Message)}
	}
	return reply.toDomain(), nil
}

func (c *Client) doPost(ctx context.Context, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
