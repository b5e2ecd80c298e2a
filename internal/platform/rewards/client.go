// Package rewards records off-chain reward points for trading activity.
package rewards

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

const awardPath = "/api/points/award"

// Client implements domain.RewardService over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ domain.RewardService = (*Client)(nil)

// NewClient creates a rewards client. apiKey may be empty.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type awardRequest struct {
	WalletAddress string  `json:"wallet_address"`
	Points        float64 `json:"points"`
	ActionType    string  `json:"action_type"`
	Description   string  `json:"description"`
}

// Award posts one accrual. Any non-2xx status is an error.
func (c *Client) Award(ctx context.Context, a domain.RewardAccrual) error {
	if a.Wallet == "" {
		return fmt.Errorf("rewards: award: %w", domain.ErrWalletNotConnected)
	}
	payload, err := json.Marshal(awardRequest{
		WalletAddress: a.Wallet,
		Points:        a.Points,
		ActionType:    a.ActionType,
		Description:   a.Description,
	})
	if err != nil {
		return fmt.Errorf("rewards: marshal award: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+awardPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rewards: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rewards: award: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("rewards: award: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
