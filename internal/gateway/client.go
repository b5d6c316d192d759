// Package gateway is the HTTP client for the backend that fronts the
// messaging bot: invite delivery, member removal, and signup verification.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrRejected marks a logical failure: the backend answered 2xx but set
// ok=false. Transport failures (non-2xx, network) are returned as plain
// wrapped errors instead.
var ErrRejected = errors.New("rejected by backend")

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	url := fmt.Sprintf("%s%s", c.BaseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotence-Key", uuid.New().String())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("api error: %s (status: %d)", errResp.Detail, resp.StatusCode)
		}
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

func (c *Client) chatAction(ctx context.Context, endpoint string, chatID, telegramUserID int64) error {
	reqBody := chatActionRequest{
		ChatID:         chatID,
		TelegramUserID: telegramUserID,
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return err
	}

	var action ActionResponse
	if err := json.Unmarshal(resp, &action); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !action.OK {
		return fmt.Errorf("%w: %s", ErrRejected, action.Message)
	}
	return nil
}

// SendInvitation asks the backend to deliver a chat invitation to the
// user. Only a 2xx response with ok=true counts as sent.
func (c *Client) SendInvitation(ctx context.Context, chatID, telegramUserID int64) error {
	return c.chatAction(ctx, "/api/chats/sent-invitation", chatID, telegramUserID)
}

// RemoveUser asks the backend to remove the user from the chat. Only a 2xx
// response with ok=true counts as removed.
func (c *Client) RemoveUser(ctx context.Context, chatID, telegramUserID int64) error {
	return c.chatAction(ctx, "/api/chats/remove-user", chatID, telegramUserID)
}

// VerifyWebApp submits an activation token for verification and returns
// the backend's verdict. Repeating the call with the same token is safe;
// the backend treats verification as idempotent.
func (c *Client) VerifyWebApp(ctx context.Context, token string, telegramUserID int64, initData string) (*VerifyResponse, error) {
	reqBody := verifyRequest{
		InviteToken:    token,
		TelegramUserID: strconv.FormatInt(telegramUserID, 10),
		InitData:       initData,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/verify-webapp", reqBody)
	if err != nil {
		return nil, err
	}

	var verdict VerifyResponse
	if err := json.Unmarshal(resp, &verdict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &verdict, nil
}

// GenerateInvite fetches an activation code from the backend. Superseded
// by local issuance (invite.NewCode); kept for the legacy contract.
func (c *Client) GenerateInvite(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/generate-invite", nil)
	if err != nil {
		return "", err
	}

	var inv inviteResponse
	if err := json.Unmarshal(resp, &inv); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return inv.Invite, nil
}
