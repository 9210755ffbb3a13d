// Package identity registers or logs a username in against the relay's HTTP API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mossy-p/videocall/internal/models"
)

var ErrEmptyUsername = errors.New("username required")

// RejectedError carries the server's reason for refusing a register or login.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Client talks to /api/register and /api/login. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Register creates username and returns the relay token issued for it.
func (c *Client) Register(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	body, err := json.Marshal(models.RegisterRequest{Username: username})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/register", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "register")
}

// Login checks username exists and returns a relay token for it.
func (c *Client) Login(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	u := c.baseURL + "/api/login?" + url.Values{"username": {username}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return c.do(req, "login")
}

func (c *Client) do(req *http.Request, op string) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var out models.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response (status %d): %w", op, resp.StatusCode, err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("%s failed with status %d", op, resp.StatusCode)
		}
		return "", &RejectedError{Message: msg}
	}
	return out.Token, nil
}
