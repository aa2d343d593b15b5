package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrUnauthorized возвращается на голый 401: сессии нет или она
// истекла, дальше только логин.
var ErrUnauthorized = errors.New("not authenticated")

// fallbackMsg показывается, когда сервер не прислал внятного
// сообщения об ошибке.
const fallbackMsg = "request failed"

type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// Client ходит в админ-API и разворачивает конверт ответа.
// Сессионная кука живёт в cookie jar.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		base: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Call делает запрос и возвращает сырой obj из конверта.
// 401 → ErrUnauthorized; success=false → ошибка с серверным msg;
// битый JSON в ответе деградирует до общего сообщения.
func (c *Client) Call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.New(fallbackMsg)
	}
	if !env.Success {
		if env.Msg == "" {
			return nil, errors.New(fallbackMsg)
		}
		return nil, errors.New(env.Msg)
	}

	return env.Obj, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	_, err := c.Call(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Call(ctx, http.MethodPost, "/api/logout", nil)
	return err
}
