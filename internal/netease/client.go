package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhiozhou/cloudmatch/internal/shared"
)

const defaultBaseURL = "https://music.163.com"

// Client provides raw GET and form-POST requests against the NetEase API.
//
// A session token set via [Client.SetToken] is attached to every request as a
// MUSIC_U cookie. Requests are throttled by a shared [rate.Limiter] so bursts
// of poll ticks and page fetches stay polite.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.RWMutex
	token string
}

// NewClient creates a new API client. An empty baseURL selects the production
// endpoint; a nil httpClient selects a default client with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client, perSecond float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if perSecond <= 0 {
		perSecond = 4
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
	}
}

// SetToken replaces the session token used for authenticated requests.
// An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Response represents a raw API response with status, headers and body.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Decode strictly unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	return nil
}

// Cookie returns the value of the named cookie from the response's Set-Cookie
// headers, or an empty string if absent.
func (r *Response) Cookie(name string) string {
	dummy := http.Response{Header: r.Headers}
	for _, ck := range dummy.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// Get performs a GET request to the specified path with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req)
}

// PostForm performs a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// do waits for the rate limiter, attaches the session cookie, and executes the request.
func (c *Client) do(req *http.Request) (*Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if token := c.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: "MUSIC_U", Value: token})
		req.AddCookie(&http.Cookie{Name: "os", Value: "pc"})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
