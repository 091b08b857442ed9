package netease

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	tu "github.com/zhiozhou/cloudmatch/internal/testing"
)

func TestClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			c := NewClient("http://example.com", customClient, 4)

			if c.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", c.baseURL)
			}
			if c.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			c := NewClient("", nil, 0)

			if c.baseURL != defaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", defaultBaseURL, c.baseURL)
			}
			if c.httpClient == nil {
				t.Error("expected a default http client")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Query Parameters And Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Query().Get("type") != "1" {
					t.Errorf("expected type=1 query, got %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"code":200}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, nil, 100)
			resp, err := c.Get(context.Background(), "/api/login/qrcode/unikey", url.Values{"type": {"1"}})

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if string(resp.Body) != `{"code":200}` {
				t.Errorf("unexpected body: %s", resp.Body)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			c := NewClient("http://example.com", nil, 100)
			_, err := c.Get(context.Background(), "/test\x00invalid", nil)

			if err == nil {
				t.Error("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			c := NewClient("http://example.com", client, 100)
			_, err := c.Get(context.Background(), "/test", nil)

			if err == nil {
				t.Error("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			c := NewClient("http://example.com", client, 100)
			_, err := c.Get(context.Background(), "/test", nil)

			if err == nil {
				t.Error("expected error for failed body read")
			}
			if !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := NewClient(server.URL, nil, 100)
			if _, err := c.Get(ctx, "/test", nil); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("PostForm", func(t *testing.T) {
		t.Run("Form Encoding", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
					t.Errorf("expected form content type, got %s", ct)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.PostFormValue("limit") != "200" || r.PostFormValue("offset") != "0" {
					t.Errorf("unexpected form values: %v", r.PostForm)
				}
				w.Write([]byte(`{"code":200}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, nil, 100)
			_, err := c.PostForm(context.Background(), "/api/v1/cloud/get", url.Values{
				"limit":  {"200"},
				"offset": {"0"},
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Session Cookie", func(t *testing.T) {
		t.Run("Attached When Token Set", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ck, err := r.Cookie("MUSIC_U")
				if err != nil {
					t.Fatal("expected MUSIC_U cookie on request")
				}
				if ck.Value != "tok123" {
					t.Errorf("expected token tok123, got %s", ck.Value)
				}
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, nil, 100)
			c.SetToken("tok123")

			if _, err := c.Get(context.Background(), "/test", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Omitted When Token Empty", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := r.Cookie("MUSIC_U"); err == nil {
					t.Error("expected no MUSIC_U cookie on request")
				}
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, nil, 100)
			if _, err := c.Get(context.Background(), "/test", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("SetToken Replaces", func(t *testing.T) {
			c := NewClient("http://example.com", nil, 100)
			c.SetToken("a")
			c.SetToken("b")
			if c.Token() != "b" {
				t.Errorf("expected token b, got %s", c.Token())
			}
		})
	})

	t.Run("Response", func(t *testing.T) {
		t.Run("Decode Success", func(t *testing.T) {
			resp := &Response{Body: []byte(`{"code":803}`)}

			var payload struct {
				Code int `json:"code"`
			}
			if err := resp.Decode(&payload); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if payload.Code != 803 {
				t.Errorf("expected code 803, got %d", payload.Code)
			}
		})

		t.Run("Decode Malformed", func(t *testing.T) {
			resp := &Response{Body: []byte("not json")}

			var payload struct{}
			if err := resp.Decode(&payload); err == nil {
				t.Error("expected decode error")
			}
		})

		t.Run("Cookie Extraction", func(t *testing.T) {
			headers := http.Header{}
			headers.Add("Set-Cookie", "MUSIC_U=xyz; Path=/; HttpOnly")
			headers.Add("Set-Cookie", "NMTID=abc; Path=/")
			resp := &Response{Headers: headers}

			if got := resp.Cookie("MUSIC_U"); got != "xyz" {
				t.Errorf("expected cookie xyz, got %s", got)
			}
			if got := resp.Cookie("missing"); got != "" {
				t.Errorf("expected empty value for missing cookie, got %s", got)
			}
		})
	})
}
