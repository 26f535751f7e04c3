// Package httpclient is the small HTTP client shared by the REST-backed
// providers: the whisper sidecar, Ollama and Supabase storage. It joins paths
// onto a base URL, applies default headers and auth, encodes bodies and turns
// non-2xx responses into classified errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client sends requests relative to Config.BaseURL.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Client{cfg: cfg, http: hc}, nil
}

// WithHTTPClient replaces the transport client. Tests pass an httptest client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.http = hc
	return &cp
}

func (c *Client) Name() string    { return c.cfg.Name }
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Do sends req and reads the whole body. A non-2xx status returns both the
// response and an *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Client: c.cfg.Name, Kind: KindConnection, Err: fmt.Errorf("read body: %w", err)}
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: flatten(resp.Header), Body: body}
	if cerr := classify(c.cfg.Name, resp.StatusCode, body); cerr != nil {
		return out, cerr
	}
	return out, nil
}

// Stream sends req and hands back the unread body on success.
func (c *Client) Stream(ctx context.Context, req Request) (*StreamResponse, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if cerr := classify(c.cfg.Name, resp.StatusCode, nil); cerr != nil {
		cerr.Body, _ = io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, cerr
	}
	return &StreamResponse{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// Ping reports whether GET path answers with 2xx.
func (c *Client) Ping(ctx context.Context, path string) bool {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	return err == nil
}

// DoJSON sends req and decodes a 2xx JSON body into T.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var out T
	if len(resp.Body) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.cfg.Name, err)
	}
	return &out, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		kind := KindConnection
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &Error{Client: c.cfg.Name, Kind: kind, Err: err}
	}
	return resp, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encode(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", c.cfg.Name, err)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.cfg.Name, err)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	c.cfg.Auth.apply(httpReq)
	return httpReq, nil
}

func encode(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		r, ct := v.encode()
		return r, ct, nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
