// Package apiclient 远程模式下仓库使用的 HTTP 传输
//
// 服务端统一返回 {code, msg, data} 信封；非 2xx 响应和超时都转换为 *errs.HTTPError。
package apiclient

import (
	"context"
	"encoding/json"
	"fundverse/config"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/sentry/tracing"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 10 * time.Second
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int  // 只对 GET 生效
	Tracing    bool // 为请求创建 sentry span
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.RetryCount,
		Tracing:    tracing.IsEnabled(cfg.Sentry) && cfg.Sentry.Tracing.TraceHTTPCalls,
	}
}

type RequestOptions struct {
	Method string
	Body   any
	Query  map[string]string
}

// Envelope 服务端响应外层结构
type Envelope struct {
	Code int32           `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 写操作不幂等，不重试
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	if opts.Tracing {
		tracing.SetupResty(rc)
	}
	return &Client{http: rc}
}

// SetAuthToken 之后的请求携带 Authorization: Bearer <token>
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) RemoveAuthToken() {
	c.SetAuthToken("")
}

func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Request 发送请求并把信封中的 data 解码到 out（out 为 nil 时忽略响应体）
// data 为 null 时 out 保持不变
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req := c.http.R().SetContext(ctx)
	if token := c.AuthToken(); token != "" {
		req.SetAuthToken(token)
	}
	if len(opts.Query) > 0 {
		req.SetQueryParams(opts.Query)
	}
	if opts.Body != nil && hasBody(method) {
		req.SetBody(opts.Body)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		if isTimeout(err) {
			return errs.NewTimeoutError(err)
		}
		return errs.NewTransportError(err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		return errs.NewHTTPError(code, "", resp.Body())
	}
	return decode(resp.Body(), out)
}

func (c *Client) Get(ctx context.Context, endpoint string, query map[string]string, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodGet, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPut, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPatch, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodDelete}, out)
}

// DecodeEnvelope 解析错误响应体，用于从 422 中取出字段错误
func DecodeEnvelope(body []byte) (Envelope, bool) {
	var env Envelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return Envelope{}, false
	}
	return env, true
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrap(err, "decode response envelope")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "decode response data")
	}
	return nil
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
