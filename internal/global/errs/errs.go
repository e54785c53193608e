// Package errs 定义数据层的错误分类
//
// 存储适配器内部吸收 ErrStorageUnavailable / ErrQuotaExceeded，只记录日志；
// 仓库层向调用方返回 *ValidationError、*NotFoundError；
// 远程传输返回 *HTTPError。
package errs

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrStorageUnavailable 底层存储介质不可写
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded 写入超出存储容量
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrEmailTaken 注册时邮箱已存在
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials 邮箱、密码或角色不匹配，不区分具体原因
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError 实体校验失败，Fields 为字段名到提示信息的映射
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// NewValidation 复制 fields，避免调用方后续修改
func NewValidation(fields map[string]string) *ValidationError {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &ValidationError{Fields: cp}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError 按 id 查找的记录不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// HTTPError 远程请求返回非 2xx 或超时
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
	Timeout    bool
	cause      error
}

// NewHTTPError 根据状态码构造，status 为空时使用标准状态文本
func NewHTTPError(code int, status string, body []byte) *HTTPError {
	if status == "" {
		status = http.StatusText(code)
	}
	return &HTTPError{StatusCode: code, Status: status, Body: body}
}

// NewTimeoutError 请求超过客户端超时时间
func NewTimeoutError(cause error) *HTTPError {
	return &HTTPError{Status: "request timeout", Timeout: true, cause: errors.WithStack(cause)}
}

// NewTransportError 连接失败等没有响应的错误
func NewTransportError(cause error) *HTTPError {
	return &HTTPError{Status: "transport error", cause: errors.WithStack(cause)}
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		if e.cause != nil {
			return fmt.Sprintf("API Error: %s: %v", e.Status, e.cause)
		}
		return "API Error: " + e.Status
	}
	return fmt.Sprintf("API Error: %d %s", e.StatusCode, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.cause
}

// IsNotFound 判断错误链中是否有 *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AsValidation 取出错误链中的 *ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsHTTP 取出错误链中的 *HTTPError
func AsHTTP(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsStorage 判断是否为存储层错误
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrQuotaExceeded)
}
