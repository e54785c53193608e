package response

import (
	"fmt"
	"fundverse/internal/global/sentry"
	"strings"

	"github.com/pkg/errors"
)

const (
	// ErrorContextKey gin.Context 中保存 *Error 的键，日志中间件读取
	ErrorContextKey = "error"
	// ResponseContextKey 失败响应体，供 Sentry 附加到事件
	ResponseContextKey = sentry.ResponseKey
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Error 响应错误。Code 同时是 HTTP 状态码，同一状态码下用 key 区分
// 例如 401 既可能是 token 失效也可能是密码错误
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"msg"`
	Origin  string `json:"origin"`

	key   string
	cause error
}

func newError(code int32, msg string) *Error {
	return &Error{Code: code, Message: msg, key: msg}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// GetCode sentry 按错误码决定是否上报
func (e *Error) GetCode() int32 {
	return e.Code
}

func (e *Error) HTTPStatus() int {
	return int(e.Code)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StackTrace 取原始错误的堆栈，sentry 据此生成 stacktrace
func (e *Error) StackTrace() errors.StackTrace {
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// Is 附加了 origin 或 tips 的错误仍然等于原错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code && e.key == t.key
}

// WithOrigin 挂上原始错误，debug 模式下 origin 会返回给调用方
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}
	if _, ok := err.(stackTracer); !ok {
		err = errors.WithStack(err)
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", err),
		key:     e.key,
		cause:   err,
	}
}

// WithTips 追加给用户看的提示，release 模式同样可见
func (e *Error) WithTips(tips ...string) *Error {
	if len(tips) == 0 {
		return e
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message + ": " + strings.Join(tips, "; "),
		Origin:  e.Origin,
		key:     e.key,
		cause:   e.cause,
	}
}
