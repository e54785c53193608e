package response

import (
	"fmt"
	"fundverse/config"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/sentry"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
)

// ResponseBody 统一响应结构 {code, msg, data}
type ResponseBody struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data"`
	Origin string `json:"origin,omitempty"`
}

// 错误码与 HTTP 状态码一致，远程客户端直接根据状态码还原错误类型
var (
	ErrInvalidRequest     = newError(http.StatusBadRequest, "Invalid request")
	ErrTokenInvalid       = newError(http.StatusUnauthorized, "Invalid or expired token")
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "Invalid email or password")
	ErrForbidden          = newError(http.StatusForbidden, "Permission denied")
	ErrNotFound           = newError(http.StatusNotFound, "Resource not found")
	ErrAlreadyExists      = newError(http.StatusConflict, "Resource already exists")
	ErrEmailTaken         = newError(http.StatusConflict, "Email already registered")
	ErrValidation         = newError(http.StatusUnprocessableEntity, "Validation failed")
	ErrServerInternal     = newError(http.StatusInternalServerError, "Internal server error")
	ErrStorage            = newError(http.StatusServiceUnavailable, "Storage unavailable")
	ErrStorageQuota       = newError(http.StatusInsufficientStorage, "Storage quota exceeded")
	ErrUpstream           = newError(http.StatusBadGateway, "Upstream request failed")
)

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ResponseBody{
		Code: http.StatusOK,
		Msg:  "success",
		Data: data,
	})
}

// Fail 任意 error 都可以传入，由 FromError 转换为响应错误码
// 校验失败时 data 为 {"fields": {...}}
func Fail(c *gin.Context, err error) {
	e := FromError(err)
	body := ResponseBody{
		Code: e.Code,
		Msg:  e.Message,
	}
	if ve, ok := errs.AsValidation(err); ok {
		body.Data = ve
	}
	if config.Get().Mode == config.ModeDebug {
		body.Origin = e.Origin
	}

	c.Set(ErrorContextKey, e)
	c.Set(ResponseContextKey, body)
	if e.Code >= http.StatusInternalServerError {
		logger.WithContext(logger.New("Response"), c).Error("请求处理失败",
			"path", c.Request.URL.Path,
			"code", e.Code,
			"error", e.Origin,
		)
		sentry.CaptureException(c, e)
	}
	c.AbortWithStatusJSON(int(e.Code), body)
}

// FromError 把仓库层的错误映射为响应错误
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if pkgerrors.As(err, &e) {
		return e
	}
	if _, ok := errs.AsValidation(err); ok {
		return ErrValidation.WithOrigin(err)
	}
	if errs.IsNotFound(err) {
		return ErrNotFound.WithOrigin(err)
	}

	switch {
	case pkgerrors.Is(err, errs.ErrEmailTaken):
		return ErrEmailTaken.WithOrigin(err)
	case pkgerrors.Is(err, errs.ErrInvalidCredentials):
		return ErrInvalidCredentials.WithOrigin(err)
	case pkgerrors.Is(err, errs.ErrQuotaExceeded):
		return ErrStorageQuota.WithOrigin(err)
	case pkgerrors.Is(err, errs.ErrStorageUnavailable):
		return ErrStorage.WithOrigin(err)
	}
	if _, ok := errs.AsHTTP(err); ok {
		return ErrUpstream.WithOrigin(err)
	}
	return ErrServerInternal.WithOrigin(err)
}

// Recovery 在 defer 中调用，把 panic 转成 500
func Recovery(c *gin.Context) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	logger.New("Recovery").Error("panic recovered",
		"error", err,
		"stack", string(debug.Stack()),
	)
	Fail(c, ErrServerInternal.WithOrigin(pkgerrors.WithStack(err)))
}
