package middleware

import (
	"bytes"
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"log/slog"
	"regexp"
	"strings"
	"time"

	sentrylib "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// maxBodyLog 日志里最多记录的响应体字节数
	maxBodyLog = 4 * 1024

	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// 登录和注册的响应里带 token，不能落到日志
var tokenPattern = regexp.MustCompile(`"token"\s*:\s*"[^"]*"`)

// bodyRecorder 只缓存 JSON 响应的前 maxBodyLog 字节，导出的 xlsx 不记录
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if room := maxBodyLog - w.body.Len(); room > 0 && isJSON(w.Header().Get("Content-Type")) {
		w.body.Write(b[:min(len(b), room)])
	}
	return w.ResponseWriter.Write(b)
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// RequestID 沿用调用方传入的 X-Request-ID，没有则生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		attrs := []any{
			"request_id", c.GetString(RequestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if rec.body.Len() > 0 {
			attrs = append(attrs, "response_body", tokenPattern.ReplaceAllString(rec.body.String(), `"token":"[filtered]"`))
		}
		if payload, ok := jwt.GetUserPayload(c); ok {
			attrs = append(attrs, "user_id", payload.UserID, "role", payload.Role)
		}

		// 5xx 已在 response.Fail 中记录，这里只把 4xx 提升为 Warn
		if v, ok := c.Get(response.ErrorContextKey); ok {
			if e, ok := v.(*response.Error); ok && e.Code < 500 {
				log.Warn("HTTP Request", append(attrs, "error", e.Message)...)
				return
			}
		}
		log.Info("HTTP Request", attrs...)
	}
}

// SentryEnrichIP 放在 sentry.Middleware() 之后，后续事件都带上客户端 IP 和 request id
func SentryEnrichIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.ConfigureScope(func(scope *sentrylib.Scope) {
				ip := c.ClientIP()
				scope.SetUser(sentrylib.User{IPAddress: ip})
				scope.SetTag("client_ip", ip)
				if id := c.GetString(RequestIDKey); id != "" {
					scope.SetTag("request_id", id)
				}
				if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
					scope.SetTag("x_forwarded_for", fwd)
				}
			})
		}
		c.Next()
	}
}
