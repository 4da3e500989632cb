package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"

	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxUserRole  = "user_role"

	RoleAdmin = "admin"
)

// LoggerMiddleware 请求日志，没有请求 ID 时生成一个并回写到响应头
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	entry := log.WithField("component", "HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()

		if query != "" {
			path = path + "?" + query
		}

		fields := logrus.Fields{
			"request_id": requestID,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
		}
		if uid, ok := c.Get(ctxUserID); ok {
			fields["user_id"] = uid
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.WithFields(fields).Error("request")
		case status >= http.StatusBadRequest:
			entry.WithFields(fields).Warn("request")
		default:
			entry.WithFields(fields).Info("request")
		}
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"component":  "HTTP",
					"request_id": c.GetString(ctxRequestID),
					"panic":      err,
				}).Error("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Code:    response.CodeServerError,
					Message: "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID, X-User-ID, X-User-Role")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IdentityMiddleware 读取网关注入的用户身份。鉴权由网关完成，这里只校验格式。
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(headerUserID)), 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(c, "missing or invalid X-User-ID")
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, strings.ToLower(strings.TrimSpace(c.GetHeader(headerUserRole))))
		c.Next()
	}
}

// AdminOnly 必须在 IdentityMiddleware 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			response.Forbidden(c, "admin role required")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxUserRole) == RoleAdmin
}
