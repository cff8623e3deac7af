package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明长度超限的请求直接拒绝；未声明长度的请求在读取超过 maxBytes 时由绑定失败返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
