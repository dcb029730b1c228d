package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// 声明了 Content-Length 的超限请求直接拒绝；其余请求由 MaxBytesReader 在读取时截断，
// 绑定失败后由 handler 返回参数错误。maxBytes <= 0 时不限制。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}

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
