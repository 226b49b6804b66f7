package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const uploadLimitKey = "upload_max_bytes"

// multipartOverhead covers form fields and part headers around the files.
const multipartOverhead = 1 << 20

// maxFilesPerRequest is the most attachments one request carries (a
// member's front and back business cards).
const maxFilesPerRequest = 2

// LimitUploads caps the body of multipart writes so an oversized upload is
// cut off while it streams in. maxFileBytes is also published to handlers,
// which enforce it per file.
func LimitUploads(maxFileBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(uploadLimitKey, maxFileBytes)
		if c.Request.Method != http.MethodGet && strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body,
				maxFilesPerRequest*maxFileBytes+multipartOverhead)
		}
		c.Next()
	}
}

// UploadLimit returns the per-file limit set by LimitUploads, or 0.
func UploadLimit(c *gin.Context) int64 {
	return c.GetInt64(uploadLimitKey)
}
