package middleware

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const invalidImageMessage = "Invalid image file: Must be JPEG/PNG/WEBP under 5MB"

var allowedImageMIME = []string{"image/jpeg", "image/png", "image/webp"}

// ImageToBody 将 multipart 上传的图片转换为请求体中的 data URI 字段。
// JSON requests pass through untouched. For multipart requests the form
// values become the body (values that parse as JSON are decoded, so nested
// collections survive), and an optional "image" file is sniffed, bounded
// and materialized under the "image" key before schema validation runs.
// The file is optional; only a present-but-invalid file rejects.
func ImageToBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			c.Next()
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			BadRequestMessage(c, "invalid multipart form")
			return
		}

		body := map[string]any{}
		for key, values := range form.Value {
			if len(values) > 0 {
				body[key] = decodeFormValue(values[0])
			}
		}

		if files := form.File["image"]; len(files) > 0 {
			header := files[0]
			if header.Size > maxBytes {
				LoggerFromContext(c).Warn("image rejected: too large", slog.Int64("size", header.Size))
				BadRequestMessage(c, invalidImageMessage)
				return
			}
			file, err := header.Open()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "failed to read upload"})
				return
			}
			data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
			file.Close()
			if err != nil || int64(len(data)) > maxBytes {
				BadRequestMessage(c, invalidImageMessage)
				return
			}

			// Sniff the real content instead of trusting the part header.
			mime := http.DetectContentType(data)
			if !allowedMIME(mime) {
				LoggerFromContext(c).Warn("image rejected: disallowed type", slog.String("mime", mime))
				BadRequestMessage(c, invalidImageMessage)
				return
			}
			body["image"] = fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
		}

		normalized, err := json.Marshal(body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "failed to process upload"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(normalized))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Request.ContentLength = int64(len(normalized))
		c.Next()
	}
}

// decodeFormValue lets multipart forms carry nested JSON collections as
// stringified values.
func decodeFormValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return value
}

func allowedMIME(mime string) bool {
	for _, allowed := range allowedImageMIME {
		if mime == allowed {
			return true
		}
	}
	return false
}
