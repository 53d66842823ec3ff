package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"menufolio/internal/schema"
)

const validatedBodyKey = "validatedBody"

// ValidateRequest 按声明的 schema 校验请求体。
// Every violation is collected before rejecting, so the client sees the
// whole list at once. A panic inside the schema engine is its own fault,
// not the client's, and is reported as a 500 instead of a 400. On success
// the normalized body is stored in the context and the raw body is
// restored so handlers can still bind into typed structs.
func ValidateRequest(shape *schema.Object) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			BadRequestMessage(c, "invalid request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		body := map[string]any{}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				LoggerFromContext(c).Warn("validation rejected: body is not a JSON object", slog.Any("error", err))
				BadRequestMessage(c, "request body must be a JSON object")
				return
			}
		}

		violations, engineErr := runSchema(shape, body)
		if engineErr != nil {
			LoggerFromContext(c).Error("schema engine failure", slog.Any("error", engineErr))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Validation failed"})
			return
		}
		if len(violations) > 0 {
			LoggerFromContext(c).Warn("validation rejected", slog.Int("violations", len(violations)))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": violations})
			return
		}

		// The schema walk may have dropped ignored fields; re-serialize so
		// binding sees the normalized body.
		normalized, err := json.Marshal(body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Validation failed"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(normalized))
		c.Set(validatedBodyKey, body)
		c.Next()
	}
}

// runSchema isolates the engine so a panic surfaces as an error instead of
// taking down the request through the recovery middleware's generic 500.
func runSchema(shape *schema.Object, body map[string]any) (violations []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &engineError{cause: r}
		}
	}()
	return shape.Validate(body), nil
}

type engineError struct {
	cause any
}

func (e *engineError) Error() string {
	return fmt.Sprintf("schema engine panic: %v", e.cause)
}

// ValidatedBody 返回校验后的请求体。
func ValidatedBody(c *gin.Context) (map[string]any, bool) {
	value, exists := c.Get(validatedBodyKey)
	if !exists {
		return nil, false
	}
	body, ok := value.(map[string]any)
	return body, ok
}

// BadRequestMessage aborts with the shared message envelope.
func BadRequestMessage(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}
