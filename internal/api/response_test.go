package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"menufolio/internal/apperr"
)

// Classified errors map to their category status and expose only the
// client-safe message; the wrapped cause stays out of the body.
func TestFailMapsClassifiedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperr.New(apperr.ValidationFailed, "invalid menu id"), http.StatusBadRequest, "invalid menu id"},
		{"credential", apperr.New(apperr.InvalidCredential, "Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"conflict", apperr.New(apperr.Conflict, "Email already taken"), http.StatusConflict, "Email already taken"},
		{"wrapped cause stays hidden", apperr.Wrap(apperr.ValidationFailed, "malicious file detected", errors.New("scan verdict: FOUND")), http.StatusBadRequest, "malicious file detected"},
		{"unclassified", errors.New("driver: bad connection"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Fail(c, logger, tc.err, "not found", "internal error")

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			want := fmt.Sprintf("%q", tc.msg)
			if !strings.Contains(w.Body.String(), want) {
				t.Fatalf("expected message %s in body %s", want, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "scan verdict") {
				t.Fatalf("cause leaked into body: %s", w.Body.String())
			}
		})
	}
}
