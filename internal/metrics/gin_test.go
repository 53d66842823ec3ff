package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// The rejection counter tallies every request that finishes 400 or 401,
// handler-level refusals included, and its help text says so.
func TestRejectionCounterCoversHandlerRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid menu id"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "menufolio_http_auth_rejections_total" {
			continue
		}
		if !strings.Contains(mf.GetHelp(), "400/401") {
			t.Fatalf("help text must cover every 400/401 response, got %q", mf.GetHelp())
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == "400" && m.GetCounter().GetValue() >= 1 {
					return
				}
			}
		}
		t.Fatal("expected a 400 sample on the rejection counter")
	}
	t.Fatal("rejection counter is not registered")
}
