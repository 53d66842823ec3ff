package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"menufolio/internal/schema"
)

func validateTestRouter(t *testing.T, shape *schema.Object) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/echo", ValidateRequest(shape), func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", raw)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestValidateRequest_ReportsAllViolations(t *testing.T) {
	shape := &schema.Object{Fields: []schema.Field{
		{Name: "email", Kind: schema.String, Required: true, Email: true},
		{Name: "password", Kind: schema.String, Required: true, MinLen: 8},
	}}
	router := validateTestRouter(t, shape)

	w := postJSON(router, `{"email":"nope","password":"short","extra":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var payload struct {
		Message []string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	want := []string{
		`"email" must be a valid email`,
		`"password" length must be at least 8 characters long`,
		`"extra" is not allowed`,
	}
	if len(payload.Message) != len(want) {
		t.Fatalf("expected %d violations, got %v", len(want), payload.Message)
	}
	for i := range want {
		if payload.Message[i] != want[i] {
			t.Fatalf("violation %d: expected %q got %q", i, want[i], payload.Message[i])
		}
	}
}

func TestValidateRequest_EmptyBodyIsAnEmptyObject(t *testing.T) {
	shape := &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
	}}
	router := validateTestRouter(t, shape)

	w := postJSON(router, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `\"name\" is required`) {
		t.Fatalf("expected required violation, got %s", w.Body.String())
	}
}

func TestValidateRequest_NonObjectBody(t *testing.T) {
	router := validateTestRouter(t, &schema.Object{})

	w := postJSON(router, `[1,2,3]`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// A defective shape is the server's fault, not the client's.
func TestValidateRequest_EnginePanicBecomes500(t *testing.T) {
	shape := &schema.Object{Fields: []schema.Field{
		{Name: "x", Kind: schema.Kind(99)},
	}}
	router := validateTestRouter(t, shape)

	w := postJSON(router, `{"x":"v"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Message != "Validation failed" {
		t.Fatalf("unexpected message %q", payload.Message)
	}
}

func TestValidateRequest_NormalizesIgnoredFields(t *testing.T) {
	shape := &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
		{Name: "id", Kind: schema.Number, Ignored: true},
	}}
	router := validateTestRouter(t, shape)

	w := postJSON(router, `{"name":"x","id":42}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var echoed map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &echoed); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if _, present := echoed["id"]; present {
		t.Fatal("ignored field must not reach the handler")
	}
	if echoed["name"] != "x" {
		t.Fatalf("declared field lost: %v", echoed)
	}
}
