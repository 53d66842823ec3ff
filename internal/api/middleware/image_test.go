package middleware

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func imageTestRouter(t *testing.T, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/echo", ImageToBody(maxBytes), func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, body)
	})
	return router
}

func multipartBody(t *testing.T, values map[string]string, imageName string, imageContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(imageContent); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestImageToBody_JSONPassthrough(t *testing.T) {
	router := imageTestRouter(t, 1024)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"name":"x"`) {
		t.Fatalf("body mangled: %s", w.Body.String())
	}
}

func TestImageToBody_MaterializesDataURI(t *testing.T) {
	router := imageTestRouter(t, 1024)

	body, contentType := multipartBody(t, map[string]string{
		"name":     "Shakshuka",
		"sections": `[{"name":"Mains"}]`,
	}, "dish.png", pngHeader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var echoed map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &echoed); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	image, _ := echoed["image"].(string)
	if !strings.HasPrefix(image, "data:image/png;base64,") {
		t.Fatalf("expected png data URI, got %q", image)
	}
	if echoed["name"] != "Shakshuka" {
		t.Fatalf("form value lost: %v", echoed)
	}
	// Stringified JSON values survive as real collections.
	if _, ok := echoed["sections"].([]any); !ok {
		t.Fatalf("sections not decoded: %T", echoed["sections"])
	}
}

func TestImageToBody_RejectsOversizeAndWrongType(t *testing.T) {
	router := imageTestRouter(t, 16)

	big := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	for name, content := range map[string][]byte{
		"big.png":  big,
		"note.txt": []byte("plain text, not an image"),
	} {
		body, contentType := multipartBody(t, nil, name, content)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/echo", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Invalid image file") {
			t.Fatalf("%s: unexpected body %s", name, w.Body.String())
		}
	}
}

func TestImageToBody_FileIsOptional(t *testing.T) {
	router := imageTestRouter(t, 1024)

	body, contentType := multipartBody(t, map[string]string{"name": "No Image"}, "", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "data:") {
		t.Fatalf("no image expected: %s", w.Body.String())
	}
}
