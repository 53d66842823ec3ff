package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"menufolio/internal/auth"
	"menufolio/internal/config"
	"menufolio/internal/database"
	"menufolio/internal/storage"
)

var apiTestDBSeq atomic.Int64

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	svc     *auth.AuthService
	storage *fakeStorage
}

// fakeStorage is an in-memory ObjectStore for handler tests.
type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, prefix string, limit int) ([]storage.ObjectMeta, error) {
	var objects []storage.ObjectMeta
	for key, data := range s.uploaded {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			objects = append(objects, storage.ObjectMeta{Key: key, Size: int64(len(data)), LastModified: time.Now()})
		}
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	svc, err := auth.NewAuthService(
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
		7*24*time.Hour, time.Hour,
	)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			SessionTTL:            7 * 24 * time.Hour,
			APITokenTTL:           time.Hour,
			LoginRateLimitPerHour: 10,
			LoginLockThreshold:    5,
			LoginLockTTL:          15 * time.Minute,
		},
		Upload: config.UploadConfig{
			MaxImageBytes: 5 * 1024 * 1024,
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared", apiTestDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	svc := newTestAuthService(t)
	store := newFakeStorage()

	router := gin.New()
	RegisterRoutes(router, cfg, db, svc, redisClient, slog.Default(), store)

	return &testEnv{router: router, db: db, svc: svc, storage: store}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

func (e envelope) messageString(t *testing.T) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(e.Message, &s); err != nil {
		t.Fatalf("message is not a string: %s", e.Message)
	}
	return s
}

func (e envelope) messageList(t *testing.T) []string {
	t.Helper()
	var list []string
	if err := json.Unmarshal(e.Message, &list); err != nil {
		t.Fatalf("message is not a list: %s", e.Message)
	}
	return list
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v (%s)", err, w.Body.String())
		}
	}
	return w, resp
}

// signup registers an account and returns its session token.
func (env *testEnv) signup(t *testing.T, email, password, name string) string {
	t.Helper()
	w, resp := env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": email, "password": password, "name": name,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode signup data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("signup returned no token")
	}
	return data.Token
}
