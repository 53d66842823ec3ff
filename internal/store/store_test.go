package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"menufolio/internal/database"
)

var testDBSeq atomic.Int64

// newTestDB opens a private in-memory database per test so parallel tests
// never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *database.User {
	t.Helper()
	user := database.User{Email: email, Name: "Test", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Unscoped().Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestUserStore_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	user := &database.User{Email: "kim@example.com", Name: "Kim", PasswordHash: "hash"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	byID, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Email != "kim@example.com" {
		t.Fatalf("unexpected email %q", byID.Email)
	}

	byEmail, err := users.GetByEmail(ctx, "kim@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected id %d, got %d", user.ID, byEmail.ID)
	}
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	if err := users.Create(ctx, &database.User{Email: "dup@example.com", PasswordHash: "a"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	err := users.Create(ctx, &database.User{Email: "dup@example.com", PasswordHash: "b"})
	if err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserStore_Missing(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	if _, err := users.GetByID(ctx, 9999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := users.GetByEmail(ctx, "nobody@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
