// Package store is the persistence boundary. Handlers speak to these
// interfaces only; the gorm implementations own every transaction, so all
// atomicity lives here rather than in application locks. Updates to a
// parent's children are full replacements: inside one transaction the old
// child rows are deleted deepest-first and the incoming set is inserted
// fresh, which keeps the stored tree exactly what the client last sent.
package store

import (
	"context"
	"errors"

	"menufolio/internal/database"
)

// ErrNotFound covers both a missing record and one owned by somebody else;
// callers must not be able to distinguish the two.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken signals a duplicate identity on signup.
var ErrEmailTaken = errors.New("email already taken")

// UserStore resolves and creates accounts.
type UserStore interface {
	Create(ctx context.Context, user *database.User) error
	GetByID(ctx context.Context, id uint) (*database.User, error)
	GetByEmail(ctx context.Context, email string) (*database.User, error)
}

// MenuStore persists menus with their sections and items. Replace and
// Delete are scoped to the owner and atomic.
type MenuStore interface {
	Create(ctx context.Context, menu *database.Menu) error
	ListByOwner(ctx context.Context, userID uint) ([]database.Menu, error)
	GetForOwner(ctx context.Context, id, userID uint) (*database.Menu, error)
	Replace(ctx context.Context, id, userID uint, menu *database.Menu) (*database.Menu, error)
	Delete(ctx context.Context, id, userID uint) error
}

// ResumeStore persists résumés with their experiences, educations and
// skills, under the same ownership and replacement rules as MenuStore.
type ResumeStore interface {
	Create(ctx context.Context, resume *database.Resume) error
	ListByOwner(ctx context.Context, userID uint) ([]database.Resume, error)
	GetForOwner(ctx context.Context, id, userID uint) (*database.Resume, error)
	Replace(ctx context.Context, id, userID uint, resume *database.Resume) (*database.Resume, error)
	Delete(ctx context.Context, id, userID uint) error
}
