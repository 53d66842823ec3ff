package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"menufolio/internal/database"
)

type gormMenuStore struct {
	db *gorm.DB
}

// NewMenuStore returns the gorm-backed MenuStore.
func NewMenuStore(db *gorm.DB) MenuStore {
	return &gormMenuStore{db: db}
}

// Create inserts the full menu graph in one statement batch. gorm wraps the
// association inserts in a single transaction. Any identifiers the caller
// left on the tree are discarded first; the owner is whatever menu.UserID
// was set to by the handler, never the request body.
func (s *gormMenuStore) Create(ctx context.Context, menu *database.Menu) error {
	menu.ID = 0
	stripSectionIDs(menu.Sections)
	if err := s.db.WithContext(ctx).Create(menu).Error; err != nil {
		return fmt.Errorf("create menu: %w", err)
	}
	return nil
}

func (s *gormMenuStore) ListByOwner(ctx context.Context, userID uint) ([]database.Menu, error) {
	var menus []database.Menu
	if err := s.preloaded(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

func (s *gormMenuStore) GetForOwner(ctx context.Context, id, userID uint) (*database.Menu, error) {
	var menu database.Menu
	if err := s.preloaded(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu %d: %w", id, err)
	}
	return &menu, nil
}

// Replace atomically swaps the menu's entire child tree for the incoming
// one: update the scalar columns, delete all items then all sections,
// insert the new sections with their items. A failure at any step rolls
// the whole transaction back, leaving the pre-update tree intact.
func (s *gormMenuStore) Replace(ctx context.Context, id, userID uint, incoming *database.Menu) (*database.Menu, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.Menu
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load menu %d: %w", id, err)
		}

		if err := tx.Model(&existing).Updates(map[string]any{
			"name":        incoming.Name,
			"description": incoming.Description,
			"location":    incoming.Location,
			"contact":     incoming.Contact,
		}).Error; err != nil {
			return fmt.Errorf("update menu %d: %w", id, err)
		}

		if err := deleteMenuChildren(tx, id); err != nil {
			return err
		}

		stripSectionIDs(incoming.Sections)
		for i := range incoming.Sections {
			section := &incoming.Sections[i]
			section.MenuID = id
			if err := tx.Create(section).Error; err != nil {
				return fmt.Errorf("insert section for menu %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForOwner(ctx, id, userID)
}

// Delete removes the menu and its whole subtree, deepest-first, in one
// transaction. Missing or foreign menus report ErrNotFound.
func (s *gormMenuStore) Delete(ctx context.Context, id, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.Menu
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load menu %d: %w", id, err)
		}
		if err := deleteMenuChildren(tx, id); err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&database.Menu{}, id).Error; err != nil {
			return fmt.Errorf("delete menu %d: %w", id, err)
		}
		return nil
	})
}

// deleteMenuChildren removes items before sections so referential
// constraints hold at every point inside the transaction.
func deleteMenuChildren(tx *gorm.DB, menuID uint) error {
	var sectionIDs []uint
	if err := tx.Model(&database.Section{}).Where("menu_id = ?", menuID).Pluck("id", &sectionIDs).Error; err != nil {
		return fmt.Errorf("collect sections of menu %d: %w", menuID, err)
	}
	if len(sectionIDs) > 0 {
		if err := tx.Unscoped().Where("section_id IN ?", sectionIDs).Delete(&database.Item{}).Error; err != nil {
			return fmt.Errorf("delete items of menu %d: %w", menuID, err)
		}
		if err := tx.Unscoped().Where("menu_id = ?", menuID).Delete(&database.Section{}).Error; err != nil {
			return fmt.Errorf("delete sections of menu %d: %w", menuID, err)
		}
	}
	return nil
}

func stripSectionIDs(sections []database.Section) {
	for i := range sections {
		sections[i].ID = 0
		sections[i].MenuID = 0
		for j := range sections[i].Items {
			sections[i].Items[j].ID = 0
			sections[i].Items[j].SectionID = 0
		}
	}
}

func (s *gormMenuStore) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
}
