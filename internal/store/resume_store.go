package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"menufolio/internal/database"
)

type gormResumeStore struct {
	db *gorm.DB
}

// NewResumeStore returns the gorm-backed ResumeStore.
func NewResumeStore(db *gorm.DB) ResumeStore {
	return &gormResumeStore{db: db}
}

func (s *gormResumeStore) Create(ctx context.Context, resume *database.Resume) error {
	resume.ID = 0
	stripResumeChildIDs(resume)
	if err := s.db.WithContext(ctx).Create(resume).Error; err != nil {
		return fmt.Errorf("create resume: %w", err)
	}
	return nil
}

func (s *gormResumeStore) ListByOwner(ctx context.Context, userID uint) ([]database.Resume, error) {
	var resumes []database.Resume
	if err := s.preloaded(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	return resumes, nil
}

func (s *gormResumeStore) GetForOwner(ctx context.Context, id, userID uint) (*database.Resume, error) {
	var resume database.Resume
	if err := s.preloaded(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resume %d: %w", id, err)
	}
	return &resume, nil
}

// Replace mirrors the menu replacement: scalar update, delete every child
// collection, insert the incoming ones, all in a single transaction.
func (s *gormResumeStore) Replace(ctx context.Context, id, userID uint, incoming *database.Resume) (*database.Resume, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.Resume
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load resume %d: %w", id, err)
		}

		if err := tx.Model(&existing).Updates(map[string]any{
			"title":   incoming.Title,
			"summary": incoming.Summary,
		}).Error; err != nil {
			return fmt.Errorf("update resume %d: %w", id, err)
		}

		if err := deleteResumeChildren(tx, id); err != nil {
			return err
		}

		stripResumeChildIDs(incoming)
		for i := range incoming.Experiences {
			incoming.Experiences[i].ResumeID = id
			if err := tx.Create(&incoming.Experiences[i]).Error; err != nil {
				return fmt.Errorf("insert experience for resume %d: %w", id, err)
			}
		}
		for i := range incoming.Educations {
			incoming.Educations[i].ResumeID = id
			if err := tx.Create(&incoming.Educations[i]).Error; err != nil {
				return fmt.Errorf("insert education for resume %d: %w", id, err)
			}
		}
		for i := range incoming.Skills {
			incoming.Skills[i].ResumeID = id
			if err := tx.Create(&incoming.Skills[i]).Error; err != nil {
				return fmt.Errorf("insert skill for resume %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForOwner(ctx, id, userID)
}

func (s *gormResumeStore) Delete(ctx context.Context, id, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.Resume
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load resume %d: %w", id, err)
		}
		if err := deleteResumeChildren(tx, id); err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&database.Resume{}, id).Error; err != nil {
			return fmt.Errorf("delete resume %d: %w", id, err)
		}
		return nil
	})
}

func deleteResumeChildren(tx *gorm.DB, resumeID uint) error {
	if err := tx.Unscoped().Where("resume_id = ?", resumeID).Delete(&database.Skill{}).Error; err != nil {
		return fmt.Errorf("delete skills of resume %d: %w", resumeID, err)
	}
	if err := tx.Unscoped().Where("resume_id = ?", resumeID).Delete(&database.Experience{}).Error; err != nil {
		return fmt.Errorf("delete experiences of resume %d: %w", resumeID, err)
	}
	if err := tx.Unscoped().Where("resume_id = ?", resumeID).Delete(&database.Education{}).Error; err != nil {
		return fmt.Errorf("delete educations of resume %d: %w", resumeID, err)
	}
	return nil
}

func stripResumeChildIDs(resume *database.Resume) {
	for i := range resume.Experiences {
		resume.Experiences[i].ID = 0
		resume.Experiences[i].ResumeID = 0
	}
	for i := range resume.Educations {
		resume.Educations[i].ID = 0
		resume.Educations[i].ResumeID = 0
	}
	for i := range resume.Skills {
		resume.Skills[i].ID = 0
		resume.Skills[i].ResumeID = 0
	}
}

func (s *gormResumeStore) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Experiences", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date, id")
		}).
		Preload("Educations", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date, id")
		}).
		Preload("Skills", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
}
