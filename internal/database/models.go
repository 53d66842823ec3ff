package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
// Accounts are never physically deleted; password resets are out of scope.
type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;size:255"`
	Name         string   `gorm:"size:255"`
	PasswordHash string   `gorm:"size:255"`
	Menus        []Menu   `gorm:"constraint:OnDelete:CASCADE"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Menu 表示用户创建的菜单。Sections 按 Position 排序。
type Menu struct {
	gorm.Model
	Name        string    `gorm:"size:255"`
	Description string    `gorm:"size:1024"`
	Location    string    `gorm:"size:255"`
	Contact     string    `gorm:"size:255"`
	UserID      uint      `gorm:"index"`
	Sections    []Section `gorm:"constraint:OnDelete:CASCADE"`
}

// Section groups items inside a menu.
type Section struct {
	gorm.Model
	Name     string `gorm:"size:255"`
	Position int    `gorm:"default:0"`
	MenuID   uint   `gorm:"index"`
	Items    []Item `gorm:"constraint:OnDelete:CASCADE"`
}

// Item 表示菜单中的单个菜品。
// Ingredients holds a JSON array of 1-10 strings; Image holds a base64
// data URI and is returned exactly as stored, never re-encoded.
type Item struct {
	gorm.Model
	Name        string         `gorm:"size:255"`
	Description string         `gorm:"size:1024"`
	Ingredients datatypes.JSON `gorm:"type:jsonb"`
	Image       string         `gorm:"type:text"`
	SectionID   uint           `gorm:"index"`
}

// Resume 表示用户创建的简历内容。
type Resume struct {
	gorm.Model
	Title       string       `gorm:"size:255"`
	Summary     string       `gorm:"size:2048"`
	UserID      uint         `gorm:"index"`
	Experiences []Experience `gorm:"constraint:OnDelete:CASCADE"`
	Educations  []Education  `gorm:"constraint:OnDelete:CASCADE"`
	Skills      []Skill      `gorm:"constraint:OnDelete:CASCADE"`
}

// Experience records one employment entry. EndDate is nil for a current
// position; date ordering is enforced at the schema layer.
type Experience struct {
	gorm.Model
	Company     string `gorm:"size:255"`
	Position    string `gorm:"size:255"`
	StartDate   time.Time
	EndDate     *time.Time
	Description string `gorm:"size:2048"`
	ResumeID    uint   `gorm:"index"`
}

// Education records one study entry with the same date rules as Experience.
type Education struct {
	gorm.Model
	Institution string `gorm:"size:255"`
	Degree      string `gorm:"size:255"`
	Field       string `gorm:"size:255"`
	StartDate   time.Time
	EndDate     *time.Time
	ResumeID    uint `gorm:"index"`
}

// Skill records one skill with an enumerated proficiency level.
type Skill struct {
	gorm.Model
	Name     string `gorm:"size:255"`
	Level    string `gorm:"size:32"`
	ResumeID uint   `gorm:"index"`
}

// AllModels lists every model for auto-migration in dependency order.
func AllModels() []any {
	return []any{
		&User{},
		&Menu{},
		&Section{},
		&Item{},
		&Resume{},
		&Experience{},
		&Education{},
		&Skill{},
	}
}
