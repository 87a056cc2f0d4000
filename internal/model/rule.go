package model

import "time"

// CategoryRule maps an application, URL or window title pattern to a category.
// A rule without any pattern never matches.
type CategoryRule struct {
	ID                     uint                   `gorm:"primaryKey" json:"id" yaml:"-"`
	ApplicationNamePattern *string                `json:"application_name_pattern,omitempty" yaml:"application,omitempty"`
	URLPattern             *string                `json:"url_pattern,omitempty" yaml:"url,omitempty"`
	WindowTitlePattern     *string                `json:"window_title_pattern,omitempty" yaml:"title,omitempty"`
	CategoryID             string                 `gorm:"index;not null" json:"category_id" yaml:"category" validate:"required"`
	Category               ActivityCategoryRecord `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-" yaml:"-"`
	CreatedAt              time.Time              `json:"-" yaml:"-"`
	UpdatedAt              time.Time              `json:"-" yaml:"-"`
}

func (CategoryRule) TableName() string { return "category_rules" }

func (r CategoryRule) HasPattern() bool {
	return nonEmpty(r.ApplicationNamePattern) || nonEmpty(r.URLPattern) || nonEmpty(r.WindowTitlePattern)
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }
