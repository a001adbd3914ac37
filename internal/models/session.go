package models

import "gorm.io/gorm"

// Session groups the trades a user journaled together, e.g. one trading day.
type Session struct {
	gorm.Model
	UserID  string  `gorm:"index;not null" json:"user_id"`
	Title   string  `json:"title"`
	Variant string  `gorm:"size:16" json:"variant"`
	Trades  []Trade `gorm:"foreignKey:SessionID" json:"trades,omitempty"`
}
