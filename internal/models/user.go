package models

import (
	"time"

	"gorm.io/gorm"
)

// User представляє учасника чату.
// Code is the identity of the user: case-insensitive, always stored upper-cased.
// Online is a best-effort cache of presence and may lag the in-memory registry.
type User struct {
	Code      string    `gorm:"primaryKey;size:64" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Online    bool      `gorm:"default:false;index" json:"online"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeSave is a GORM hook. It keeps the code canonical and gives nameless
// users their code as a display name.
func (u *User) BeforeSave(tx *gorm.DB) (err error) {
	u.Code = NormalizeCode(u.Code)
	if u.Name == "" {
		u.Name = u.Code
	}
	return
}
