package model

import (
	"time"

	"github.com/google/uuid"
)

// Setting is one persisted key/value entry. (Scope, Key) is unique.
type Setting struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid"`
	Scope      string    `gorm:"column:scope;not null;uniqueIndex:idx_settings_scope_key"`
	Key        string    `gorm:"column:setting_key;not null;uniqueIndex:idx_settings_scope_key"`
	Value      string    `gorm:"column:value;not null"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime"`
	UpdateTime time.Time `gorm:"column:update_time;autoUpdateTime"`
}

type SettingList []Setting
