package store

import (
	"context"

	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Settings interface {
	credentials.Backend
	List(ctx context.Context, scope string) (model.SettingList, error)
}

type SettingsStore struct {
	db *gorm.DB
}

var _ Settings = (*SettingsStore)(nil)

func NewSettings(db *gorm.DB) Settings {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) List(ctx context.Context, scope string) (model.SettingList, error) {
	var settings model.SettingList
	err := s.db.WithContext(ctx).
		Where(&model.Setting{Scope: scope}).
		Order("setting_key ASC").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Load returns every entry of scope as a map.
func (s *SettingsStore) Load(ctx context.Context, scope string) (map[string]string, error) {
	settings, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}
	return values, nil
}

// Save upserts every entry of values in a single transaction.
func (s *SettingsStore) Save(ctx context.Context, scope string, values map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			setting := model.Setting{
				ID:    uuid.New(),
				Scope: scope,
				Key:   key,
				Value: value,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "scope"}, {Name: "setting_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "update_time"}),
			}).Create(&setting).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
