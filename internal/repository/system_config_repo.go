package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neurogen-exam/backend/internal/model"
)

// SystemConfigRepository 系统配置（键值）数据访问接口
type SystemConfigRepository interface {
	Get(ctx context.Context, key string) (*model.SystemConfig, error)
	// Upsert 键存在则覆盖 value/description/config_type
	Upsert(ctx context.Context, cfg *model.SystemConfig) error
	ListByPrefix(ctx context.Context, prefix string) ([]model.SystemConfig, error)
	Count(ctx context.Context) (int64, error)
}

type systemConfigRepo struct {
	db *gorm.DB
}

// NewSystemConfigRepo 创建 SystemConfigRepository 实例
func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

func (r *systemConfigRepo) Get(ctx context.Context, key string) (*model.SystemConfig, error) {
	var cfg model.SystemConfig
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *systemConfigRepo) Upsert(ctx context.Context, cfg *model.SystemConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":       cfg.Value,
				"description": cfg.Description,
				"config_type": cfg.ConfigType,
				"updated_at":  gorm.Expr("NOW()"),
			}),
		}).
		Create(cfg).Error
}

func (r *systemConfigRepo) ListByPrefix(ctx context.Context, prefix string) ([]model.SystemConfig, error) {
	var cfgs []model.SystemConfig
	err := r.db.WithContext(ctx).
		Where("key LIKE ?", prefix+"%").
		Order("key ASC").
		Find(&cfgs).Error
	return cfgs, err
}

func (r *systemConfigRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SystemConfig{}).Count(&count).Error
	return count, err
}
