package repository

import (
	"Helpdock/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlanConfigRepo interface {
	GetPlanConfig(ctx context.Context, tier string) (*model.PlanConfig, error)
	ListPlanConfigs(ctx context.Context) ([]*model.PlanConfig, error)
	SavePlanConfig(ctx context.Context, cfg *model.PlanConfig) error
}

type PlanConfigRepoImpl struct {
	db *gorm.DB
}

func NewPlanConfigRepo(db *gorm.DB) PlanConfigRepo {
	return &PlanConfigRepoImpl{db: db}
}

func (s *PlanConfigRepoImpl) GetPlanConfig(ctx context.Context, tier string) (*model.PlanConfig, error) {
	cfg := &model.PlanConfig{}
	result := s.db.WithContext(ctx).First(cfg, "tier = ?", tier)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(result.Error, "get plan config %s", tier)
	}
	return cfg, nil
}

func (s *PlanConfigRepoImpl) ListPlanConfigs(ctx context.Context) ([]*model.PlanConfig, error) {
	list := make([]*model.PlanConfig, 0)
	if err := s.db.WithContext(ctx).Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "list plan configs")
	}
	return list, nil
}

// SavePlanConfig 整行覆盖，未给出的字段写 NULL 即恢复默认
func (s *PlanConfigRepoImpl) SavePlanConfig(ctx context.Context, cfg *model.PlanConfig) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tier"}},
		UpdateAll: true,
	}).Create(cfg).Error
	return errors.Wrapf(err, "save plan config %s", cfg.Tier)
}
