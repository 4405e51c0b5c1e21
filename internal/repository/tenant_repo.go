package repository

import (
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/consts"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TenantRepo interface {
	GetTenantByID(ctx context.Context, id string) (*model.Tenant, error)
	// EnsureTenant 首次访问时建档，已存在则只刷新邮箱
	EnsureTenant(ctx context.Context, id, email string) (*model.Tenant, error)
	UpdatePlan(ctx context.Context, id, plan string) error
}

type TenantRepoImpl struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &TenantRepoImpl{db: db}
}

func (s *TenantRepoImpl) GetTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	tenant := &model.Tenant{}
	result := s.db.WithContext(ctx).First(tenant, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(result.Error, "get tenant %s", id)
	}
	return tenant, nil
}

func (s *TenantRepoImpl) EnsureTenant(ctx context.Context, id, email string) (*model.Tenant, error) {
	tenant := &model.Tenant{ID: id, Email: email, Plan: consts.PlanTrial}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(tenant).Error
	if err != nil {
		return nil, errors.Wrapf(err, "ensure tenant %s", id)
	}
	return s.GetTenantByID(ctx, id)
}

func (s *TenantRepoImpl) UpdatePlan(ctx context.Context, id, plan string) error {
	err := s.db.WithContext(ctx).Model(&model.Tenant{}).
		Where("id = ?", id).
		Update("plan", plan).Error
	return errors.Wrapf(err, "update plan of tenant %s", id)
}
