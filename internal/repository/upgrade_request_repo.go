package repository

import (
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/consts"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UpgradeRequestRepo interface {
	CreateUpgradeRequest(ctx context.Context, req *model.UpgradeRequest) error
	GetUpgradeRequest(ctx context.Context, id uint64) (*model.UpgradeRequest, error)
	GetPendingByTenant(ctx context.Context, tenantID string) (*model.UpgradeRequest, error)
	ListUpgradeRequests(ctx context.Context, status string, limit, offset int) ([]*model.UpgradeRequest, error)
	// ReviewUpgradeRequest 审核通过时同一事务里改租户套餐
	ReviewUpgradeRequest(ctx context.Context, req *model.UpgradeRequest, status, note string) (int64, error)
}

type UpgradeRequestRepoImpl struct {
	db *gorm.DB
}

func NewUpgradeRequestRepo(db *gorm.DB) UpgradeRequestRepo {
	return &UpgradeRequestRepoImpl{db: db}
}

func (s *UpgradeRequestRepoImpl) CreateUpgradeRequest(ctx context.Context, req *model.UpgradeRequest) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(req).Error, "create upgrade request")
}

func (s *UpgradeRequestRepoImpl) GetUpgradeRequest(ctx context.Context, id uint64) (*model.UpgradeRequest, error) {
	req := &model.UpgradeRequest{}
	result := s.db.WithContext(ctx).First(req, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(result.Error, "get upgrade request %d", id)
	}
	return req, nil
}

func (s *UpgradeRequestRepoImpl) GetPendingByTenant(ctx context.Context, tenantID string) (*model.UpgradeRequest, error) {
	req := &model.UpgradeRequest{}
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, consts.UpgradeStatusPending).
		Order("id DESC").
		First(req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(result.Error, "get pending upgrade of tenant %s", tenantID)
	}
	return req, nil
}

func (s *UpgradeRequestRepoImpl) ListUpgradeRequests(ctx context.Context, status string, limit, offset int) ([]*model.UpgradeRequest, error) {
	list := make([]*model.UpgradeRequest, 0)
	query := s.db.WithContext(ctx).Model(&model.UpgradeRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "list upgrade requests")
	}
	return list, nil
}

func (s *UpgradeRequestRepoImpl) ReviewUpgradeRequest(ctx context.Context, req *model.UpgradeRequest, status, note string) (int64, error) {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 只处理 pending，并发审核时后到的影响行数为 0
		result := tx.Model(&model.UpgradeRequest{}).
			Where("id = ? AND status = ?", req.ID, consts.UpgradeStatusPending).
			Updates(map[string]interface{}{"status": status, "note": note})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		if affected == 0 || status != consts.UpgradeStatusApproved {
			return nil
		}
		return tx.Model(&model.Tenant{}).
			Where("id = ?", req.TenantID).
			Update("plan", req.RequestedPlan).Error
	})
	return affected, errors.Wrapf(err, "review upgrade request %d", req.ID)
}
