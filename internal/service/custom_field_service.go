package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/util"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 字段类型对应的取值校验
var fieldValueRules = map[string]string{
	consts.FieldTypeText:   "max=1000",
	consts.FieldTypeNumber: "numeric",
	consts.FieldTypeEmail:  "email",
	consts.FieldTypeURL:    "url",
}

// CustomFieldService 会话自定义字段 schema
type CustomFieldService interface {
	List(ctx context.Context, workspaceID primitive.ObjectID) ([]*dto.CustomFieldDTO, error)
	Save(ctx context.Context, workspaceID primitive.ObjectID, req *dto.CustomFieldReq) (*dto.CustomFieldDTO, error)
	// Delete 只从 schema 中隐藏，已有数据保留
	Delete(ctx context.Context, workspaceID primitive.ObjectID, key string) error
	// ValidateData 只接受当前 schema 内的字段，空值视为清空
	ValidateData(ctx context.Context, workspaceID primitive.ObjectID, data map[string]string) error
}

type customFieldServiceImpl struct {
	fieldRepo mongo.CustomFieldRepo
}

func NewCustomFieldService(fieldRepo mongo.CustomFieldRepo) CustomFieldService {
	return &customFieldServiceImpl{fieldRepo: fieldRepo}
}

func (s *customFieldServiceImpl) List(ctx context.Context, workspaceID primitive.ObjectID) ([]*dto.CustomFieldDTO, error) {
	fields, err := s.fieldRepo.ListActive(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.CustomFieldDTO, 0, len(fields))
	for _, f := range fields {
		res = append(res, &dto.CustomFieldDTO{Key: f.Key, Label: f.Label, Type: f.Type})
	}
	return res, nil
}

func (s *customFieldServiceImpl) Save(ctx context.Context, workspaceID primitive.ObjectID, req *dto.CustomFieldReq) (*dto.CustomFieldDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	err := s.fieldRepo.Upsert(ctx, &mongo.CustomField{
		WorkspaceID: workspaceID,
		Key:         req.Key,
		Label:       req.Label,
		Type:        req.Type,
	})
	if err != nil {
		return nil, err
	}
	return &dto.CustomFieldDTO{Key: req.Key, Label: req.Label, Type: req.Type}, nil
}

func (s *customFieldServiceImpl) Delete(ctx context.Context, workspaceID primitive.ObjectID, key string) error {
	err := s.fieldRepo.SoftDelete(ctx, workspaceID, key)
	if errors.Is(err, mongo.ErrNotFound) {
		return ErrCustomFieldNotFound
	}
	return err
}

func (s *customFieldServiceImpl) ValidateData(ctx context.Context, workspaceID primitive.ObjectID, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}
	fields, err := s.fieldRepo.ListActive(ctx, workspaceID)
	if err != nil {
		return err
	}
	types := make(map[string]string, len(fields))
	for _, f := range fields {
		types[f.Key] = f.Type
	}
	for k, v := range data {
		typ, ok := types[k]
		if !ok {
			return ErrCustomFieldUnknown
		}
		if v == "" {
			continue
		}
		if rule, ok := fieldValueRules[typ]; ok {
			if err = util.ValidateVar(v, rule); err != nil {
				return ErrCustomFieldValue
			}
		}
	}
	return nil
}
