package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid          = errors.New("参数错误")
	ErrTenantNotFound        = errors.New("租户不存在")
	ErrWorkspaceNotFound     = errors.New("工作区不存在")
	ErrConversationNotFound  = errors.New("会话不存在")
	ErrMessageNotFound       = errors.New("消息不存在")
	ErrCustomFieldNotFound   = errors.New("自定义字段不存在")
	ErrCustomFieldUnknown    = errors.New("存在未定义的自定义字段")
	ErrCustomFieldValue      = errors.New("自定义字段取值不合法")
	ErrMemberExist           = errors.New("成员已存在")
	ErrMemberIsOwner         = errors.New("不能添加所有者为成员")
	ErrFileNotSupported      = errors.New("不支持的文件类型")
	ErrFileTooLarge          = errors.New("文件过大")
	ErrPlanInvalid           = errors.New("套餐无效")
	ErrUpgradePending        = errors.New("已有待审核的升级申请")
	ErrUpgradeNotFound       = errors.New("升级申请不存在")
	ErrUpgradeReviewed       = errors.New("升级申请已处理")
	ErrSearchUnavailable     = errors.New("检索服务不可用")
	ErrConversationNotActive = errors.New("当前没有打开的会话")
	UnauthorizedError        = errors.New("未登录或登录已过期")
	ForbiddenError           = errors.New("权限不足")
	UnExpectedError          = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:          BadRequest,
	ErrTenantNotFound:        NotFound,
	ErrWorkspaceNotFound:     NotFound,
	ErrConversationNotFound:  NotFound,
	ErrMessageNotFound:       NotFound,
	ErrCustomFieldNotFound:   NotFound,
	ErrCustomFieldUnknown:    BadRequest,
	ErrCustomFieldValue:      BadRequest,
	ErrMemberExist:           BadRequest,
	ErrMemberIsOwner:         BadRequest,
	ErrFileNotSupported:      BadRequest,
	ErrFileTooLarge:          BadRequest,
	ErrPlanInvalid:           BadRequest,
	ErrUpgradePending:        Conflict,
	ErrUpgradeNotFound:       NotFound,
	ErrUpgradeReviewed:       Conflict,
	ErrSearchUnavailable:     InternalServerError,
	ErrConversationNotActive: BadRequest,
	UnauthorizedError:        Unauthorized,
	ForbiddenError:           Forbidden,
	UnExpectedError:          InternalServerError,
}
