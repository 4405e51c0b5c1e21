package response

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/service"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装
func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Abort 中间件用，写完响应后中断后续处理
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, "参数错误")
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "Json错误")
		return
	}

	code, msg := Resolve(err)
	if code == InternalServerError {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
	}
	Fail(c, code, msg)
}

// Resolve 业务错误返回对应码与原文，其余一律按系统异常处理，不外泄细节
func Resolve(err error) (int, string) {
	code, target, ok := lookup(err)
	if !ok {
		return InternalServerError, service.UnExpectedError.Error()
	}
	return code, target.Error()
}

// lookup 支持被 %w 包装过的业务错误
func lookup(err error) (int, error, bool) {
	if code, ok := service.ErrorMap[err]; ok {
		return code, err, true
	}
	for target, code := range service.ErrorMap {
		if errors.Is(err, target) {
			return code, target, true
		}
	}
	return 0, nil, false
}
