package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
)

// Response 统一响应结构
// 设计说明：
// 1. Code是业务错误码（非HTTP状态码），0表示成功
// 2. Message是用户友好的提示信息
// 3. Data成功时为业务数据，失败时为ErrorDetail
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorDetail 失败时附带的细节
// Info供前端决定是否展示“重试”，Fields为字段级错误
type ErrorDetail struct {
	Info   apperrors.Info      `json:"info"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Accepted 已受理（如防抖中的自动过滤）
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, Response{
		Code:    0,
		Message: "accepted",
		Data:    data,
	})
}

// Error 错误响应（自动转换为AppError）
//
//	if err := ctrl.OnSearch(ctx, req.Term, req.Fuzzy, req.Page); err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	if appErr.Err != nil {
		entry := logrus.WithFields(logrus.Fields{
			"code": appErr.Code,
			"path": c.Request.URL.Path,
		})
		if id, ok := c.Get("request_id"); ok {
			entry = entry.WithField("request_id", id)
		}
		entry.WithError(appErr.Err).Warn("request failed")
	}

	detail := &ErrorDetail{Info: apperrors.Classify(err)}
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		detail.Fields = vErr.Fields
	}

	c.JSON(http.StatusOK, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    detail,
	})
}

// Abort 中间件中终止请求
func Abort(c *gin.Context, httpStatus int, err *apperrors.AppError) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:    err.Code,
		Message: err.Message,
	})
}
