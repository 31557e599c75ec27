package errors

import (
	"errors"
	"fmt"
)

// AppError BFF自身的业务错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，预定义错误经过WithErr后仍能被errors.Is识别
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New 创建AppError
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装底层错误为内部错误
func Wrap(err error, message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

// WithErr 复制预定义错误并附加内部错误
func (e *AppError) WithErr(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: err}
}

// =========================================
// 错误码定义
// =========================================
// - 4xxxx: 客户端错误
// - 5xxxx: 服务端或上游错误

const (
	ErrCodeInternal    = 50000
	ErrCodeRedisError  = 50002
	ErrCodeUpstream    = 50200 // 上游API返回5xx
	ErrCodeUnreachable = 50300 // 上游API连接失败或熔断

	ErrCodeUnauthorized = 40100
	ErrCodeInvalidToken = 40101
	ErrCodeTokenExpired = 40102
	ErrCodeForbidden    = 40104

	ErrCodeNotFound        = 40400
	ErrCodeSessionNotFound = 40401 // 看板会话不存在
	ErrCodeUnknownEntity   = 40402 // 未注册的实体
	ErrCodeRecordNotFound  = 40403 // 当前页中没有该记录

	ErrCodeUnsupported = 40500 // 实体不支持该操作

	ErrCodeInvalidParams = 40900
	ErrCodeBindError     = 40901
	ErrCodeValidation    = 40902 // 字段校验失败（预校验或上游4xx）
)

var (
	ErrInternal    = New(ErrCodeInternal, "Error interno del servidor")
	ErrRedisError  = New(ErrCodeRedisError, "Error del servicio de caché")
	ErrUpstream    = New(ErrCodeUpstream, MsgServerError)
	ErrUnreachable = New(ErrCodeUnreachable, MsgNoConnection)

	ErrUnauthorized = New(ErrCodeUnauthorized, "Debe iniciar sesión")
	ErrInvalidToken = New(ErrCodeInvalidToken, "Token inválido")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token expirado")
	ErrForbidden    = New(ErrCodeForbidden, "Acceso denegado")

	ErrSessionNotFound = New(ErrCodeSessionNotFound, "Sesión de panel no encontrada")
	ErrUnknownEntity   = New(ErrCodeUnknownEntity, "Entidad no registrada")
	ErrRecordNotFound  = New(ErrCodeRecordNotFound, "Registro no encontrado en la página actual")

	ErrUnsupported = New(ErrCodeUnsupported, "Operación no soportada para esta entidad")

	ErrInvalidParams = New(ErrCodeInvalidParams, "Parámetros inválidos")
	ErrBindError     = New(ErrCodeBindError, "Formato de parámetros inválido")
	ErrValidation    = New(ErrCodeValidation, MsgValidation)
)

// GetAppError 把任意错误转换为AppError
//   - AppError原样返回
//   - ValidationError → 40902
//   - APIError按状态码：401/403 → 认证错误；网络/熔断 → 50300；5xx → 50200；其他4xx → 40902（文案取上游message）
//   - 其他 → 50000
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return ErrValidation.WithErr(err)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401:
			return ErrUnauthorized.WithErr(err)
		case apiErr.StatusCode == 403:
			return ErrForbidden.WithErr(err)
		case apiErr.StatusCode == StatusNetwork:
			return ErrUnreachable.WithErr(err)
		case apiErr.StatusCode >= 500:
			return ErrUpstream.WithErr(err)
		}
		return &AppError{Code: ErrCodeValidation, Message: Message(apiErr, apiErr.Endpoint), Err: err}
	}

	return Wrap(err, ErrInternal.Message)
}
