package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError 上游REST API返回的错误
// 设计说明：
// 1. 对应服务端错误信封 {message: string|string[], error?: string, statusCode?: number}
// 2. StatusCode为0表示网络层失败（连接不上），408表示超时
// 3. Err保存底层错误（如net.OpError），仅用于日志，不直接展示给用户
type APIError struct {
	StatusCode int      `json:"statusCode"`
	Messages   []string `json:"message"`
	ErrorName  string   `json:"error,omitempty"`
	Endpoint   string   `json:"-"`
	Err        error    `json:"-"`
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, ", ")
	if msg == "" {
		msg = e.ErrorName
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, msg)
}

// Unwrap 支持errors.Is和errors.As
func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError 表单预校验失败（未发出网络请求）
// Fields: 字段路径 → 错误信息列表
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

const (
	// ErrorNameNetwork 网络层失败时的error字段
	ErrorNameNetwork = "NetworkError"
	// ErrorNameTimeout 请求超时时的error字段
	ErrorNameTimeout = "TimeoutError"

	// StatusNetwork 连接失败时使用的伪状态码
	StatusNetwork = 0
	// StatusTimeout 超时使用408
	StatusTimeout = 408
)

// NewNetworkError 连接失败
func NewNetworkError(endpoint string, err error) *APIError {
	return &APIError{
		StatusCode: StatusNetwork,
		Messages:   []string{MsgNoConnection},
		ErrorName:  ErrorNameNetwork,
		Endpoint:   endpoint,
		Err:        err,
	}
}

// NewTimeoutError 请求超时
func NewTimeoutError(endpoint string, err error) *APIError {
	return &APIError{
		StatusCode: StatusTimeout,
		Messages:   []string{"La solicitud tardó demasiado"},
		ErrorName:  ErrorNameTimeout,
		Endpoint:   endpoint,
		Err:        err,
	}
}

// =========================================
// 错误分类
// =========================================

// Type 错误类型
type Type string

const (
	TypeNetwork    Type = "network"
	TypeServer     Type = "server"
	TypeValidation Type = "validation"
	TypeUnknown    Type = "unknown"
)

// 用户提示文案（与前端保持一致）
const (
	MsgNoConnection = "No hay conexión con el servidor"
	MsgServerError  = "Error del servidor, intente más tarde"
	MsgValidation   = "Los datos enviados no son válidos"
	MsgUnknown      = "Ha ocurrido un error inesperado"
)

// Info 错误分类结果
type Info struct {
	Type     Type   `json:"type"`
	Message  string `json:"message"`
	CanRetry bool   `json:"canRetry"`
}

// Classify 按状态码对错误分类
// 规则：
// - network: 连接失败或statusCode==0，可重试
// - server: statusCode>=500，可重试（退避）
// - validation: 400<=statusCode<500，不可重试，提示来自服务端字段错误
// - unknown: 其他，不可重试
func Classify(err error) Info {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == StatusNetwork:
			return Info{Type: TypeNetwork, Message: MsgNoConnection, CanRetry: true}
		case apiErr.StatusCode >= 500:
			return Info{Type: TypeServer, Message: MsgServerError, CanRetry: true}
		case apiErr.StatusCode >= 400:
			msg := strings.Join(apiErr.Messages, ", ")
			if msg == "" {
				msg = MsgValidation
			}
			return Info{Type: TypeValidation, Message: msg, CanRetry: false}
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return Info{Type: TypeValidation, Message: MsgValidation, CanRetry: false}
	}

	return Info{Type: TypeUnknown, Message: MsgUnknown, CanRetry: false}
}

// IsRetryable 是否可重试（network或server）
func IsRetryable(err error) bool {
	return err != nil && Classify(err).CanRetry
}

// StatusCode 提取HTTP状态码，非APIError返回-1
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return -1
}

// =========================================
// 展示文案
// =========================================

// ConnectionErrorMessage 无法提取任何信息时的兜底文案
func ConnectionErrorMessage(endpoint string) string {
	return "Error de conexión en " + endpoint
}

// Message 把任意失败值规范化为展示字符串
// 优先级：
// 1. error的消息（APIError取message列表，以", "拼接）
// 2. 对象的message字段
// 3. 对象的error字段
// 4. 对象序列化结果（非空时）
// 5. "Error de conexión en <endpoint>"
func Message(v any, endpoint string) string {
	fallback := ConnectionErrorMessage(endpoint)

	switch val := v.(type) {
	case nil:
		return fallback
	case *APIError:
		if val == nil {
			return fallback
		}
		if msg := strings.Join(val.Messages, ", "); msg != "" {
			return msg
		}
		if val.ErrorName != "" {
			return val.ErrorName
		}
		return fallback
	case *ValidationError:
		return val.Error()
	case *AppError:
		if val != nil && val.Message != "" {
			return val.Message
		}
		return fallback
	case error:
		var apiErr *APIError
		if errors.As(val, &apiErr) {
			return Message(apiErr, endpoint)
		}
		if msg := val.Error(); msg != "" {
			return msg
		}
		return fallback
	case string:
		if val != "" {
			return val
		}
		return fallback
	case map[string]any:
		if msg := messageField(val["message"]); msg != "" {
			return msg
		}
		if e, ok := val["error"].(string); ok && e != "" {
			return e
		}
		if len(val) == 0 {
			return fallback
		}
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fallback
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		if s := string(b); s != "" && s != "{}" && s != "null" && s != `""` {
			return s
		}
		return fallback
	}
}

// messageField message字段可能是字符串或字符串数组
func messageField(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []string:
		return strings.Join(m, ", ")
	case []any:
		parts := make([]string, 0, len(m))
		for _, item := range m {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// =========================================
// 认证失败识别
// =========================================

var authFailurePatterns = []string{
	"Unauthorized",
	"Invalid token",
	"Token expired",
	"Authentication failed",
}

// IsAuthFailure 判断是否为认证失败（401/403或消息命中已知关键词）
// 命中后调用方需要通知会话层清除凭证
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if code := StatusCode(err); code == 401 || code == 403 {
		return true
	}
	msg := err.Error()
	for _, p := range authFailurePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
