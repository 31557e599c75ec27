package dto

import "github.com/xiebiao/bookstore-admin/internal/dashboard"

// SearchRequest 简单搜索
type SearchRequest struct {
	Term  string `json:"term" binding:"required,max=200" example:"borges"`
	Fuzzy bool   `json:"fuzzy" example:"false"`
	Page  int    `json:"page" binding:"omitempty,min=1" example:"1"`
}

// AdvancedFilterRequest 高级过滤
// filters的键与上游advanced-filter接口一致，如 {"title":"go","isAvailable":true}
type AdvancedFilterRequest struct {
	Filters map[string]any `json:"filters" binding:"required"`
	Page    int            `json:"page" binding:"omitempty,min=1" example:"1"`
}

// QuickFilterRequest 快速过滤
type QuickFilterRequest struct {
	Term string `json:"term" binding:"required,max=200" example:"cien"`
	Page int    `json:"page" binding:"omitempty,min=1" example:"1"`
}

// AutoFilterRequest 自动过滤（每次按键提交一次，服务端防抖）
// term为空表示清空输入框；immediate为true时跳过防抖立即执行（回车）
type AutoFilterRequest struct {
	Term      string `json:"term" binding:"max=200" example:"cien años"`
	Immediate bool   `json:"immediate"`
}

// PageRequest 翻页
type PageRequest struct {
	Page int `json:"page" binding:"required,min=1" example:"2"`
}

// PageSizeRequest 每页条数
type PageSizeRequest struct {
	Size int `json:"size" binding:"required,min=1,max=100" example:"20"`
}

// SortRequest 排序
type SortRequest struct {
	Field     string `json:"field" binding:"required,max=50" example:"title"`
	Direction string `json:"direction" binding:"omitempty,oneof=asc desc" example:"asc"`
}

// FormSubmitRequest 表单提交
// 新建或更新取决于当前表单是否处于编辑状态
type FormSubmitRequest struct {
	Data map[string]any `json:"data" binding:"required"`
}

// DashboardInfo 可挂载的看板
type DashboardInfo struct {
	Entity       string                 `json:"entity" example:"books"`
	Capabilities dashboard.Capabilities `json:"capabilities"`
	Table        dashboard.TableConfig  `json:"table"`
	Search       dashboard.SearchConfig `json:"search"`
}

// SessionResponse 会话与当前看板状态
// state的结构见dashboard.State（data/meta/loading/searchParams/showForm…）
type SessionResponse struct {
	SessionID    string                 `json:"sessionId" example:"0b6b8c3e-6a55-4c1f-9a0e-8f2d4c1e7a10"`
	Entity       string                 `json:"entity" example:"books"`
	Capabilities dashboard.Capabilities `json:"capabilities"`
	Operations   []string               `json:"operations,omitempty"`
	State        any                    `json:"state" swaggertype:"object"`
}

// FormSubmitResponse 表单提交结果
type FormSubmitResponse struct {
	Record  any             `json:"record" swaggertype:"object"`
	Session SessionResponse `json:"session"`
}
