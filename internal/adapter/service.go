// Package adapter 各实体的REST API适配器
//
// 每个实体暴露同一组可选操作，未提供的操作字段为nil。
// 操作集合在构造时根据Endpoints一次性确定，调用方通过Has/Ops判断能力，
// 不在调用时临时探测
package adapter

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

// Op 适配器操作
type Op string

const (
	OpList           Op = "list"
	OpSearch         Op = "search"
	OpQuickFilter    Op = "quickFilter"
	OpAdvancedFilter Op = "advancedFilter"
	OpCreate         Op = "create"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpExport         Op = "exportToCsv"
)

// MinQuickFilterChars 快速过滤词的最小长度（按字符计）
const MinQuickFilterChars = 3

// ListParams 列表查询
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder pagination.SortOrder
	Filters   map[string]any // 实体特有的过滤条件，作为查询参数
}

// SearchParams 简单搜索
type SearchParams struct {
	Term      string               `json:"term"`
	Page      int                  `json:"page"`
	Limit     int                  `json:"limit"`
	SortBy    string               `json:"sortBy,omitempty"`
	SortOrder pagination.SortOrder `json:"sortOrder,omitempty"`
	Fuzzy     bool                 `json:"fuzzy,omitempty"`
}

// PageParams 快速过滤的分页
type PageParams struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// AdvancedPagination 高级过滤请求体中的pagination
type AdvancedPagination struct {
	Page      int                  `json:"page"`
	Limit     int                  `json:"limit"`
	SortBy    string               `json:"sortBy,omitempty"`
	SortOrder pagination.SortOrder `json:"sortOrder,omitempty"`
}

// Page 一页结果，Meta为上游原始分页元数据（可能为空，交给pagination.Normalize处理）
type Page[T any] struct {
	Data []T
	Meta json.RawMessage
}

// Service 实体适配器
type Service[T any] struct {
	Entity string

	List           func(ctx context.Context, p ListParams) (Page[T], error)
	Search         func(ctx context.Context, p SearchParams) (Page[T], error)
	QuickFilter    func(ctx context.Context, term string, p PageParams) (Page[T], error)
	AdvancedFilter func(ctx context.Context, filters map[string]any, p AdvancedPagination) (Page[T], error)
	Create         func(ctx context.Context, payload map[string]any) (T, error)
	Update         func(ctx context.Context, id string, payload map[string]any) (T, error)
	Delete         func(ctx context.Context, id string) (string, error)
	ExportToCsv    func(ctx context.Context, filters map[string]any) (string, error)

	// Paths 操作 → 端点路径，用于兜底错误文案
	Paths map[Op]string
}

// Has 是否提供该操作
func (s Service[T]) Has(op Op) bool {
	switch op {
	case OpList:
		return s.List != nil
	case OpSearch:
		return s.Search != nil
	case OpQuickFilter:
		return s.QuickFilter != nil
	case OpAdvancedFilter:
		return s.AdvancedFilter != nil
	case OpCreate:
		return s.Create != nil
	case OpUpdate:
		return s.Update != nil
	case OpDelete:
		return s.Delete != nil
	case OpExport:
		return s.ExportToCsv != nil
	}
	return false
}

// Ops 已提供的操作（排序后）
func (s Service[T]) Ops() []Op {
	all := []Op{OpList, OpSearch, OpQuickFilter, OpAdvancedFilter, OpCreate, OpUpdate, OpDelete, OpExport}
	out := make([]Op, 0, len(all))
	for _, op := range all {
		if s.Has(op) {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Endpoint 操作对应的端点，未登记时返回 /<entity>
func (s Service[T]) Endpoint(op Op) string {
	if p, ok := s.Paths[op]; ok && p != "" {
		return p
	}
	return "/" + s.Entity
}
