// Package pagination 分页元数据规范化与跨实体共享分页状态
package pagination

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultLimit 服务端和请求都没有给出每页条数时使用
const DefaultLimit = 10

// Meta 规范化后的分页元数据
// 不变量：
// - TotalPages == max(1, ceil(TotalItems/ItemsPerPage))，除非API显式给出
// - HasNextPage == CurrentPage < TotalPages，除非API显式给出
type Meta struct {
	TotalItems   int  `json:"totalItems"`
	CurrentPage  int  `json:"currentPage"`
	ItemsPerPage int  `json:"itemsPerPage"`
	TotalPages   int  `json:"totalPages"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// Params 最近一次请求的分页参数（用于兜底）
type Params struct {
	Page  int
	Limit int
}

// 历史上出现过的字段名，按优先级排列
var (
	totalKeys   = []string{"totalItems", "total", "totalCount", "count"}
	pageKeys    = []string{"currentPage", "page"}
	limitKeys   = []string{"itemsPerPage", "limit", "size", "pageSize", "page_size"}
	pagesKeys   = []string{"totalPages", "pages", "total_pages"}
	hasNextKeys = []string{"hasNextPage", "hasNext", "hasMore"}
	hasPrevKeys = []string{"hasPrevPage", "hasPrev", "hasPrevious"}
)

// Normalize 把异构的API分页元数据转为Meta
//
// apiMeta为空时根据返回数据长度和最后一次请求参数合成：
// totalItems=dataLen, hasNextPage=dataLen>limit, hasPrevPage=page>1
//
// 不会panic，总是返回结构合法的Meta
func Normalize(apiMeta any, dataLen int, fallback *Params) Meta {
	page, limit := 1, DefaultLimit
	if fallback != nil {
		page = max(1, fallback.Page)
		if fallback.Limit > 0 {
			limit = fallback.Limit
		}
	}

	raw := toMap(apiMeta)
	if raw == nil {
		return synthesize(dataLen, page, limit)
	}

	m := Meta{
		TotalItems:   max(0, intField(raw, totalKeys, dataLen)),
		CurrentPage:  max(1, intField(raw, pageKeys, page)),
		ItemsPerPage: max(1, intField(raw, limitKeys, limit)),
	}

	if pages, ok := lookupInt(raw, pagesKeys); ok {
		m.TotalPages = max(1, pages)
	} else {
		m.TotalPages = totalPages(m.TotalItems, m.ItemsPerPage)
	}

	if v, ok := lookupBool(raw, hasNextKeys); ok {
		m.HasNextPage = v
	} else {
		m.HasNextPage = m.CurrentPage < m.TotalPages
	}
	if v, ok := lookupBool(raw, hasPrevKeys); ok {
		m.HasPrevPage = v
	} else {
		m.HasPrevPage = m.CurrentPage > 1
	}

	return m
}

// Fallback API完全缺失meta时的安全值
func Fallback(dataLen int, p Params) Meta {
	return Normalize(nil, dataLen, &p)
}

func synthesize(dataLen, page, limit int) Meta {
	return Meta{
		TotalItems:   max(0, dataLen),
		CurrentPage:  page,
		ItemsPerPage: limit,
		TotalPages:   totalPages(dataLen, limit),
		HasNextPage:  dataLen > limit,
		HasPrevPage:  page > 1,
	}
}

func totalPages(total, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	return max(1, int(math.Ceil(float64(total)/float64(perPage))))
}

// toMap 支持Meta/*Meta/map/json.RawMessage/[]byte
func toMap(v any) map[string]any {
	switch val := v.(type) {
	case nil:
		return nil
	case Meta:
		return val.asMap()
	case *Meta:
		if val == nil {
			return nil
		}
		return val.asMap()
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		return val
	case json.RawMessage:
		return decodeMap(val)
	case []byte:
		return decodeMap(val)
	}
	return nil
}

func decodeMap(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

func (m Meta) asMap() map[string]any {
	return map[string]any{
		"totalItems":   m.TotalItems,
		"currentPage":  m.CurrentPage,
		"itemsPerPage": m.ItemsPerPage,
		"totalPages":   m.TotalPages,
		"hasNextPage":  m.HasNextPage,
		"hasPrevPage":  m.HasPrevPage,
	}
}

func intField(raw map[string]any, keys []string, def int) int {
	if v, ok := lookupInt(raw, keys); ok {
		return v
	}
	return def
}

func lookupInt(raw map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		v, exists := raw[k]
		if !exists || v == nil {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

func lookupBool(raw map[string]any, keys []string) (bool, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// toInt 等价于Number(...)后取整；NaN视为缺失
func toInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}
