package dashboard

import (
	"time"

	"github.com/xiebiao/bookstore-admin/pkg/pagination"
	"github.com/xiebiao/bookstore-admin/pkg/request"
)

// Sort 排序
type Sort struct {
	Field     string               `json:"field,omitempty"`
	Direction pagination.SortOrder `json:"direction,omitempty"`
}

// TableConfig 表格
type TableConfig struct {
	PageSize    int  `json:"pageSize"`
	DefaultSort Sort `json:"defaultSort"`
}

// AutoSearchConfig 自动过滤
type AutoSearchConfig struct {
	Enabled  bool          `json:"enabled"`
	MinChars int           `json:"minChars"` // 只在会话层（防抖入口）生效，引擎本身不限制
	Debounce time.Duration `json:"debounce"`
}

// AdvancedSearchConfig 高级过滤
type AdvancedSearchConfig struct {
	Enabled bool     `json:"enabled"`
	Fields  []string `json:"fields,omitempty"` // 字段顺序，同时决定回退到search时取哪个值
}

// SearchConfig 搜索
type SearchConfig struct {
	Auto     AutoSearchConfig     `json:"autoSearch"`
	Advanced AdvancedSearchConfig `json:"advancedSearch"`
}

// Config 看板配置
type Config struct {
	Entity       string       `json:"entity"`
	Capabilities Capabilities `json:"capabilities"`
	Table        TableConfig  `json:"table"`
	Search       SearchConfig `json:"search"`

	// FormSchema 提交前预校验，nil表示不校验
	FormSchema request.Validator `json:"-"`
}

func (c Config) pageSize() int {
	if c.Table.PageSize > 0 {
		return c.Table.PageSize
	}
	return pagination.DefaultLimit
}
