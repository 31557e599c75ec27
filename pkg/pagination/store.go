package pagination

import (
	"maps"
	"sync"
)

// SortOrder 排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// EntityParams 某个实体记住的分页游标
type EntityParams struct {
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	SortBy    string    `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Param 可单独清除的字段
type Param string

const (
	ParamPage      Param = "page"
	ParamLimit     Param = "limit"
	ParamSortBy    Param = "sortBy"
	ParamSortOrder Param = "sortOrder"
)

// Store 跨实体共享分页状态
// 设计说明：
// 1. 按实体名存储 page/limit/sortBy/sortOrder，多个看板实例读同一份游标
// 2. 显式注入（构造函数传入），不做全局单例
// 3. 单锁保护；OnChange回调在锁外执行
type Store struct {
	mu       sync.Mutex
	defaults EntityParams
	entities map[string]EntityParams
	onChange []func(entity string, p EntityParams)
}

// NewStore 创建共享分页存储
func NewStore(defaults EntityParams) *Store {
	if defaults.Page < 1 {
		defaults.Page = 1
	}
	if defaults.Limit < 1 {
		defaults.Limit = DefaultLimit
	}
	return &Store{
		defaults: defaults,
		entities: make(map[string]EntityParams),
	}
}

// OnChange 注册变更回调（如持久化到Redis）
func (s *Store) OnChange(fn func(entity string, p EntityParams)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// GetEntityPagination 返回实体当前游标，不存在则返回默认值
func (s *Store) GetEntityPagination(entity string) EntityParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.entities[entity]; ok {
		return p
	}
	return s.defaults
}

// Has 实体是否已有记录
func (s *Store) Has(entity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entities[entity]
	return ok
}

// EnsureEntity 实体不存在时写入初始值，已存在则保持（重新挂载时恢复之前的页码）
func (s *Store) EnsureEntity(entity string, initial EntityParams) EntityParams {
	s.mu.Lock()
	if p, ok := s.entities[entity]; ok {
		s.mu.Unlock()
		return p
	}
	p := s.fill(initial)
	s.entities[entity] = p
	s.mu.Unlock()

	s.notify(entity, p)
	return p
}

// Update 部分更新（浅合并，零值字段不覆盖）
type Update struct {
	Page      *int
	Limit     *int
	SortBy    *string
	SortOrder *SortOrder
}

// UpdateEntityPagination 浅合并更新
func (s *Store) UpdateEntityPagination(entity string, u Update) EntityParams {
	return s.mutate(entity, func(p *EntityParams) {
		if u.Page != nil {
			p.Page = max(1, *u.Page)
		}
		if u.Limit != nil {
			p.Limit = max(1, *u.Limit)
		}
		if u.SortBy != nil {
			p.SortBy = *u.SortBy
		}
		if u.SortOrder != nil {
			p.SortOrder = *u.SortOrder
		}
	})
}

// HandlePageChange 切换页码
func (s *Store) HandlePageChange(entity string, page int) EntityParams {
	return s.UpdateEntityPagination(entity, Update{Page: &page})
}

// HandleLimitChange 修改每页条数，回到第一页
func (s *Store) HandleLimitChange(entity string, limit int) EntityParams {
	first := 1
	return s.UpdateEntityPagination(entity, Update{Page: &first, Limit: &limit})
}

// HandleSortChange 修改排序
func (s *Store) HandleSortChange(entity, field string, order SortOrder) EntityParams {
	return s.UpdateEntityPagination(entity, Update{SortBy: &field, SortOrder: &order})
}

// UpdateFromAPIMeta 以服务端返回为准修正游标
// 例如：请求页超过总页数时，服务端返回实际页码
func (s *Store) UpdateFromAPIMeta(entity string, m Meta) EntityParams {
	return s.mutate(entity, func(p *EntityParams) {
		p.Page = max(1, m.CurrentPage)
		p.Limit = max(1, m.ItemsPerPage)
	})
}

// ClearEntityParameter 把单个字段恢复为默认值
func (s *Store) ClearEntityParameter(entity string, param Param) EntityParams {
	return s.mutate(entity, func(p *EntityParams) {
		switch param {
		case ParamPage:
			p.Page = s.defaults.Page
		case ParamLimit:
			p.Limit = s.defaults.Limit
		case ParamSortBy:
			p.SortBy = s.defaults.SortBy
		case ParamSortOrder:
			p.SortOrder = s.defaults.SortOrder
		}
	})
}

// Snapshot 导出全部实体游标（用于持久化）
func (s *Store) Snapshot() map[string]EntityParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entities)
}

// Restore 恢复快照（启动时调用，不触发回调）
func (s *Store) Restore(snapshot map[string]EntityParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for entity, p := range snapshot {
		s.entities[entity] = s.fill(p)
	}
}

func (s *Store) mutate(entity string, fn func(p *EntityParams)) EntityParams {
	s.mu.Lock()
	p, ok := s.entities[entity]
	if !ok {
		p = s.defaults
	}
	fn(&p)
	s.entities[entity] = p
	s.mu.Unlock()

	s.notify(entity, p)
	return p
}

func (s *Store) fill(p EntityParams) EntityParams {
	if p.Page < 1 {
		p.Page = s.defaults.Page
	}
	if p.Limit < 1 {
		p.Limit = s.defaults.Limit
	}
	if p.SortBy == "" {
		p.SortBy = s.defaults.SortBy
	}
	if p.SortOrder == "" {
		p.SortOrder = s.defaults.SortOrder
	}
	return p
}

func (s *Store) notify(entity string, p EntityParams) {
	s.mu.Lock()
	hooks := append([]func(string, EntityParams){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(entity, p)
	}
}
