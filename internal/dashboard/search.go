package dashboard

import (
	"encoding/json"
	"maps"
)

// SearchMode 当前搜索模式
type SearchMode uint8

const (
	ModeNone SearchMode = iota
	ModeAuto
	ModeSimple
	ModeAdvanced
	ModeQuick
)

func (m SearchMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeSimple:
		return "simple"
	case ModeAdvanced:
		return "advanced"
	case ModeQuick:
		return "quick"
	}
	return "none"
}

// SearchState 搜索参数，同一时刻只有一种模式生效
// 字段不导出，只能通过构造函数创建，翻页时据此重放同一种搜索
type SearchState struct {
	mode    SearchMode
	term    string
	fuzzy   bool
	filters map[string]any
}

// NoSearch 列表模式
func NoSearch() SearchState { return SearchState{} }

// AutoSearch 自动过滤
func AutoSearch(term string) SearchState {
	return SearchState{mode: ModeAuto, term: term}
}

// SimpleSearch 简单搜索
func SimpleSearch(term string, fuzzy bool) SearchState {
	return SearchState{mode: ModeSimple, term: term, fuzzy: fuzzy}
}

// AdvancedSearch 高级过滤
func AdvancedSearch(filters map[string]any) SearchState {
	return SearchState{mode: ModeAdvanced, filters: maps.Clone(filters)}
}

// QuickSearch 快速过滤
func QuickSearch(term string) SearchState {
	return SearchState{mode: ModeQuick, term: term}
}

func (s SearchState) Mode() SearchMode { return s.mode }
func (s SearchState) Term() string     { return s.term }
func (s SearchState) Fuzzy() bool      { return s.fuzzy }
func (s SearchState) IsZero() bool     { return s.mode == ModeNone }

// Filters 高级过滤条件的拷贝
func (s SearchState) Filters() map[string]any {
	return maps.Clone(s.filters)
}

// MarshalJSON 输出 {} | {autoFilter} | {search,fuzzy} | {advancedFilter} | {quickFilter}
func (s SearchState) MarshalJSON() ([]byte, error) {
	switch s.mode {
	case ModeAuto:
		return json.Marshal(map[string]any{"autoFilter": s.term})
	case ModeSimple:
		return json.Marshal(map[string]any{"search": s.term, "fuzzy": s.fuzzy})
	case ModeAdvanced:
		filters := s.filters
		if filters == nil {
			filters = map[string]any{}
		}
		return json.Marshal(map[string]any{"advancedFilter": filters})
	case ModeQuick:
		return json.Marshal(map[string]any{"quickFilter": s.term})
	}
	return []byte("{}"), nil
}
