package dashboard

import (
	"slices"

	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

// State 看板状态
// 只能通过reduce修改；对外只暴露拷贝
type State[T any] struct {
	Data            []T              `json:"data"`
	Meta            *pagination.Meta `json:"meta"`
	Loading         bool             `json:"loading"`
	SearchLoading   bool             `json:"searchLoading"`
	FormLoading     bool             `json:"formLoading"`
	Error           string           `json:"error,omitempty"`
	IsSearchMode    bool             `json:"isSearchMode"`
	Search          SearchState      `json:"searchParams"`
	ShowForm        bool             `json:"showForm"`
	IsEditing       bool             `json:"isEditing"`
	Selected        *T               `json:"selectedEntity"`
	ShowViewModal   bool             `json:"showViewModal"`
	ShowDeleteModal bool             `json:"showDeleteModal"`
	CurrentPage     int              `json:"currentPage"`
	PageSize        int              `json:"pageSize"`
	Sort            Sort             `json:"sort"`
}

func (s State[T]) clone() State[T] {
	out := s
	out.Data = slices.Clone(s.Data)
	if s.Meta != nil {
		m := *s.Meta
		out.Meta = &m
	}
	if s.Selected != nil {
		v := *s.Selected
		out.Selected = &v
	}
	return out
}

// =========================================
// 动作
// =========================================

// action 状态更新动作（封闭集合）
type action interface{ isAction() }

type cursorRestored struct {
	page, size int
	sort       Sort
}

type listStarted struct{}

type listLoaded[T any] struct {
	data []T
	meta pagination.Meta
}

type listFailed struct{ msg string }

type searchStarted struct{}

type searchLoaded[T any] struct {
	data   []T
	meta   pagination.Meta
	search SearchState
}

type searchFailed struct{ msg string }

// listSettled/searchSettled 过期结果被丢弃时只清除loading
type listSettled struct{}

type searchSettled struct{}

// searchExited 退出搜索模式但保留页码；searchCleared同时回到第一页
type searchExited struct{}

type searchCleared struct{}

type formOpened[T any] struct {
	selected *T
	editing  bool
}

type formSubmitting struct{}

type formFailed struct{ msg string }

type formClosed struct{}

type viewOpened[T any] struct{ selected *T }

type viewClosed struct{}

type deleteOpened[T any] struct{ selected *T }

type deleteStarted struct{}

type deleteFailed struct{ msg string }

type deleteClosed struct{}

type pageSet struct{ page int }

type pageSizeSet struct{ size int }

type sortSet struct{ sort Sort }

type errorSet struct{ msg string }

func (cursorRestored) isAction()  {}
func (listStarted) isAction()     {}
func (listLoaded[T]) isAction()   {}
func (listFailed) isAction()      {}
func (searchStarted) isAction()   {}
func (searchLoaded[T]) isAction() {}
func (searchFailed) isAction()    {}
func (listSettled) isAction()     {}
func (searchSettled) isAction()   {}
func (searchExited) isAction()    {}
func (searchCleared) isAction()   {}
func (formOpened[T]) isAction()   {}
func (formSubmitting) isAction()  {}
func (formFailed) isAction()      {}
func (formClosed) isAction()      {}
func (viewOpened[T]) isAction()   {}
func (viewClosed) isAction()      {}
func (deleteOpened[T]) isAction() {}
func (deleteStarted) isAction()   {}
func (deleteFailed) isAction()    {}
func (deleteClosed) isAction()    {}
func (pageSet) isAction()         {}
func (pageSizeSet) isAction()     {}
func (sortSet) isAction()         {}
func (errorSet) isAction()        {}

// reduce 纯函数：旧状态 + 动作 → 新状态
func reduce[T any](s State[T], a action) State[T] {
	switch a := a.(type) {
	case cursorRestored:
		s.CurrentPage = a.page
		s.PageSize = a.size
		s.Sort = a.sort

	case listStarted:
		s.Loading = true
		s.Error = ""
	case listLoaded[T]:
		s.Loading = false
		s.Data = a.data
		s.Meta = &a.meta
		s.CurrentPage = a.meta.CurrentPage
	case listFailed:
		s.Loading = false
		s.Error = a.msg

	case searchStarted:
		s.SearchLoading = true
		s.Error = ""
	case searchLoaded[T]:
		s.SearchLoading = false
		s.Data = a.data
		s.Meta = &a.meta
		s.IsSearchMode = true
		s.Search = a.search
		s.CurrentPage = a.meta.CurrentPage
	case searchFailed:
		s.SearchLoading = false
		s.Error = a.msg
	case listSettled:
		s.Loading = false
	case searchSettled:
		s.SearchLoading = false
	case searchExited:
		s.IsSearchMode = false
		s.Search = NoSearch()
	case searchCleared:
		s.IsSearchMode = false
		s.Search = NoSearch()
		s.CurrentPage = 1

	case formOpened[T]:
		s.ShowForm = true
		s.IsEditing = a.editing
		s.Selected = a.selected
	case formSubmitting:
		s.FormLoading = true
		s.Error = ""
	case formFailed:
		s.FormLoading = false
		s.Error = a.msg
	case formClosed:
		s.ShowForm = false
		s.IsEditing = false
		s.FormLoading = false
		s.Selected = nil

	case viewOpened[T]:
		s.ShowViewModal = true
		s.Selected = a.selected
	case viewClosed:
		s.ShowViewModal = false
		s.Selected = nil

	case deleteOpened[T]:
		s.ShowDeleteModal = true
		s.Selected = a.selected
	case deleteStarted:
		s.Loading = true
		s.Error = ""
	case deleteFailed:
		s.Loading = false
		s.Error = a.msg
	case deleteClosed:
		s.ShowDeleteModal = false
		s.Loading = false
		s.Selected = nil

	case pageSet:
		s.CurrentPage = max(1, a.page)
	case pageSizeSet:
		s.PageSize = max(1, a.size)
		s.CurrentPage = 1
	case sortSet:
		s.Sort = a.sort
		s.CurrentPage = 1
	case errorSet:
		s.Error = a.msg
	}
	return s
}
