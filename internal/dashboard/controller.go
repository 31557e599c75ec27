package dashboard

import (
	"context"

	"github.com/xiebiao/bookstore-admin/internal/adapter"
	"github.com/xiebiao/bookstore-admin/internal/domain/catalog"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

// Controller 去掉类型参数的引擎视图，供会话注册表与HTTP层使用
type Controller interface {
	Entity() string
	Config() Config
	Allowed(c Capability) bool
	Ops() []adapter.Op
	Snapshot() any

	Mount(ctx context.Context) error
	OnDataRefresh(ctx context.Context) error

	OnCreate()
	EditByID(id string) error
	ViewByID(id string) error
	DeleteByID(id string) error
	OnFormSubmit(ctx context.Context, data map[string]any) (any, error)
	OnFormCancel()
	OnDeleteConfirm(ctx context.Context) error
	OnDeleteCancel()
	OnCloseView()

	OnAutoFilter(ctx context.Context, term string) error
	OnSearch(ctx context.Context, term string, fuzzy bool, page int) error
	OnAdvancedFilter(ctx context.Context, filters map[string]any, page int) error
	OnQuickFilter(ctx context.Context, term string, page int) error
	OnClearSearch()

	OnPageChange(ctx context.Context, page int) error
	OnPageSizeChange(ctx context.Context, size int) error
	OnSortChange(ctx context.Context, field string, dir pagination.SortOrder) error

	OnExport(ctx context.Context) (*ExportFile, error)
}

// Controller 返回引擎的Controller视图
func (e *Engine[T]) Controller() Controller {
	return controller[T]{e}
}

type controller[T catalog.Record] struct {
	*Engine[T]
}

func (c controller[T]) Ops() []adapter.Op { return c.svc.Ops() }

func (c controller[T]) Snapshot() any { return c.State() }

func (c controller[T]) OnFormSubmit(ctx context.Context, data map[string]any) (any, error) {
	rec, err := c.Engine.OnFormSubmit(ctx, data)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
