package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-admin/internal/adapter"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/apiclient"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
	"github.com/xiebiao/bookstore-admin/pkg/request"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (i item) EntityID() string { return i.ID }

// recorder 记录假适配器收到的调用
type recorder struct {
	mu       sync.Mutex
	lists    []adapter.ListParams
	searches []adapter.SearchParams
	quicks   []string
	quickPgs []adapter.PageParams
	advanced []map[string]any
	created  []map[string]any
	updated  []string
	deleted  []string
	exported int

	listErr   error
	searchErr error
	createErr error
	deleteErr error
	exportErr error
}

func (r *recorder) record(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

func onePage(ids ...string) adapter.Page[item] {
	data := make([]item, 0, len(ids))
	for _, id := range ids {
		data = append(data, item{ID: id, Title: "t-" + id})
	}
	return adapter.Page[item]{Data: data}
}

// fakeService 只装配ops中列出的可选操作（list总是存在）
func fakeService(r *recorder, ops ...adapter.Op) adapter.Service[item] {
	svc := adapter.Service[item]{
		Entity: "books",
		List: func(ctx context.Context, p adapter.ListParams) (adapter.Page[item], error) {
			r.record(func() { r.lists = append(r.lists, p) })
			if r.listErr != nil {
				return adapter.Page[item]{}, r.listErr
			}
			return onePage("b1", "b2"), nil
		},
	}
	for _, op := range ops {
		switch op {
		case adapter.OpSearch:
			svc.Search = func(ctx context.Context, p adapter.SearchParams) (adapter.Page[item], error) {
				r.record(func() { r.searches = append(r.searches, p) })
				if r.searchErr != nil {
					return adapter.Page[item]{}, r.searchErr
				}
				return onePage("s1"), nil
			}
		case adapter.OpQuickFilter:
			svc.QuickFilter = func(ctx context.Context, term string, p adapter.PageParams) (adapter.Page[item], error) {
				r.record(func() {
					r.quicks = append(r.quicks, term)
					r.quickPgs = append(r.quickPgs, p)
				})
				return onePage("q1"), nil
			}
		case adapter.OpAdvancedFilter:
			svc.AdvancedFilter = func(ctx context.Context, f map[string]any, p adapter.AdvancedPagination) (adapter.Page[item], error) {
				r.record(func() { r.advanced = append(r.advanced, f) })
				return onePage("a1"), nil
			}
		case adapter.OpCreate:
			svc.Create = func(ctx context.Context, payload map[string]any) (item, error) {
				r.record(func() { r.created = append(r.created, payload) })
				if r.createErr != nil {
					return item{}, r.createErr
				}
				return item{ID: "new", Title: "X"}, nil
			}
		case adapter.OpUpdate:
			svc.Update = func(ctx context.Context, id string, payload map[string]any) (item, error) {
				r.record(func() { r.updated = append(r.updated, id) })
				return item{ID: id}, nil
			}
		case adapter.OpDelete:
			svc.Delete = func(ctx context.Context, id string) (string, error) {
				r.record(func() { r.deleted = append(r.deleted, id) })
				if r.deleteErr != nil {
					return "", r.deleteErr
				}
				return "deleted", nil
			}
		case adapter.OpExport:
			svc.ExportToCsv = func(ctx context.Context, filters map[string]any) (string, error) {
				r.record(func() { r.exported++ })
				if r.exportErr != nil {
					return "", r.exportErr
				}
				return "id,title\nb1,X\n", nil
			}
		}
	}
	return svc
}

func allCaps() Capabilities {
	return Capabilities{
		CRUD:   FullCRUD(),
		Search: NewSearchSet(SearchAuto, SearchSimple, SearchAdvanced),
		Export: true,
	}
}

func testConfig(caps Capabilities) Config {
	return Config{
		Entity:       "books",
		Capabilities: caps,
		Table:        TableConfig{PageSize: 10},
		Search:       SearchConfig{Auto: AutoSearchConfig{Enabled: true, MinChars: 3}},
	}
}

func mounted(t *testing.T, cfg Config, svc adapter.Service[item], opts ...Option) *Engine[item] {
	t.Helper()
	e := New(cfg, svc, opts...)
	require.NoError(t, e.Mount(context.Background()))
	return e
}

type notifierFunc func(ctx context.Context, m Mutation) error

func (f notifierFunc) NotifyMutation(ctx context.Context, m Mutation) error { return f(ctx, m) }

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

// =========================================
// 能力开关
// =========================================

func TestEngine_DeleteDisabledNeverReachesAdapter(t *testing.T) {
	r := &recorder{}
	caps := allCaps()
	caps.CRUD = NewCRUDSet(CapCreate, CapRead, CapUpdate)
	e := mounted(t, testConfig(caps), fakeService(r, adapter.OpDelete))

	before := e.State()
	e.OnDelete(item{ID: "b1"})
	require.NoError(t, e.OnDeleteConfirm(context.Background()))
	require.NoError(t, e.DeleteByID("b1"))

	assert.Empty(t, r.deleted)
	assert.Equal(t, before, e.State())
}

func TestEngine_DisabledSearchIsNoop(t *testing.T) {
	r := &recorder{}
	caps := allCaps()
	caps.Search = NewSearchSet()
	e := mounted(t, testConfig(caps), fakeService(r, adapter.OpSearch, adapter.OpQuickFilter, adapter.OpAdvancedFilter))

	ctx := context.Background()
	require.NoError(t, e.OnSearch(ctx, "abc", false, 1))
	require.NoError(t, e.OnQuickFilter(ctx, "abc", 1))
	require.NoError(t, e.OnAdvancedFilter(ctx, map[string]any{"title": "x"}, 1))
	require.NoError(t, e.OnAutoFilter(ctx, "abc"))

	assert.Empty(t, r.searches)
	assert.Empty(t, r.quicks)
	assert.Empty(t, r.advanced)
	assert.False(t, e.State().IsSearchMode)
}

func TestEngine_AutoFilterRequiresEnabledFlag(t *testing.T) {
	r := &recorder{}
	cfg := testConfig(allCaps())
	cfg.Search.Auto.Enabled = false
	e := mounted(t, cfg, fakeService(r, adapter.OpQuickFilter))

	require.NoError(t, e.OnAutoFilter(context.Background(), "cer"))
	assert.Empty(t, r.quicks)
}

// =========================================
// 列表
// =========================================

func TestEngine_MountScenario(t *testing.T) {
	var got adapter.ListParams
	svc := adapter.Service[item]{
		Entity: "books",
		List: func(ctx context.Context, p adapter.ListParams) (adapter.Page[item], error) {
			got = p
			return adapter.Page[item]{
				Data: []item{{ID: "b1"}},
				Meta: json.RawMessage(`{"total":1,"page":1,"limit":10,"totalPages":1}`),
			}, nil
		},
	}

	e := mounted(t, testConfig(allCaps()), svc)

	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 10, got.Limit)

	st := e.State()
	require.Len(t, st.Data, 1)
	require.NotNil(t, st.Meta)
	assert.Equal(t, 1, st.Meta.TotalItems)
	assert.Equal(t, 1, st.Meta.TotalPages)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestEngine_MountRestoresSharedCursor(t *testing.T) {
	store := pagination.NewStore(pagination.EntityParams{Page: 1, Limit: 10})
	store.EnsureEntity("books", pagination.EntityParams{Page: 3, Limit: 25, SortBy: "title", SortOrder: pagination.SortDesc})

	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r), WithStore(store))

	require.Len(t, r.lists, 1)
	assert.Equal(t, 3, r.lists[0].Page)
	assert.Equal(t, 25, r.lists[0].Limit)
	assert.Equal(t, "title", r.lists[0].SortBy)
	assert.Equal(t, 25, e.State().PageSize)
}

func TestEngine_ListErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"joined message array", &apperrors.APIError{StatusCode: 400, Messages: []string{"A", "B"}}, "A, B"},
		{"empty error", errors.New(""), "Error de conexión en /books"},
		{"network", apperrors.NewNetworkError("/books", nil), apperrors.MsgNoConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{listErr: tt.err}
			e := New(testConfig(allCaps()), fakeService(r))

			err := e.Mount(context.Background())
			require.Error(t, err)

			st := e.State()
			assert.Equal(t, tt.want, st.Error)
			assert.False(t, st.Loading)
		})
	}
}

func TestEngine_AuthFailureInvalidatesSession(t *testing.T) {
	inv := &countingInvalidator{}
	r := &recorder{listErr: &apperrors.APIError{StatusCode: 401, Messages: []string{"Unauthorized"}}}
	e := New(testConfig(allCaps()), fakeService(r), WithAuthInvalidator(inv))

	require.Error(t, e.Mount(context.Background()))
	assert.Equal(t, int32(1), inv.n.Load())
}

// =========================================
// 搜索
// =========================================

func TestEngine_SearchReplayOnPageChange(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch, adapter.OpQuickFilter, adapter.OpAdvancedFilter))
	ctx := context.Background()

	require.NoError(t, e.OnSearch(ctx, "abc", false, 1))
	require.NoError(t, e.OnPageChange(ctx, 2))

	require.Len(t, r.searches, 2)
	last := r.searches[1]
	assert.Equal(t, "abc", last.Term)
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, 10, last.Limit)
	assert.Empty(t, r.quicks)
	assert.Empty(t, r.advanced)
	assert.Len(t, r.lists, 1, "搜索模式翻页不应重新加载列表")

	st := e.State()
	assert.True(t, st.IsSearchMode)
	assert.Equal(t, ModeSimple, st.Search.Mode())
	assert.Equal(t, 2, st.CurrentPage)
}

func TestEngine_AdvancedReplayUsesAdvancedFilter(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch, adapter.OpAdvancedFilter))
	ctx := context.Background()

	filters := map[string]any{"title": "go", "genreId": "g1"}
	require.NoError(t, e.OnAdvancedFilter(ctx, filters, 1))
	require.NoError(t, e.OnPageChange(ctx, 3))

	require.Len(t, r.advanced, 2)
	assert.Equal(t, filters, r.advanced[1])
	assert.Empty(t, r.searches)
}

func TestEngine_AdvancedFallbackChain(t *testing.T) {
	t.Run("search only", func(t *testing.T) {
		r := &recorder{}
		e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch))

		require.NoError(t, e.OnAdvancedFilter(context.Background(), map[string]any{"name": "john"}, 1))
		require.Len(t, r.searches, 1)
		assert.Equal(t, "john", r.searches[0].Term)
		assert.Equal(t, ModeAdvanced, e.State().Search.Mode())
	})

	t.Run("quick filter with single string", func(t *testing.T) {
		r := &recorder{}
		e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch, adapter.OpQuickFilter))

		require.NoError(t, e.OnAdvancedFilter(context.Background(), map[string]any{"name": "john"}, 1))
		assert.Equal(t, []string{"john"}, r.quicks)
		assert.Empty(t, r.searches)
	})

	t.Run("multiple keys skip quick filter", func(t *testing.T) {
		r := &recorder{}
		cfg := testConfig(allCaps())
		cfg.Search.Advanced.Fields = []string{"lastName", "firstName"}
		e := mounted(t, cfg, fakeService(r, adapter.OpSearch, adapter.OpQuickFilter))

		require.NoError(t, e.OnAdvancedFilter(context.Background(), map[string]any{
			"firstName": "ana",
			"lastName":  "",
			"active":    true,
		}, 1))
		assert.Empty(t, r.quicks)
		require.Len(t, r.searches, 1)
		assert.Equal(t, "ana", r.searches[0].Term)
	})

	t.Run("nothing applicable", func(t *testing.T) {
		r := &recorder{}
		e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpQuickFilter))

		err := e.OnAdvancedFilter(context.Background(), map[string]any{"a": "x", "b": "y"}, 1)
		assert.ErrorIs(t, err, apperrors.ErrUnsupported)
		assert.False(t, e.State().IsSearchMode)
	})
}

func TestEngine_QuickFilterFallsBackToSearch(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch))

	require.NoError(t, e.OnQuickFilter(context.Background(), "tolkien", 2))
	require.Len(t, r.searches, 1)
	assert.Equal(t, "tolkien", r.searches[0].Term)
	assert.Equal(t, 2, r.searches[0].Page)
	assert.Equal(t, ModeQuick, e.State().Search.Mode())
}

func TestEngine_SearchFailureDoesNotReturnError(t *testing.T) {
	r := &recorder{searchErr: &apperrors.APIError{StatusCode: 500, Messages: []string{"boom"}}}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch))

	require.NoError(t, e.OnSearch(context.Background(), "abc", true, 1))

	st := e.State()
	assert.Equal(t, "boom", st.Error)
	assert.False(t, st.SearchLoading)
	assert.False(t, st.IsSearchMode)
}

func TestEngine_AutoFilterScenario(t *testing.T) {
	r := &recorder{}
	cfg := testConfig(Capabilities{CRUD: FullCRUD(), Search: NewSearchSet(SearchAuto)})
	e := mounted(t, cfg, fakeService(r, adapter.OpQuickFilter))

	require.NoError(t, e.OnAutoFilter(context.Background(), "cer"))

	assert.Equal(t, []string{"cer"}, r.quicks)
	assert.Equal(t, []adapter.PageParams{{Page: 1, Limit: e.State().PageSize}}, r.quickPgs)

	st := e.State()
	assert.True(t, st.IsSearchMode)
	assert.Equal(t, 1, st.CurrentPage)
	assert.Equal(t, ModeAuto, st.Search.Mode())
	assert.Equal(t, "cer", st.Search.Term())
}

func TestEngine_AutoFilterWithoutQuickFilter(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch))

	err := e.OnAutoFilter(context.Background(), "cer")
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	assert.Empty(t, r.searches)
}

func TestEngine_UnsupportedSearchSetsError(t *testing.T) {
	ctx := context.Background()
	want := apperrors.ErrUnsupported.Message

	tests := []struct {
		name string
		ops  []adapter.Op
		call func(e *Engine[item]) error
	}{
		{"简单搜索没有search和quickFilter", nil, func(e *Engine[item]) error {
			return e.OnSearch(ctx, "go", false, 1)
		}},
		{"快速过滤没有search和quickFilter", nil, func(e *Engine[item]) error {
			return e.OnQuickFilter(ctx, "go", 1)
		}},
		{"高级过滤多字段且只有quickFilter", []adapter.Op{adapter.OpQuickFilter}, func(e *Engine[item]) error {
			return e.OnAdvancedFilter(ctx, map[string]any{"title": "abc", "isbn": "x"}, 1)
		}},
		{"自动过滤没有quickFilter", []adapter.Op{adapter.OpSearch}, func(e *Engine[item]) error {
			return e.OnAutoFilter(ctx, "cer")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			e := mounted(t, testConfig(allCaps()), fakeService(r, tt.ops...))

			err := tt.call(e)
			assert.ErrorIs(t, err, apperrors.ErrUnsupported)

			st := e.State()
			assert.Equal(t, want, st.Error)
			assert.False(t, st.IsSearchMode)
			assert.False(t, st.SearchLoading)
			assert.Empty(t, r.searches)
			assert.Empty(t, r.quicks)
		})
	}
}

func TestEngine_ClearSearchResetsCursor(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch, adapter.OpAdvancedFilter))
	ctx := context.Background()

	require.NoError(t, e.OnAdvancedFilter(ctx, map[string]any{"title": "go"}, 4))
	e.OnClearSearch()

	st := e.State()
	assert.Equal(t, 1, st.CurrentPage)
	assert.False(t, st.IsSearchMode)
	assert.True(t, st.Search.IsZero())

	b, err := json.Marshal(st.Search)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
	assert.Len(t, r.lists, 1, "清除搜索本身不触发加载")
}

func TestEngine_QuickFilterMinimumLengthThroughAdapter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"meta":{"total":0}}`))
	}))
	defer srv.Close()

	log := logrus.New()
	client := apiclient.New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, nil, log)
	svc := adapter.NewResource[item](client, "books", adapter.Endpoints{
		Base:        "/books",
		QuickFilter: "/books/filter",
	})

	e := mounted(t, testConfig(allCaps()), svc)
	mountHits := hits.Load()

	require.NoError(t, e.OnQuickFilter(context.Background(), "ab", 1))

	assert.Equal(t, mountHits, hits.Load(), "少于3个字符不应发出请求")
	st := e.State()
	assert.NotEmpty(t, st.Error)
	assert.False(t, st.IsSearchMode)
}

func TestEngine_DataRefreshExitsSearchMode(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch))
	ctx := context.Background()

	require.NoError(t, e.OnSearch(ctx, "abc", false, 2))
	require.NoError(t, e.OnDataRefresh(ctx))

	st := e.State()
	assert.False(t, st.IsSearchMode)
	assert.Equal(t, 1, st.CurrentPage)
	require.Len(t, r.lists, 2)
	assert.Equal(t, 1, r.lists[1].Page)
}

func TestEngine_SortAndPageSizeChange(t *testing.T) {
	r := &recorder{}
	store := pagination.NewStore(pagination.EntityParams{Page: 1, Limit: 10})
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpSearch), WithStore(store))
	ctx := context.Background()

	require.NoError(t, e.OnPageChange(ctx, 2))
	require.NoError(t, e.OnSortChange(ctx, "title", pagination.SortDesc))
	require.NoError(t, e.OnPageSizeChange(ctx, 50))

	last := r.lists[len(r.lists)-1]
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, 50, last.Limit)
	assert.Equal(t, "title", last.SortBy)
	assert.Equal(t, pagination.SortDesc, last.SortOrder)

	p := store.GetEntityPagination("books")
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, "title", p.SortBy)

	// 搜索模式下排序变化重放搜索
	require.NoError(t, e.OnSearch(ctx, "abc", false, 1))
	require.NoError(t, e.OnSortChange(ctx, "price", pagination.SortAsc))
	lastSearch := r.searches[len(r.searches)-1]
	assert.Equal(t, "price", lastSearch.SortBy)
	assert.Equal(t, 1, lastSearch.Page)
}

// =========================================
// 表单与删除
// =========================================

func TestEngine_CreateScenario(t *testing.T) {
	r := &recorder{}
	var events []Mutation
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpCreate),
		WithNotifier(notifierFunc(func(ctx context.Context, m Mutation) error {
			events = append(events, m)
			return nil
		})))
	ctx := context.Background()

	e.OnCreate()
	require.True(t, e.State().ShowForm)

	rec, err := e.OnFormSubmit(ctx, map[string]any{"title": "X"})
	require.NoError(t, err)
	assert.Equal(t, "new", rec.ID)

	require.Len(t, r.created, 1)
	assert.Equal(t, map[string]any{"title": "X"}, r.created[0])

	st := e.State()
	assert.False(t, st.ShowForm)
	assert.False(t, st.FormLoading)
	assert.Nil(t, st.Selected)
	assert.Len(t, r.lists, 2, "提交成功后重新加载列表")

	require.Len(t, events, 1)
	assert.Equal(t, Mutation{Entity: "books", Action: ActionCreate, ID: "new", At: events[0].At}, events[0])
}

func TestEngine_UpdateSelectedRecord(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpUpdate))
	ctx := context.Background()

	require.NoError(t, e.EditByID("b2"))
	st := e.State()
	require.True(t, st.IsEditing)
	require.NotNil(t, st.Selected)

	_, err := e.OnFormSubmit(ctx, map[string]any{"title": "Y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, r.updated)
	assert.False(t, e.State().IsEditing)
}

func TestEngine_SubmitFailureKeepsFormOpen(t *testing.T) {
	r := &recorder{createErr: &apperrors.APIError{StatusCode: 409, Messages: []string{"ISBN duplicado"}}}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpCreate))

	e.OnCreate()
	_, err := e.OnFormSubmit(context.Background(), map[string]any{"title": "X"})
	require.Error(t, err)

	st := e.State()
	assert.True(t, st.ShowForm)
	assert.False(t, st.FormLoading)
	assert.Equal(t, "ISBN duplicado", st.Error)
	assert.Len(t, r.lists, 1)
}

func TestEngine_FormSchemaPreflight(t *testing.T) {
	r := &recorder{}
	cfg := testConfig(allCaps())
	cfg.FormSchema = request.MapSchema{"title": "required,max=200"}
	e := mounted(t, cfg, fakeService(r, adapter.OpCreate))

	e.OnCreate()
	_, err := e.OnFormSubmit(context.Background(), map[string]any{})

	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "title")
	assert.Empty(t, r.created)
	assert.True(t, e.State().ShowForm)
}

func TestEngine_DeleteConfirm(t *testing.T) {
	r := &recorder{}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpDelete))
	ctx := context.Background()

	require.NoError(t, e.DeleteByID("b1"))
	require.True(t, e.State().ShowDeleteModal)

	require.NoError(t, e.OnDeleteConfirm(ctx))
	assert.Equal(t, []string{"b1"}, r.deleted)

	st := e.State()
	assert.False(t, st.ShowDeleteModal)
	assert.Nil(t, st.Selected)
	assert.Len(t, r.lists, 2)
}

func TestEngine_DeleteFailureReturnsError(t *testing.T) {
	r := &recorder{deleteErr: &apperrors.APIError{StatusCode: 500, Messages: []string{"boom"}}}
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpDelete))

	e.OnDelete(item{ID: "b1"})
	err := e.OnDeleteConfirm(context.Background())
	require.Error(t, err)

	st := e.State()
	assert.True(t, st.ShowDeleteModal)
	assert.Equal(t, "boom", st.Error)
}

func TestEngine_ByIDNotFound(t *testing.T) {
	e := mounted(t, testConfig(allCaps()), fakeService(&recorder{}))
	assert.ErrorIs(t, e.ViewByID("missing"), apperrors.ErrRecordNotFound)
}

func TestEngine_ViewModal(t *testing.T) {
	e := mounted(t, testConfig(allCaps()), fakeService(&recorder{}))

	require.NoError(t, e.ViewByID("b1"))
	st := e.State()
	assert.True(t, st.ShowViewModal)
	assert.Equal(t, "b1", st.Selected.ID)

	e.OnCloseView()
	st = e.State()
	assert.False(t, st.ShowViewModal)
	assert.Nil(t, st.Selected)
}

// =========================================
// 导出
// =========================================

func TestEngine_Export(t *testing.T) {
	r := &recorder{}
	clock := func() time.Time { return time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC) }
	e := mounted(t, testConfig(allCaps()), fakeService(r, adapter.OpExport), WithClock(clock))

	file, err := e.OnExport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, "books_2024-03-09.csv", file.Filename)
	assert.Equal(t, "id,title\nb1,X\n", string(file.Content))
}

func TestEngine_ExportDisabled(t *testing.T) {
	r := &recorder{}
	caps := allCaps()
	caps.Export = false
	e := mounted(t, testConfig(caps), fakeService(r, adapter.OpExport))

	file, err := e.OnExport(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, file)
	assert.Zero(t, r.exported)
}

// =========================================
// 过期结果
// =========================================

func racingService(started chan<- struct{}, release <-chan struct{}) adapter.Service[item] {
	return adapter.Service[item]{
		Entity: "books",
		List: func(ctx context.Context, p adapter.ListParams) (adapter.Page[item], error) {
			return onePage("b1"), nil
		},
		Search: func(ctx context.Context, p adapter.SearchParams) (adapter.Page[item], error) {
			if p.Term == "slow" {
				started <- struct{}{}
				<-release
				return onePage("slow-1"), nil
			}
			return onePage("fast-1"), nil
		},
	}
}

func TestEngine_StalePolicy(t *testing.T) {
	tests := []struct {
		policy StalePolicy
		want   string
		term   string
	}{
		{LastResolveWins, "slow-1", "slow"},
		{DiscardStale, "fast-1", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			started := make(chan struct{})
			release := make(chan struct{})
			e := mounted(t, testConfig(allCaps()), racingService(started, release), WithStalePolicy(tt.policy))
			ctx := context.Background()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = e.OnSearch(ctx, "slow", false, 1)
			}()
			<-started

			require.NoError(t, e.OnSearch(ctx, "fast", false, 1))
			close(release)
			<-done

			st := e.State()
			require.Len(t, st.Data, 1)
			assert.Equal(t, tt.want, st.Data[0].ID)
			assert.Equal(t, tt.term, st.Search.Term())
			assert.False(t, st.SearchLoading)
		})
	}
}

func TestEngine_ControllerView(t *testing.T) {
	r := &recorder{}
	ctrl := New(testConfig(allCaps()), fakeService(r, adapter.OpCreate, adapter.OpSearch)).Controller()
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	assert.Equal(t, "books", ctrl.Entity())
	assert.Equal(t, []adapter.Op{adapter.OpCreate, adapter.OpList, adapter.OpSearch}, ctrl.Ops())

	ctrl.OnCreate()
	rec, err := ctrl.OnFormSubmit(ctx, map[string]any{"title": "X"})
	require.NoError(t, err)
	assert.Equal(t, item{ID: "new", Title: "X"}, rec)

	st, ok := ctrl.Snapshot().(State[item])
	require.True(t, ok)
	assert.False(t, st.ShowForm)
}
