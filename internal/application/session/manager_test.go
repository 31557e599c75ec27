package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/domain/catalog"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/apiclient"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/auth"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

type hit struct {
	path  string
	query string
	auth  string
}

// upstream 假的书店API，记录收到的请求
type upstream struct {
	mu   sync.Mutex
	hits []hit
}

func (u *upstream) handler(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits = append(u.hits, hit{path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")})
	u.mu.Unlock()
	_, _ = w.Write([]byte(`{"data":[{"id":"b1","title":"Go"}],"meta":{"total":40}}`))
}

func (u *upstream) requests(path string) []hit {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []hit
	for _, h := range u.hits {
		if h.path == path {
			out = append(out, h)
		}
	}
	return out
}

type memRepo struct {
	mu    sync.Mutex
	data  map[string]map[string]pagination.EntityParams
	saves int
}

func (r *memRepo) Save(_ context.Context, owner, entity string, p pagination.EntityParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[owner] == nil {
		r.data[owner] = make(map[string]pagination.EntityParams)
	}
	r.data[owner][entity] = p
	r.saves++
	return nil
}

func (r *memRepo) Load(_ context.Context, owner string) (map[string]pagination.EntityParams, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[owner], nil
}

func newManager(t *testing.T, repo CursorRepository) (*Manager, *upstream) {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	client := apiclient.New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, auth.ContextTokenSource{}, log)

	m := NewManager(Deps{
		Client: client,
		Config: config.DashboardConfig{
			DefaultPageSize: 10,
			Debounce:        time.Hour, // 测试中用Flush触发
			MinChars:        3,
			SessionTTL:      time.Minute,
		},
		Repository: repo,
		Logger:     log,
	})
	t.Cleanup(m.Close)
	return m, up
}

func bookState(t *testing.T, s *Session) dashboard.State[catalog.Book] {
	t.Helper()
	st, ok := s.Controller.Snapshot().(dashboard.State[catalog.Book])
	require.True(t, ok)
	return st
}

func TestManager_MountAndGet(t *testing.T) {
	m, up := newManager(t, nil)
	ctx := context.Background()

	_, err := m.Mount(ctx, "u1", "orders")
	assert.ErrorIs(t, err, apperrors.ErrUnknownEntity)

	s, err := m.Mount(ctx, "u1", catalog.EntityBooks)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())

	st := bookState(t, s)
	require.Len(t, st.Data, 1)
	assert.Equal(t, "Go", st.Data[0].Title)
	assert.Equal(t, 10, st.PageSize)
	assert.Equal(t, "title", st.Sort.Field)

	require.Len(t, up.requests("/books"), 1)

	got, err := m.Get(s.ID, "u1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(s.ID, "u2")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	assert.ErrorIs(t, m.Unmount(s.ID, "u2"), apperrors.ErrSessionNotFound)
	require.NoError(t, m.Unmount(s.ID, "u1"))
	assert.Zero(t, m.Count())
	_, err = m.Get(s.ID, "u1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestManager_MountKeepsSessionOnLoadFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom","statusCode":500}`))
	}))
	t.Cleanup(srv.Close)

	m := NewManager(Deps{
		Client: apiclient.New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, nil, log),
		Config: config.DashboardConfig{DefaultPageSize: 10, MinChars: 3},
		Logger: log,
	})
	defer m.Close()

	s, err := m.Mount(context.Background(), "u1", catalog.EntityBooks)
	require.NoError(t, err)
	st := bookState(t, s)
	assert.NotEmpty(t, st.Error)
	assert.False(t, st.Loading)
}

func TestManager_SharedCursorPerOwner(t *testing.T) {
	repo := &memRepo{data: map[string]map[string]pagination.EntityParams{
		"u1": {catalog.EntityBooks: {Page: 3, Limit: 5, SortBy: "price", SortOrder: pagination.SortDesc}},
	}}
	m, up := newManager(t, repo)
	ctx := context.Background()

	s, err := m.Mount(ctx, "u1", catalog.EntityBooks)
	require.NoError(t, err)

	reqs := up.requests("/books")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].query, "page=3")
	assert.Contains(t, reqs[0].query, "limit=5")
	assert.Contains(t, reqs[0].query, "sortBy=price")

	require.NoError(t, s.Controller.OnPageChange(ctx, 2))

	// 同一用户的第二个看板读到同一份游标
	s2, err := m.Mount(ctx, "u1", catalog.EntityBooks)
	require.NoError(t, err)
	assert.Equal(t, 2, bookState(t, s2).CurrentPage)
	assert.Equal(t, 5, bookState(t, s2).PageSize)

	repo.mu.Lock()
	assert.Positive(t, repo.saves)
	assert.Equal(t, 5, repo.data["u1"][catalog.EntityBooks].Limit)
	repo.mu.Unlock()

	// 其他用户从默认值开始
	_, err = m.Mount(ctx, "u2", catalog.EntityBooks)
	require.NoError(t, err)
	reqs = up.requests("/books")
	assert.Contains(t, reqs[len(reqs)-1].query, "page=1")
	assert.Contains(t, reqs[len(reqs)-1].query, "limit=10")
}

func TestManager_AutoFilter(t *testing.T) {
	m, up := newManager(t, nil)
	s, err := m.Mount(context.Background(), "u1", catalog.EntityBooks)
	require.NoError(t, err)

	ctx := auth.WithToken(context.Background(), "tok-1")

	// 不足最小长度时忽略
	m.AutoFilter(ctx, s, "go")
	m.FlushAutoFilter(s)
	assert.Empty(t, up.requests("/books/filter"))

	m.AutoFilter(ctx, s, "g")
	m.AutoFilter(ctx, s, "gol")
	m.AutoFilter(ctx, s, "golang")
	m.FlushAutoFilter(s)

	reqs := up.requests("/books/filter")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].query, "name=golang")
	assert.Equal(t, "Bearer tok-1", reqs[0].auth)

	st := bookState(t, s)
	assert.True(t, st.IsSearchMode)
	assert.Equal(t, dashboard.ModeAuto, st.Search.Mode())
	assert.Equal(t, "golang", st.Search.Term())

	// 清空输入：退出搜索并刷新列表
	m.AutoFilter(ctx, s, "  ")
	m.FlushAutoFilter(s)
	st = bookState(t, s)
	assert.False(t, st.IsSearchMode)
	assert.Len(t, up.requests("/books"), 2)
}

func TestManager_AutoFilterDebounced(t *testing.T) {
	m, up := newManager(t, nil)
	m.cfg.Debounce = 20 * time.Millisecond

	s, err := m.Mount(context.Background(), "u1", catalog.EntityGenres)
	require.NoError(t, err)

	for _, term := range []string{"nov", "nove", "novel"} {
		m.AutoFilter(context.Background(), s, term)
	}

	assert.Eventually(t, func() bool {
		return len(up.requests("/genres/filter")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, up.requests("/genres/filter")[0].query, "name=novel")
}

func TestManager_Sweep(t *testing.T) {
	m, _ := newManager(t, nil)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.Mount(context.Background(), "u1", catalog.EntityAuthors)
	require.NoError(t, err)
	active, err := m.Mount(context.Background(), "u1", catalog.EntityGenres)
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	_, err = m.Get(active.ID, "u1")
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(idle.ID, "u1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = m.Get(active.ID, "u1")
	assert.NoError(t, err)
}

func TestManager_Configs(t *testing.T) {
	m, _ := newManager(t, nil)

	configs := m.Configs()
	require.Len(t, configs, 7)
	assert.True(t, slices.IsSortedFunc(configs, func(a, b dashboard.Config) int {
		return strings.Compare(a.Entity, b.Entity)
	}))
	for _, cfg := range configs {
		assert.Equal(t, 10, cfg.Table.PageSize, cfg.Entity)
		assert.Equal(t, 3, cfg.Search.Auto.MinChars, cfg.Entity)
		assert.Equal(t, time.Hour, cfg.Search.Auto.Debounce, cfg.Entity)
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	assert.Len(t, defs, 7)

	audit := defs[catalog.EntityAudit].Config
	assert.False(t, dashboard.IsAllowed(audit, dashboard.CapCreate))
	assert.False(t, dashboard.IsAllowed(audit, dashboard.CapDelete))
	assert.True(t, dashboard.IsAllowed(audit, dashboard.CapExport))

	inv := defs[catalog.EntityInventoryMovements].Config
	assert.True(t, dashboard.IsAllowed(inv, dashboard.CapCreate))
	assert.False(t, dashboard.IsAllowed(inv, dashboard.CapUpdate))
	assert.Equal(t, pagination.SortDesc, inv.Table.DefaultSort.Direction)

	assert.NotNil(t, defs[catalog.EntityBooks].Config.FormSchema)
}
