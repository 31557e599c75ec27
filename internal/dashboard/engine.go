// Package dashboard 后台看板编排引擎
//
// 一个Engine对应一个挂载的看板（某个实体的表格 + 搜索 + 表单 + 弹窗）：
//  1. 所有会改变状态的处理函数先检查能力，未开启时直接返回，不触网
//  2. 进入搜索模式时记录唯一的SearchState，翻页按同一种搜索重放
//  3. 状态只通过reduce修改；持锁只覆盖状态更新，不跨网络调用
//  4. 表单提交/删除失败返回错误，搜索失败只写入state.Error
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-admin/internal/adapter"
	"github.com/xiebiao/bookstore-admin/internal/domain/catalog"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/metrics"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
	"github.com/xiebiao/bookstore-admin/pkg/request"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

var (
	// ErrAutoFilterUnsupported 自动过滤要求适配器提供quickFilter
	ErrAutoFilterUnsupported = apperrors.ErrUnsupported.WithErr(errors.New("auto filter requires quickFilter"))
	// ErrNoSearchOperation 没有可用的搜索操作
	ErrNoSearchOperation = apperrors.ErrUnsupported.WithErr(errors.New("no applicable search operation"))
)

// StalePolicy 并发请求结果的取舍
type StalePolicy uint8

const (
	// LastResolveWins 最后返回的结果覆盖状态（默认）
	LastResolveWins StalePolicy = iota
	// DiscardStale 数据区按序号丢弃过期结果
	DiscardStale
)

func (p StalePolicy) String() string {
	if p == DiscardStale {
		return "discard_stale"
	}
	return "last_resolve_wins"
}

// 变更动作
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Mutation 一次成功的增删改
type Mutation struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// MutationNotifier 增删改成功后的通知（如发布到消息队列）
type MutationNotifier interface {
	NotifyMutation(ctx context.Context, m Mutation) error
}

// ExportFile 导出结果
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Option 引擎选项
type Option func(*options)

type options struct {
	store       *pagination.Store
	notifier    MutationNotifier
	invalidator request.AuthInvalidator
	retry       *retry.Policy
	log         logrus.FieldLogger
	policy      StalePolicy
	now         func() time.Time
}

// WithStore 共享分页存储
func WithStore(s *pagination.Store) Option {
	return func(o *options) { o.store = s }
}

// WithNotifier 变更通知
func WithNotifier(n MutationNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithAuthInvalidator 认证失败时的会话层回调
func WithAuthInvalidator(inv request.AuthInvalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithRetry 读操作（列表/搜索/导出）的重试策略
func WithRetry(p retry.Policy) Option {
	return func(o *options) { o.retry = &p }
}

// WithLogger 日志
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithStalePolicy 过期结果策略
func WithStalePolicy(p StalePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithClock 导出文件名使用的时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type quickArgs struct {
	term string
	page adapter.PageParams
}

type advancedArgs struct {
	filters map[string]any
	page    adapter.AdvancedPagination
}

type updateArgs struct {
	id   string
	data map[string]any
}

// Engine 看板编排引擎
type Engine[T catalog.Record] struct {
	cfg      Config
	svc      adapter.Service[T]
	store    *pagination.Store
	notifier MutationNotifier
	policy   StalePolicy
	log      logrus.FieldLogger
	now      func() time.Time

	list     *request.Executor[adapter.ListParams, adapter.Page[T]]
	search   *request.Executor[adapter.SearchParams, adapter.Page[T]]
	quick    *request.Executor[quickArgs, adapter.Page[T]]
	advanced *request.Executor[advancedArgs, adapter.Page[T]]
	create   *request.Executor[map[string]any, T]
	update   *request.Executor[updateArgs, T]
	remove   *request.Executor[string, string]
	export   *request.Executor[map[string]any, string]

	mu      sync.Mutex
	state   State[T]
	dataSeq uint64
}

// New 创建引擎
func New[T catalog.Record](cfg Config, svc adapter.Service[T], opts ...Option) *Engine[T] {
	o := &options{policy: LastResolveWins, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if cfg.Entity == "" {
		cfg.Entity = svc.Entity
	}
	if o.store == nil {
		o.store = pagination.NewStore(pagination.EntityParams{
			Page:      1,
			Limit:     cfg.pageSize(),
			SortBy:    cfg.Table.DefaultSort.Field,
			SortOrder: cfg.Table.DefaultSort.Direction,
		})
	}

	log := o.log.WithField("entity", cfg.Entity)
	e := &Engine[T]{
		cfg:      cfg,
		svc:      svc,
		store:    o.store,
		notifier: o.notifier,
		policy:   o.policy,
		log:      log,
		now:      o.now,
		state: State[T]{
			Data:        []T{},
			CurrentPage: 1,
			PageSize:    cfg.pageSize(),
			Sort:        cfg.Table.DefaultSort,
		},
	}

	writes := []request.Option{request.WithLogger(log)}
	if o.invalidator != nil {
		writes = append(writes, request.WithAuthInvalidator(o.invalidator))
	}
	reads := slices.Clone(writes)
	if o.retry != nil {
		reads = append(reads, request.WithRetry(*o.retry))
	}

	if svc.List != nil {
		e.list = request.New[adapter.ListParams, adapter.Page[T]](svc.Endpoint(adapter.OpList), svc.List, reads...)
	}
	if svc.Search != nil {
		e.search = request.New[adapter.SearchParams, adapter.Page[T]](svc.Endpoint(adapter.OpSearch), svc.Search, reads...)
	}
	if svc.QuickFilter != nil {
		e.quick = request.New[quickArgs, adapter.Page[T]](svc.Endpoint(adapter.OpQuickFilter), func(ctx context.Context, a quickArgs) (adapter.Page[T], error) {
			return svc.QuickFilter(ctx, a.term, a.page)
		}, reads...)
	}
	if svc.AdvancedFilter != nil {
		e.advanced = request.New[advancedArgs, adapter.Page[T]](svc.Endpoint(adapter.OpAdvancedFilter), func(ctx context.Context, a advancedArgs) (adapter.Page[T], error) {
			return svc.AdvancedFilter(ctx, a.filters, a.page)
		}, reads...)
	}
	if svc.Create != nil {
		createOpts := slices.Clone(writes)
		if cfg.FormSchema != nil {
			createOpts = append(createOpts, request.WithValidator(cfg.FormSchema))
		}
		e.create = request.New[map[string]any, T](svc.Endpoint(adapter.OpCreate), svc.Create, createOpts...)
	}
	if svc.Update != nil {
		updateOpts := slices.Clone(writes)
		if schema := cfg.FormSchema; schema != nil {
			updateOpts = append(updateOpts, request.WithValidator(request.ValidatorFunc(func(p any) map[string][]string {
				args, _ := p.(updateArgs)
				return schema.Validate(args.data)
			})))
		}
		e.update = request.New[updateArgs, T](svc.Endpoint(adapter.OpUpdate), func(ctx context.Context, a updateArgs) (T, error) {
			return svc.Update(ctx, a.id, a.data)
		}, updateOpts...)
	}
	if svc.Delete != nil {
		e.remove = request.New[string, string](svc.Endpoint(adapter.OpDelete), svc.Delete, writes...)
	}
	if svc.ExportToCsv != nil {
		e.export = request.New[map[string]any, string](svc.Endpoint(adapter.OpExport), svc.ExportToCsv, reads...)
	}
	return e
}

// Entity 实体名
func (e *Engine[T]) Entity() string { return e.cfg.Entity }

// Config 看板配置
func (e *Engine[T]) Config() Config { return e.cfg }

// Allowed 能力是否开启
func (e *Engine[T]) Allowed(c Capability) bool { return IsAllowed(e.cfg, c) }

// State 当前状态的拷贝
func (e *Engine[T]) State() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// =========================================
// 列表
// =========================================

// Mount 恢复共享分页游标并加载第一页
func (e *Engine[T]) Mount(ctx context.Context) error {
	p := e.store.EnsureEntity(e.cfg.Entity, pagination.EntityParams{
		Page:      1,
		Limit:     e.cfg.pageSize(),
		SortBy:    e.cfg.Table.DefaultSort.Field,
		SortOrder: e.cfg.Table.DefaultSort.Direction,
	})
	e.dispatch(cursorRestored{
		page: p.Page,
		size: p.Limit,
		sort: Sort{Field: p.SortBy, Direction: p.SortOrder},
	})

	err := e.loadList(ctx)
	metrics.RecordDashboardOp(e.cfg.Entity, "mount", err)
	return err
}

// OnDataRefresh 搜索模式下先退出搜索，再重新加载列表
func (e *Engine[T]) OnDataRefresh(ctx context.Context) error {
	if e.snapshot().IsSearchMode {
		e.dispatch(searchCleared{})
		e.store.HandlePageChange(e.cfg.Entity, 1)
	}
	err := e.loadList(ctx)
	metrics.RecordDashboardOp(e.cfg.Entity, "refresh", err)
	return err
}

func (e *Engine[T]) loadList(ctx context.Context) error {
	if e.list == nil {
		return apperrors.ErrUnsupported
	}

	st := e.snapshot()
	params := adapter.ListParams{
		Page:      st.CurrentPage,
		Limit:     st.PageSize,
		SortBy:    st.Sort.Field,
		SortOrder: st.Sort.Direction,
	}

	seq := e.begin(listStarted{})
	res := e.list.Execute(ctx, params)
	if !res.Success {
		e.commit(seq, listFailed{msg: res.Message}, listSettled{})
		return res.Err
	}

	meta := pagination.Normalize(res.Data.Meta, len(res.Data.Data), &pagination.Params{Page: params.Page, Limit: params.Limit})
	if e.commit(seq, listLoaded[T]{data: orEmpty(res.Data.Data), meta: meta}, listSettled{}) {
		e.store.UpdateFromAPIMeta(e.cfg.Entity, meta)
	}
	return nil
}

// =========================================
// 表单与弹窗
// =========================================

// OnCreate 打开新建表单
func (e *Engine[T]) OnCreate() {
	if !e.Allowed(CapCreate) {
		return
	}
	e.dispatch(formOpened[T]{selected: nil, editing: false})
}

// OnEdit 打开编辑表单
func (e *Engine[T]) OnEdit(entity T) {
	if !e.Allowed(CapUpdate) {
		return
	}
	e.dispatch(formOpened[T]{selected: &entity, editing: true})
}

// OnView 打开详情弹窗
func (e *Engine[T]) OnView(entity T) {
	if !e.Allowed(CapRead) {
		return
	}
	e.dispatch(viewOpened[T]{selected: &entity})
}

// OnDelete 打开删除确认弹窗
func (e *Engine[T]) OnDelete(entity T) {
	if !e.Allowed(CapDelete) {
		return
	}
	e.dispatch(deleteOpened[T]{selected: &entity})
}

// EditByID 在当前页中查找记录后调用OnEdit
func (e *Engine[T]) EditByID(id string) error {
	if !e.Allowed(CapUpdate) {
		return nil
	}
	rec, err := e.find(id)
	if err != nil {
		return err
	}
	e.OnEdit(rec)
	return nil
}

// ViewByID 在当前页中查找记录后调用OnView
func (e *Engine[T]) ViewByID(id string) error {
	if !e.Allowed(CapRead) {
		return nil
	}
	rec, err := e.find(id)
	if err != nil {
		return err
	}
	e.OnView(rec)
	return nil
}

// DeleteByID 在当前页中查找记录后调用OnDelete
func (e *Engine[T]) DeleteByID(id string) error {
	if !e.Allowed(CapDelete) {
		return nil
	}
	rec, err := e.find(id)
	if err != nil {
		return err
	}
	e.OnDelete(rec)
	return nil
}

// OnFormSubmit 新建或更新
// 成功：关闭表单、退出搜索模式、重新加载列表
// 失败：表单保持打开，返回错误
func (e *Engine[T]) OnFormSubmit(ctx context.Context, data map[string]any) (T, error) {
	var zero T
	st := e.snapshot()
	editing := st.IsEditing && st.Selected != nil

	if editing {
		if !e.Allowed(CapUpdate) {
			return zero, nil
		}
		if e.update == nil {
			return zero, apperrors.ErrUnsupported
		}
	} else {
		if !e.Allowed(CapCreate) {
			return zero, nil
		}
		if e.create == nil {
			return zero, apperrors.ErrUnsupported
		}
	}

	e.dispatch(formSubmitting{})

	var (
		res    request.Result[T]
		action string
		id     string
	)
	if editing {
		action, id = ActionUpdate, (*st.Selected).EntityID()
		res = e.update.Execute(ctx, updateArgs{id: id, data: data})
	} else {
		action = ActionCreate
		res = e.create.Execute(ctx, data)
	}
	metrics.RecordDashboardOp(e.cfg.Entity, action, res.Err)

	if !res.Success {
		e.dispatch(formFailed{msg: res.Message})
		return zero, res.Err
	}

	if rid := res.Data.EntityID(); rid != "" {
		id = rid
	}
	e.dispatch(formClosed{})
	e.dispatch(searchExited{})
	e.notify(ctx, action, id)
	e.reloadAfterMutation(ctx)
	return res.Data, nil
}

// OnFormCancel 关闭表单
func (e *Engine[T]) OnFormCancel() {
	e.dispatch(formClosed{})
}

// OnDeleteConfirm 删除选中记录
func (e *Engine[T]) OnDeleteConfirm(ctx context.Context) error {
	if !e.Allowed(CapDelete) {
		return nil
	}
	st := e.snapshot()
	if st.Selected == nil {
		return nil
	}
	if e.remove == nil {
		return apperrors.ErrUnsupported
	}

	id := (*st.Selected).EntityID()
	e.dispatch(deleteStarted{})
	res := e.remove.Execute(ctx, id)
	metrics.RecordDashboardOp(e.cfg.Entity, ActionDelete, res.Err)
	if !res.Success {
		e.dispatch(deleteFailed{msg: res.Message})
		return res.Err
	}

	e.dispatch(deleteClosed{})
	e.dispatch(searchExited{})
	e.notify(ctx, ActionDelete, id)
	e.reloadAfterMutation(ctx)
	return nil
}

// OnDeleteCancel 关闭删除弹窗
func (e *Engine[T]) OnDeleteCancel() {
	e.dispatch(deleteClosed{})
}

// OnCloseView 关闭详情弹窗
func (e *Engine[T]) OnCloseView() {
	e.dispatch(viewClosed{})
}

// reloadAfterMutation 变更已成功，列表加载失败只体现在state.Error
func (e *Engine[T]) reloadAfterMutation(ctx context.Context) {
	if err := e.loadList(ctx); err != nil {
		e.log.WithError(err).Warn("reload after mutation failed")
	}
}

func (e *Engine[T]) notify(ctx context.Context, action, id string) {
	if e.notifier == nil {
		return
	}
	m := Mutation{Entity: e.cfg.Entity, Action: action, ID: id, At: e.now()}
	if err := e.notifier.NotifyMutation(ctx, m); err != nil {
		e.log.WithFields(logrus.Fields{
			"action": action,
			"id":     id,
		}).WithError(err).Warn("notify mutation failed")
	}
}

// =========================================
// 搜索
// =========================================

// OnAutoFilter 自动过滤（输入框防抖后触发）
// 引擎不限制最小长度；适配器没有quickFilter时写入state.Error并返回ErrAutoFilterUnsupported
func (e *Engine[T]) OnAutoFilter(ctx context.Context, term string) error {
	return e.autoFilter(ctx, term, 1)
}

func (e *Engine[T]) autoFilter(ctx context.Context, term string, pg int) error {
	if !e.Allowed(SearchAuto) || !e.cfg.Search.Auto.Enabled {
		return nil
	}
	if e.quick == nil {
		return e.unsupported("auto_filter", ErrAutoFilterUnsupported)
	}
	limit := e.snapshot().PageSize
	args := quickArgs{term: term, page: adapter.PageParams{Page: pg, Limit: limit}}
	e.runSearch(ctx, "auto_filter", AutoSearch(term), pg, limit, func() request.Result[adapter.Page[T]] {
		return e.quick.Execute(ctx, args)
	})
	return nil
}

// OnSearch 简单搜索，优先search，没有时回退quickFilter
func (e *Engine[T]) OnSearch(ctx context.Context, term string, fuzzy bool, pg int) error {
	if !e.Allowed(SearchSimple) {
		return nil
	}
	pg = max(1, pg)
	st := e.snapshot()
	state := SimpleSearch(term, fuzzy)

	switch {
	case e.search != nil:
		e.runSearch(ctx, "search", state, pg, st.PageSize, e.searchCall(ctx, term, fuzzy, pg, st))
	case e.quick != nil:
		e.runSearch(ctx, "search", state, pg, st.PageSize, e.quickCall(ctx, term, pg, st))
	default:
		return e.unsupported("search", ErrNoSearchOperation)
	}
	return nil
}

// OnAdvancedFilter 高级过滤
// 没有advancedFilter时依次尝试：
//  1. quickFilter：只有一个过滤字段且值为字符串
//  2. search：取第一个非空字符串值作为term
func (e *Engine[T]) OnAdvancedFilter(ctx context.Context, filters map[string]any, pg int) error {
	if !e.Allowed(SearchAdvanced) {
		return nil
	}
	pg = max(1, pg)
	st := e.snapshot()
	state := AdvancedSearch(filters)

	if e.advanced != nil {
		args := advancedArgs{
			filters: filters,
			page: adapter.AdvancedPagination{
				Page:      pg,
				Limit:     st.PageSize,
				SortBy:    st.Sort.Field,
				SortOrder: st.Sort.Direction,
			},
		}
		e.runSearch(ctx, "advanced_filter", state, pg, st.PageSize, func() request.Result[adapter.Page[T]] {
			return e.advanced.Execute(ctx, args)
		})
		return nil
	}

	if e.quick != nil {
		if term, ok := singleString(filters); ok {
			e.runSearch(ctx, "advanced_filter", state, pg, st.PageSize, e.quickCall(ctx, term, pg, st))
			return nil
		}
	}

	if e.search != nil {
		if term, ok := e.firstTerm(filters); ok {
			e.runSearch(ctx, "advanced_filter", state, pg, st.PageSize, e.searchCall(ctx, term, false, pg, st))
			return nil
		}
	}
	return e.unsupported("advanced_filter", ErrNoSearchOperation)
}

// OnQuickFilter 快速过滤，优先quickFilter，没有时回退search
func (e *Engine[T]) OnQuickFilter(ctx context.Context, term string, pg int) error {
	if !e.Allowed(SearchSimple) {
		return nil
	}
	pg = max(1, pg)
	st := e.snapshot()
	state := QuickSearch(term)

	switch {
	case e.quick != nil:
		e.runSearch(ctx, "quick_filter", state, pg, st.PageSize, e.quickCall(ctx, term, pg, st))
	case e.search != nil:
		e.runSearch(ctx, "quick_filter", state, pg, st.PageSize, e.searchCall(ctx, term, false, pg, st))
	default:
		return e.unsupported("quick_filter", ErrNoSearchOperation)
	}
	return nil
}

// OnClearSearch 回到列表模式与第一页，不触发重新加载
func (e *Engine[T]) OnClearSearch() {
	e.dispatch(searchCleared{})
	e.store.HandlePageChange(e.cfg.Entity, 1)
}

// =========================================
// 分页与排序
// =========================================

// OnPageChange 翻页：搜索模式重放同一种搜索，列表模式重新加载
func (e *Engine[T]) OnPageChange(ctx context.Context, pg int) error {
	pg = max(1, pg)
	e.dispatch(pageSet{page: pg})
	e.store.HandlePageChange(e.cfg.Entity, pg)
	return e.replay(ctx, pg)
}

// OnPageSizeChange 修改每页条数并回到第一页
func (e *Engine[T]) OnPageSizeChange(ctx context.Context, size int) error {
	size = max(1, size)
	e.dispatch(pageSizeSet{size: size})
	e.store.HandleLimitChange(e.cfg.Entity, size)
	return e.replay(ctx, 1)
}

// OnSortChange 修改排序并回到第一页
func (e *Engine[T]) OnSortChange(ctx context.Context, field string, dir pagination.SortOrder) error {
	if dir != pagination.SortDesc {
		dir = pagination.SortAsc
	}
	e.dispatch(sortSet{sort: Sort{Field: field, Direction: dir}})
	e.store.HandleSortChange(e.cfg.Entity, field, dir)
	e.store.HandlePageChange(e.cfg.Entity, 1)
	return e.replay(ctx, 1)
}

// replay 按当前SearchState重放；优先级 search → advancedFilter → quickFilter，
// 自动过滤按quickFilter重放
func (e *Engine[T]) replay(ctx context.Context, pg int) error {
	st := e.snapshot()
	if !st.IsSearchMode {
		return e.loadList(ctx)
	}

	s := st.Search
	switch s.Mode() {
	case ModeSimple:
		return e.OnSearch(ctx, s.Term(), s.Fuzzy(), pg)
	case ModeAdvanced:
		return e.OnAdvancedFilter(ctx, s.Filters(), pg)
	case ModeQuick:
		return e.OnQuickFilter(ctx, s.Term(), pg)
	case ModeAuto:
		return e.autoFilter(ctx, s.Term(), pg)
	}
	return nil
}

// =========================================
// 导出
// =========================================

// OnExport 导出CSV，文件名 <entity>_<YYYY-MM-DD>.csv
// 未开启导出时返回nil, nil
func (e *Engine[T]) OnExport(ctx context.Context) (*ExportFile, error) {
	if !e.Allowed(CapExport) || e.export == nil {
		return nil, nil
	}

	var filters map[string]any
	if s := e.snapshot().Search; s.Mode() == ModeAdvanced {
		filters = s.Filters()
	}

	res := e.export.Execute(ctx, filters)
	metrics.RecordDashboardOp(e.cfg.Entity, "export", res.Err)
	if !res.Success {
		e.dispatch(errorSet{msg: res.Message})
		return nil, res.Err
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.csv", e.cfg.Entity, e.now().Format(time.DateOnly)),
		ContentType: "text/csv;charset=utf-8",
		Content:     []byte(res.Data),
	}, nil
}

// =========================================
// 内部
// =========================================

func (e *Engine[T]) searchCall(ctx context.Context, term string, fuzzy bool, pg int, st State[T]) func() request.Result[adapter.Page[T]] {
	params := adapter.SearchParams{
		Term:      term,
		Page:      pg,
		Limit:     st.PageSize,
		SortBy:    st.Sort.Field,
		SortOrder: st.Sort.Direction,
		Fuzzy:     fuzzy,
	}
	return func() request.Result[adapter.Page[T]] { return e.search.Execute(ctx, params) }
}

func (e *Engine[T]) quickCall(ctx context.Context, term string, pg int, st State[T]) func() request.Result[adapter.Page[T]] {
	args := quickArgs{term: term, page: adapter.PageParams{Page: pg, Limit: st.PageSize}}
	return func() request.Result[adapter.Page[T]] { return e.quick.Execute(ctx, args) }
}

// unsupported 没有可用的搜索操作：错误写入state.Error，同时返回给调用方
func (e *Engine[T]) unsupported(op string, err error) error {
	metrics.RecordDashboardOp(e.cfg.Entity, op, err)
	e.dispatch(errorSet{msg: apperrors.Message(err, e.cfg.Entity)})
	return err
}

// runSearch 搜索类调用的统一状态流转；错误只写入state.Error
func (e *Engine[T]) runSearch(ctx context.Context, op string, search SearchState, pg, limit int, call func() request.Result[adapter.Page[T]]) {
	seq := e.begin(searchStarted{})
	res := call()
	metrics.RecordDashboardOp(e.cfg.Entity, op, res.Err)

	if !res.Success {
		e.commit(seq, searchFailed{msg: res.Message}, searchSettled{})
		return
	}

	meta := pagination.Normalize(res.Data.Meta, len(res.Data.Data), &pagination.Params{Page: pg, Limit: limit})
	if e.commit(seq, searchLoaded[T]{data: orEmpty(res.Data.Data), meta: meta, search: search}, searchSettled{}) {
		e.store.UpdateFromAPIMeta(e.cfg.Entity, meta)
	}
	e.log.WithFields(logrus.Fields{
		"op":    op,
		"mode":  search.Mode().String(),
		"page":  pg,
		"total": meta.TotalItems,
	}).Debug("search applied")
}

func (e *Engine[T]) dispatch(a action) {
	e.mu.Lock()
	e.state = reduce(e.state, a)
	e.mu.Unlock()
}

func (e *Engine[T]) snapshot() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// begin 应用开始动作并分配数据区序号
func (e *Engine[T]) begin(a action) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = reduce(e.state, a)
	e.dataSeq++
	return e.dataSeq
}

// commit 应用数据区结果；DiscardStale下序号过期时只清除loading（stale），返回是否已应用
func (e *Engine[T]) commit(seq uint64, a action, stale action) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.policy == DiscardStale && seq != e.dataSeq {
		e.state = reduce(e.state, stale)
		e.log.WithField("seq", seq).Debug("stale result discarded")
		return false
	}
	e.state = reduce(e.state, a)
	return true
}

func (e *Engine[T]) find(id string) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.state.Data {
		if rec.EntityID() == id {
			return rec, nil
		}
	}
	var zero T
	return zero, apperrors.ErrRecordNotFound
}

// singleString 只有一个过滤字段且值为字符串
func singleString(filters map[string]any) (string, bool) {
	if len(filters) != 1 {
		return "", false
	}
	for _, v := range filters {
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}

// firstTerm 按配置的字段顺序（其余字段按名称排序）取第一个非空字符串
func (e *Engine[T]) firstTerm(filters map[string]any) (string, bool) {
	keys := make([]string, 0, len(filters))
	seen := make(map[string]bool, len(filters))
	for _, f := range e.cfg.Search.Advanced.Fields {
		if _, ok := filters[f]; ok && !seen[f] {
			keys = append(keys, f)
			seen[f] = true
		}
	}
	rest := make([]string, 0, len(filters))
	for k := range filters {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		if s, ok := filters[k].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func orEmpty[T any](data []T) []T {
	if data == nil {
		return []T{}
	}
	return data
}
