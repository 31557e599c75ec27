// Package session 看板会话注册表
//
// 浏览器每挂载一个看板，BFF就创建一个dashboard.Engine并分配会话ID；
// 之后的所有事件都带着会话ID调用。同一用户的所有会话共享一个分页存储，
// 存储的变更写入Redis，重新登录或BFF重启后恢复到之前的页码
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-admin/internal/adapter"
	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/auth"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/pkg/debounce"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/metrics"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
	"github.com/xiebiao/bookstore-admin/pkg/request"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

// CursorRepository 分页游标持久化（Redis实现见persistence/redis）
type CursorRepository interface {
	Save(ctx context.Context, owner, entity string, p pagination.EntityParams) error
	Load(ctx context.Context, owner string) (map[string]pagination.EntityParams, error)
}

// Session 一个挂载中的看板
type Session struct {
	ID         string
	Owner      string
	Entity     string
	Controller dashboard.Controller

	minChars  int
	debouncer *debounce.Debouncer[autoTerm]
	lastSeen  time.Time
}

type autoTerm struct {
	term  string
	token string
}

// Deps Manager的依赖
type Deps struct {
	Client      adapter.Doer
	Config      config.DashboardConfig
	Retry       retry.Policy
	Repository  CursorRepository // 可为nil
	Notifier    dashboard.MutationNotifier
	Invalidator request.AuthInvalidator
	Logger      logrus.FieldLogger
}

// Manager 会话注册表
type Manager struct {
	client      adapter.Doer
	defs        map[string]Definition
	cfg         config.DashboardConfig
	retry       retry.Policy
	repo        CursorRepository
	notifier    dashboard.MutationNotifier
	invalidator request.AuthInvalidator
	log         logrus.FieldLogger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	stores   map[string]*pagination.Store
}

// NewManager 创建会话注册表
func NewManager(d Deps) *Manager {
	return &Manager{
		client:      d.Client,
		defs:        Definitions(),
		cfg:         d.Config,
		retry:       d.Retry,
		repo:        d.Repository,
		notifier:    d.Notifier,
		invalidator: d.Invalidator,
		log:         d.Logger.WithField("component", "session"),
		now:         time.Now,
		sessions:    make(map[string]*Session),
		stores:      make(map[string]*pagination.Store),
	}
}

// Configs 可挂载的看板配置，按实体名排序，已填入全局默认值
func (m *Manager) Configs() []dashboard.Config {
	out := make([]dashboard.Config, 0, len(m.defs))
	for _, def := range m.defs {
		out = append(out, m.configure(def.Config))
	}
	slices.SortFunc(out, func(a, b dashboard.Config) int {
		return strings.Compare(a.Entity, b.Entity)
	})
	return out
}

// Mount 创建会话并加载第一页
// 列表加载失败不算挂载失败，错误体现在state.error中
func (m *Manager) Mount(ctx context.Context, owner, entity string) (*Session, error) {
	def, ok := m.defs[entity]
	if !ok {
		return nil, apperrors.ErrUnknownEntity
	}

	cfg := m.configure(def.Config)
	opts := []dashboard.Option{
		dashboard.WithStore(m.storeFor(ctx, owner)),
		dashboard.WithRetry(m.retry),
		dashboard.WithLogger(m.log.WithField("owner", owner)),
	}
	if m.notifier != nil {
		opts = append(opts, dashboard.WithNotifier(m.notifier))
	}
	if m.invalidator != nil {
		opts = append(opts, dashboard.WithAuthInvalidator(m.invalidator))
	}
	if m.cfg.DiscardStale {
		opts = append(opts, dashboard.WithStalePolicy(dashboard.DiscardStale))
	}

	s := &Session{
		ID:         uuid.NewString(),
		Owner:      owner,
		Entity:     entity,
		Controller: def.Build(m.client, cfg, opts...),
		minChars:   cfg.Search.Auto.MinChars,
		lastSeen:   m.now(),
	}
	s.debouncer = debounce.New(cfg.Search.Auto.Debounce, func(v autoTerm) {
		m.runAutoFilter(s, v)
	})

	if err := s.Controller.Mount(ctx); err != nil {
		if errors.Is(err, apperrors.ErrUnsupported) {
			return nil, err
		}
		m.log.WithFields(logrus.Fields{
			"entity":  entity,
			"session": s.ID,
		}).WithError(err).Warn("initial load failed")
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.SessionMounted(entity, 1)

	m.log.WithFields(logrus.Fields{
		"entity":  entity,
		"session": s.ID,
		"owner":   owner,
	}).Info("dashboard mounted")
	return s, nil
}

// Get 按ID取会话，会话必须属于owner
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return nil, apperrors.ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Unmount 关闭会话；待处理的自动过滤被丢弃
func (m *Manager) Unmount(id, owner string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		m.mu.Unlock()
		return apperrors.ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.release(s)
	return nil
}

// AutoFilter 提交一次按键输入，防抖后执行
// 去空格后为空：退出搜索并刷新列表；不足最小长度：忽略
func (m *Manager) AutoFilter(ctx context.Context, s *Session, term string) {
	s.debouncer.Push(autoTerm{term: term, token: auth.TokenFromContext(ctx)})
}

// FlushAutoFilter 立即执行待处理的自动过滤
func (m *Manager) FlushAutoFilter(s *Session) {
	s.debouncer.Flush()
}

func (m *Manager) runAutoFilter(s *Session, v autoTerm) {
	ctx := auth.WithToken(context.Background(), v.token)
	term := strings.TrimSpace(v.term)

	var err error
	switch {
	case term == "":
		s.Controller.OnClearSearch()
		err = s.Controller.OnDataRefresh(ctx)
	case utf8.RuneCountInString(term) < s.minChars:
		return
	default:
		err = s.Controller.OnAutoFilter(ctx, term)
	}
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"entity":  s.Entity,
			"session": s.ID,
		}).WithError(err).Warn("auto filter failed")
	}
}

// Sweep 回收超过TTL未访问的会话，返回回收数量
func (m *Manager) Sweep() int {
	if m.cfg.SessionTTL <= 0 {
		return 0
	}
	deadline := m.now().Add(-m.cfg.SessionTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastSeen.Before(deadline) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.release(s)
	}
	if len(expired) > 0 {
		m.log.WithFields(logrus.Fields{
			"count":     len(expired),
			"remaining": m.Count(),
		}).Info("idle dashboard sessions expired")
	}
	return len(expired)
}

// Run 定期回收空闲会话，ctx取消后返回
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.SessionTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close 关闭全部会话
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.release(s)
	}
}

// Count 当前会话数
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) release(s *Session) {
	s.debouncer.Stop()
	metrics.SessionMounted(s.Entity, -1)
	m.log.WithFields(logrus.Fields{
		"entity":  s.Entity,
		"session": s.ID,
	}).Info("dashboard unmounted")
}

// configure 用全局默认值补齐看板配置
func (m *Manager) configure(cfg dashboard.Config) dashboard.Config {
	if cfg.Table.PageSize <= 0 {
		cfg.Table.PageSize = m.cfg.DefaultPageSize
	}
	if cfg.Search.Auto.MinChars <= 0 {
		cfg.Search.Auto.MinChars = m.cfg.MinChars
	}
	if cfg.Search.Auto.Debounce <= 0 {
		cfg.Search.Auto.Debounce = m.cfg.Debounce
	}
	return cfg
}

// storeFor 每个用户一个分页存储，首次使用时从仓库恢复
func (m *Manager) storeFor(ctx context.Context, owner string) *pagination.Store {
	m.mu.Lock()
	if s, ok := m.stores[owner]; ok {
		m.mu.Unlock()
		return s
	}
	store := pagination.NewStore(pagination.EntityParams{Page: 1, Limit: m.cfg.DefaultPageSize})
	m.stores[owner] = store
	m.mu.Unlock()

	if m.repo == nil {
		return store
	}

	log := m.log.WithField("owner", owner)
	snapshot, err := m.repo.Load(ctx, owner)
	if err != nil {
		log.WithError(err).Warn("restore pagination failed")
	} else {
		store.Restore(snapshot)
	}

	store.OnChange(func(entity string, p pagination.EntityParams) {
		if err := m.repo.Save(context.Background(), owner, entity, p); err != nil {
			log.WithField("entity", entity).WithError(err).Warn("persist pagination failed")
		}
	})
	return store
}
