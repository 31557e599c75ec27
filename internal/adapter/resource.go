package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xiebiao/bookstore-admin/internal/domain/catalog"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/apiclient"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
)

// Doer 发出API请求（*apiclient.Client实现）
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Endpoints 实体的REST端点描述，空字符串表示不支持
type Endpoints struct {
	Base             string // 列表/创建/更新/删除，如 /books
	Search           string // POST
	QuickFilter      string // GET
	QuickFilterParam string // 快速过滤的查询参数名，默认name（audit用filter）
	AdvancedFilter   string // POST
	Export           string // GET，返回CSV文本

	Create bool
	Update bool
	Delete bool
}

// NewResource 按端点描述构造适配器
func NewResource[T catalog.Record](client Doer, entity string, ep Endpoints) Service[T] {
	r := &resource[T]{client: client, ep: ep}
	if r.ep.QuickFilterParam == "" {
		r.ep.QuickFilterParam = "name"
	}

	svc := Service[T]{
		Entity: entity,
		List:   r.list,
		Paths:  map[Op]string{OpList: ep.Base},
	}
	if ep.Search != "" {
		svc.Search = r.search
		svc.Paths[OpSearch] = ep.Search
	}
	if ep.QuickFilter != "" {
		svc.QuickFilter = r.quickFilter
		svc.Paths[OpQuickFilter] = ep.QuickFilter
	}
	if ep.AdvancedFilter != "" {
		svc.AdvancedFilter = r.advancedFilter
		svc.Paths[OpAdvancedFilter] = ep.AdvancedFilter
	}
	if ep.Create {
		svc.Create = r.create
		svc.Paths[OpCreate] = ep.Base
	}
	if ep.Update {
		svc.Update = r.update
		svc.Paths[OpUpdate] = ep.Base
	}
	if ep.Delete {
		svc.Delete = r.delete
		svc.Paths[OpDelete] = ep.Base
	}
	if ep.Export != "" {
		svc.ExportToCsv = r.export
		svc.Paths[OpExport] = ep.Export
	}
	return svc
}

type resource[T catalog.Record] struct {
	client Doer
	ep     Endpoints
}

func (r *resource[T]) list(ctx context.Context, p ListParams) (Page[T], error) {
	q := url.Values{}
	setPaging(q, p.Page, p.Limit)
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
		q.Set("sortOrder", string(p.SortOrder))
	}
	for k, v := range p.Filters {
		if s := queryValue(v); s != "" {
			q.Set(k, s)
		}
	}
	return r.page(ctx, apiclient.Request{Method: http.MethodGet, Path: r.ep.Base, Query: q})
}

func (r *resource[T]) search(ctx context.Context, p SearchParams) (Page[T], error) {
	return r.page(ctx, apiclient.Request{Method: http.MethodPost, Path: r.ep.Search, Body: p})
}

// quickFilter 词长不足时直接返回校验错误，不发请求
func (r *resource[T]) quickFilter(ctx context.Context, term string, p PageParams) (Page[T], error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinQuickFilterChars {
		return Page[T]{}, &apperrors.ValidationError{Fields: map[string][]string{
			r.ep.QuickFilterParam: {fmt.Sprintf("debe tener al menos %d caracteres", MinQuickFilterChars)},
		}}
	}

	q := url.Values{}
	q.Set(r.ep.QuickFilterParam, term)
	setPaging(q, p.Page, p.Limit)
	return r.page(ctx, apiclient.Request{Method: http.MethodGet, Path: r.ep.QuickFilter, Query: q})
}

// advancedFilter 请求体为 {...filters, pagination}
func (r *resource[T]) advancedFilter(ctx context.Context, filters map[string]any, p AdvancedPagination) (Page[T], error) {
	body := make(map[string]any, len(filters)+1)
	for k, v := range filters {
		body[k] = v
	}
	body["pagination"] = p
	return r.page(ctx, apiclient.Request{Method: http.MethodPost, Path: r.ep.AdvancedFilter, Body: body})
}

func (r *resource[T]) create(ctx context.Context, payload map[string]any) (T, error) {
	resp, err := r.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: r.ep.Base, Body: payload})
	if err != nil {
		var zero T
		return zero, err
	}
	return apiclient.DecodeOne[T](resp)
}

func (r *resource[T]) update(ctx context.Context, id string, payload map[string]any) (T, error) {
	resp, err := r.client.Do(ctx, apiclient.Request{
		Method: http.MethodPatch,
		Path:   r.itemPath(id),
		Route:  r.ep.Base + "/:id",
		Body:   payload,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return apiclient.DecodeOne[T](resp)
}

// delete 返回上游的message（如 "Book deleted successfully"）
func (r *resource[T]) delete(ctx context.Context, id string) (string, error) {
	resp, err := r.client.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   r.itemPath(id),
		Route:  r.ep.Base + "/:id",
	})
	if err != nil {
		return "", err
	}
	body, err := apiclient.DecodeOne[struct {
		Message string `json:"message"`
	}](resp)
	// 删除已经成功；响应体不是{message}（如204空响应）时只是没有提示语
	if err != nil {
		return "", nil
	}
	return body.Message, nil
}

func (r *resource[T]) export(ctx context.Context, filters map[string]any) (string, error) {
	q := url.Values{}
	for k, v := range filters {
		if s := queryValue(v); s != "" {
			q.Set(k, s)
		}
	}
	resp, err := r.client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: r.ep.Export, Query: q})
	if err != nil {
		return "", err
	}
	return apiclient.DecodeText(resp), nil
}

func (r *resource[T]) page(ctx context.Context, req apiclient.Request) (Page[T], error) {
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := apiclient.DecodeList[T](resp)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Data: items, Meta: resp.Meta}, nil
}

func (r *resource[T]) itemPath(id string) string {
	return r.ep.Base + "/" + url.PathEscape(id)
}

func setPaging(q url.Values, page, limit int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}

// queryValue 过滤值转查询参数，切片用逗号拼接
func queryValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
