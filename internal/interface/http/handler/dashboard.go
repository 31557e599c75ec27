package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-admin/internal/application/session"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
	"github.com/xiebiao/bookstore-admin/pkg/response"
)

// DashboardHandler 看板HTTP处理器
// 每个请求对应看板上的一次事件，返回事件处理后的完整状态
type DashboardHandler struct {
	sessions *session.Manager
}

// NewDashboardHandler 创建看板处理器
func NewDashboardHandler(sessions *session.Manager) *DashboardHandler {
	return &DashboardHandler{sessions: sessions}
}

// List 可挂载的看板
// @Summary      看板列表
// @Description  返回所有实体看板及其能力配置
// @Tags         看板
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]dto.DashboardInfo}
// @Router       /api/v1/dashboards [get]
func (h *DashboardHandler) List(c *gin.Context) {
	configs := h.sessions.Configs()
	out := make([]dto.DashboardInfo, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, dto.DashboardInfo{
			Entity:       cfg.Entity,
			Capabilities: cfg.Capabilities,
			Table:        cfg.Table,
			Search:       cfg.Search,
		})
	}
	response.Success(c, out)
}

// Mount 挂载看板
// @Summary      挂载看板
// @Description  创建会话，恢复该用户的分页游标并加载第一页
// @Tags         看板
// @Produce      json
// @Security     BearerAuth
// @Param        entity path string true "实体" Enums(books, authors, genres, publishers, users, inventory-movements, audit)
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Failure      200 {object} response.Response "40402 未注册的实体"
// @Failure      401 {object} response.Response "未登录"
// @Router       /api/v1/dashboards/{entity} [post]
func (h *DashboardHandler) Mount(c *gin.Context) {
	s, err := h.sessions.Mount(c.Request.Context(), middleware.GetUserID(c), c.Param("entity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sessionResponse(s))
}

// State 当前状态
// @Summary      会话状态
// @Tags         看板
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Failure      200 {object} response.Response "40401 会话不存在"
// @Router       /api/v1/dashboards/sessions/{id} [get]
func (h *DashboardHandler) State(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, sessionResponse(s))
}

// Unmount 卸载看板
// @Summary      卸载看板
// @Description  关闭会话，丢弃待处理的自动过滤；分页游标保留
// @Tags         看板
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/dashboards/sessions/{id} [delete]
func (h *DashboardHandler) Unmount(c *gin.Context) {
	if err := h.sessions.Unmount(c.Param("id"), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// =========================================
// 搜索
// =========================================

// Search 简单搜索
// @Summary      简单搜索
// @Description  优先调用search，实体没有search时回退quickFilter；搜索失败写入state.error
// @Tags         看板搜索
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.SearchRequest true "搜索条件"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/search [post]
func (h *DashboardHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnSearch(c.Request.Context(), req.Term, req.Fuzzy, req.Page))
}

// AdvancedFilter 高级过滤
// @Summary      高级过滤
// @Description  没有advancedFilter时：单个字符串条件回退quickFilter，否则取第一个非空字符串回退search
// @Tags         看板搜索
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.AdvancedFilterRequest true "过滤条件"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Failure      200 {object} response.Response "40500 没有可用的搜索操作"
// @Router       /api/v1/dashboards/sessions/{id}/advanced-filter [post]
func (h *DashboardHandler) AdvancedFilter(c *gin.Context) {
	var req dto.AdvancedFilterRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnAdvancedFilter(c.Request.Context(), req.Filters, req.Page))
}

// QuickFilter 快速过滤
// @Summary      快速过滤
// @Description  关键字少于3个字符时不请求上游，state.error给出提示
// @Tags         看板搜索
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.QuickFilterRequest true "关键字"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/quick-filter [post]
func (h *DashboardHandler) QuickFilter(c *gin.Context) {
	var req dto.QuickFilterRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnQuickFilter(c.Request.Context(), req.Term, req.Page))
}

// AutoFilter 自动过滤
// @Summary      自动过滤（防抖）
// @Description  每次按键提交一次，停止输入一段时间后才请求上游；结果通过会话状态接口获取
// @Description  immediate=true时立即执行并返回会话状态
// @Tags         看板搜索
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.AutoFilterRequest true "输入框内容"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Success      202 {object} response.Response
// @Router       /api/v1/dashboards/sessions/{id}/auto-filter [post]
func (h *DashboardHandler) AutoFilter(c *gin.Context) {
	var req dto.AutoFilterRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.sessions.AutoFilter(c.Request.Context(), s, req.Term)
	if req.Immediate {
		h.sessions.FlushAutoFilter(s)
		h.reply(c, s, nil)
		return
	}
	response.Accepted(c, gin.H{"sessionId": s.ID})
}

// ClearSearch 清除搜索
// @Summary      清除搜索
// @Description  回到列表模式与第一页，不重新加载
// @Tags         看板搜索
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/clear-search [post]
func (h *DashboardHandler) ClearSearch(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.OnClearSearch()
	response.Success(c, sessionResponse(s))
}

// =========================================
// 分页
// =========================================

// ChangePage 翻页
// @Summary      翻页
// @Description  搜索模式下按同一种搜索重放
// @Tags         看板分页
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.PageRequest true "页码"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/page [post]
func (h *DashboardHandler) ChangePage(c *gin.Context) {
	var req dto.PageRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnPageChange(c.Request.Context(), req.Page))
}

// ChangePageSize 每页条数
// @Summary      修改每页条数
// @Tags         看板分页
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.PageSizeRequest true "每页条数"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/page-size [post]
func (h *DashboardHandler) ChangePageSize(c *gin.Context) {
	var req dto.PageSizeRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnPageSizeChange(c.Request.Context(), req.Size))
}

// ChangeSort 排序
// @Summary      修改排序
// @Tags         看板分页
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.SortRequest true "排序"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/sort [post]
func (h *DashboardHandler) ChangeSort(c *gin.Context) {
	var req dto.SortRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	dir := pagination.SortOrder(strings.ToLower(req.Direction))
	h.reply(c, s, s.Controller.OnSortChange(c.Request.Context(), req.Field, dir))
}

// Refresh 刷新
// @Summary      刷新列表
// @Description  搜索模式下先退出搜索
// @Tags         看板分页
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnDataRefresh(c.Request.Context()))
}

// =========================================
// 表单与弹窗
// =========================================

// OpenCreate 打开新建表单
// @Summary      打开新建表单
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/form/create [post]
func (h *DashboardHandler) OpenCreate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.OnCreate()
	response.Success(c, sessionResponse(s))
}

// OpenEdit 打开编辑表单
// @Summary      打开编辑表单
// @Description  记录必须在当前页中
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        entityId path string true "记录ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Failure      200 {object} response.Response "40403 当前页中没有该记录"
// @Router       /api/v1/dashboards/sessions/{id}/form/edit/{entityId} [post]
func (h *DashboardHandler) OpenEdit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.EditByID(c.Param("entityId")))
}

// CancelForm 关闭表单
// @Summary      关闭表单
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/form/cancel [post]
func (h *DashboardHandler) CancelForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.OnFormCancel()
	response.Success(c, sessionResponse(s))
}

// SubmitForm 提交表单
// @Summary      提交表单
// @Description  新建或更新；成功后关闭表单、退出搜索并重新加载；失败时表单保持打开并返回字段错误
// @Tags         看板表单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        request body dto.FormSubmitRequest true "表单数据"
// @Success      200 {object} response.Response{data=dto.FormSubmitResponse}
// @Failure      200 {object} response.Response{data=response.ErrorDetail} "40902 校验失败"
// @Router       /api/v1/dashboards/sessions/{id}/form/submit [post]
func (h *DashboardHandler) SubmitForm(c *gin.Context) {
	var req dto.FormSubmitRequest
	s, ok := h.bind(c, &req)
	if !ok {
		return
	}
	rec, err := s.Controller.OnFormSubmit(c.Request.Context(), req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FormSubmitResponse{Record: rec, Session: sessionResponse(s)})
}

// OpenView 打开详情
// @Summary      打开详情弹窗
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        entityId path string true "记录ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/view/{entityId} [post]
func (h *DashboardHandler) OpenView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.ViewByID(c.Param("entityId")))
}

// CloseView 关闭详情
// @Summary      关闭详情弹窗
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/view/close [post]
func (h *DashboardHandler) CloseView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.OnCloseView()
	response.Success(c, sessionResponse(s))
}

// OpenDelete 打开删除确认
// @Summary      打开删除确认弹窗
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Param        entityId path string true "记录ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/delete/{entityId} [post]
func (h *DashboardHandler) OpenDelete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.DeleteByID(c.Param("entityId")))
}

// ConfirmDelete 确认删除
// @Summary      确认删除
// @Description  删除失败时弹窗保持打开
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/delete/confirm [post]
func (h *DashboardHandler) ConfirmDelete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Controller.OnDeleteConfirm(c.Request.Context()))
}

// CancelDelete 取消删除
// @Summary      关闭删除确认弹窗
// @Tags         看板表单
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {object} response.Response{data=dto.SessionResponse}
// @Router       /api/v1/dashboards/sessions/{id}/delete/cancel [post]
func (h *DashboardHandler) CancelDelete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.OnDeleteCancel()
	response.Success(c, sessionResponse(s))
}

// Export 导出CSV
// @Summary      导出CSV
// @Description  高级过滤模式下按当前过滤条件导出；文件名 <entity>_<YYYY-MM-DD>.csv
// @Tags         看板
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id path string true "会话ID"
// @Success      200 {file} file
// @Failure      200 {object} response.Response "40500 不支持导出"
// @Router       /api/v1/dashboards/sessions/{id}/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	file, err := s.Controller.OnExport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if file == nil {
		response.Error(c, apperrors.ErrUnsupported)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// =========================================
// 辅助函数
// =========================================

func (h *DashboardHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return s, true
}

// bind 先取会话再绑定请求体
func (h *DashboardHandler) bind(c *gin.Context, req any) (*session.Session, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithErr(err))
		return nil, false
	}
	return s, true
}

// reply 事件处理出错时返回错误，否则返回最新状态
func (h *DashboardHandler) reply(c *gin.Context, s *session.Session, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sessionResponse(s))
}

func sessionResponse(s *session.Session) dto.SessionResponse {
	ops := s.Controller.Ops()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, string(op))
	}
	return dto.SessionResponse{
		SessionID:    s.ID,
		Entity:       s.Entity,
		Capabilities: s.Controller.Config().Capabilities,
		Operations:   names,
		State:        s.Controller.Snapshot(),
	}
}
