package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/service"
	"github.com/Christine-samola/Sistem-presensi/pkg/response"
)

// SessionHandler 点名会话模块 HTTP 处理器（教师）
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// StartSession 开启点名会话
// POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Start(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// EndSession 结束点名会话
// PUT /api/v1/sessions/:id/end
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.End(c.Request.Context(), teacherID, sessionID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// GetActiveSession 获取当前进行中的点名会话
// GET /api/v1/sessions/active
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.GetActive(c.Request.Context(), teacherID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// GetSession 获取点名会话详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.GetByID(c.Request.Context(), teacherID, sessionID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// SessionHistory 获取点名会话历史
// GET /api/v1/sessions/history?filter=week|month|all
func (h *SessionHandler) SessionHistory(c *gin.Context) {
	var req dto.SessionHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	items, err := h.sessionSvc.History(c.Request.Context(), teacherID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// handleSessionError 统一处理会话模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.Conflict(c, 15001, "已有正在进行的点名会话，请先结束")
	case errors.Is(err, service.ErrNoActiveSession):
		response.NotFound(c, 15002, "当前没有进行中的点名会话")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 15003, "点名会话不存在")
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Forbidden(c, 15004, "只能操作自己的点名会话")
	case errors.Is(err, service.ErrSessionAlreadyEnded):
		response.Conflict(c, 15005, "点名会话已结束")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 15006, "班级不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 15007, "科目不存在")
	default:
		response.InternalError(c)
	}
}
