package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/service"
	"github.com/Christine-samola/Sistem-presensi/pkg/response"
)

// AttendanceHandler 点名记录模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Scan 学生扫码签到
// POST /api/v1/attendance/scan
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Scan(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// SetManual 教师手动录入/更正出勤状态
// PUT /api/v1/sessions/:id/records
func (h *AttendanceHandler) SetManual(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	var req dto.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.SetManual(c.Request.Context(), teacherID, sessionID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// Roster 获取会话学生名单及签到状态
// GET /api/v1/sessions/:id/roster
func (h *AttendanceHandler) Roster(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entries, err := h.attendanceSvc.Roster(c.Request.Context(), teacherID, sessionID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// StudentStats 学生仪表盘统计
// GET /api/v1/attendance/stats
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	stats, err := h.attendanceSvc.StudentStats(c.Request.Context(), studentID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, stats)
}

// StudentHistory 学生出勤历史
// GET /api/v1/attendance/history?filter=week|month|all
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	var req dto.SessionHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	items, err := h.attendanceSvc.StudentHistory(c.Request.Context(), studentID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// handleAttendanceError 统一处理点名记录模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		response.NotFound(c, 16001, "点名令牌无效")
	case errors.Is(err, service.ErrTokenExpired):
		response.Conflict(c, 16002, "点名会话已结束或令牌已过期")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 16003, "不在该班级名册中")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 16004, "非法的出勤状态")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16005, "点名会话不存在")
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Forbidden(c, 16006, "只能操作自己的点名会话")
	case errors.Is(err, service.ErrSessionAlreadyEnded):
		response.Conflict(c, 16007, "点名会话已结束，无法修改记录")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 16008, "学生不存在")
	default:
		response.InternalError(c)
	}
}
