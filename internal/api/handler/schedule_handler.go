package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/service"
	"github.com/Christine-samola/Sistem-presensi/pkg/response"
)

// ScheduleHandler 课程表模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// CreateSchedule 创建课程表条目
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Create(c.Request.Context(), operatorID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// ListSchedules 获取班级课程表
// GET /api/v1/schedules?class_id=xxx
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	classID := c.Query("class_id")
	if classID == "" {
		response.BadRequest(c, 10001, "class_id 不能为空")
		return
	}

	schedules, err := h.scheduleSvc.ListByClass(c.Request.Context(), classID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": schedules})
}

// DeleteSchedule 删除课程表条目
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程表ID不能为空")
		return
	}

	if err := h.scheduleSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportICS 从 iCalendar 导入课程表
// POST /api/v1/schedules/import-ics
func (h *ScheduleHandler) ImportICS(c *gin.Context) {
	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.ImportICS(c.Request.Context(), operatorID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// handleScheduleError 统一处理课程表模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 14001, "课程表条目不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 14002, "班级不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 14003, "科目不存在")
	case errors.Is(err, service.ErrICSImportDisabled):
		response.Forbidden(c, 14004, "ICS 导入功能未启用")
	case errors.Is(err, service.ErrICSSourceMissing):
		response.BadRequest(c, 14005, "需要提供 ICS 内容或 URL")
	default:
		response.InternalError(c)
	}
}
