package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/service"
	"github.com/Christine-samola/Sistem-presensi/pkg/response"
)

// ClassHandler 班级/科目模块 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// CreateClass 创建班级
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), operatorID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, class)
}

// GetClass 获取班级详情
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	class, err := h.classSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// ListClasses 获取班级列表
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	classes, total, err := h.classSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, classes, total, req.GetPage(), req.GetPageSize())
}

// UpdateClass 更新班级
// PUT /api/v1/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), operatorID, id, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// DeleteClass 删除班级
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddMember 添加班级成员
// POST /api/v1/classes/:id/members
func (h *ClassHandler) AddMember(c *gin.Context) {
	classID := c.Param("id")
	if classID == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.classSvc.AddMember(c.Request.Context(), classID, &req); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, nil)
}

// RemoveMember 移除班级成员
// DELETE /api/v1/classes/:id/members/:student_id
func (h *ClassHandler) RemoveMember(c *gin.Context) {
	classID := c.Param("id")
	studentID := c.Param("student_id")
	if classID == "" || studentID == "" {
		response.BadRequest(c, 10001, "班级ID和学生ID不能为空")
		return
	}

	if err := h.classSvc.RemoveMember(c.Request.Context(), classID, studentID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListMembers 获取班级成员名单
// GET /api/v1/classes/:id/members
func (h *ClassHandler) ListMembers(c *gin.Context) {
	classID := c.Param("id")
	if classID == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	members, err := h.classSvc.ListMembers(c.Request.Context(), classID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// CreateSubject 创建科目
// POST /api/v1/subjects
func (h *ClassHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	subject, err := h.classSvc.CreateSubject(c.Request.Context(), operatorID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, subject)
}

// ListSubjects 获取科目列表
// GET /api/v1/subjects
func (h *ClassHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.classSvc.ListSubjects(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// DeleteSubject 删除科目
// DELETE /api/v1/subjects/:id
func (h *ClassHandler) DeleteSubject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "科目ID不能为空")
		return
	}

	if err := h.classSvc.DeleteSubject(c.Request.Context(), id); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleClassError 统一处理班级模块业务错误
func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 13001, "班级不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 13002, "科目不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 13003, "用户不存在")
	case errors.Is(err, service.ErrNotAStudent):
		response.BadRequest(c, 13004, "只能将学生角色加入班级")
	case errors.Is(err, service.ErrMemberExists):
		response.Conflict(c, 13005, "该学生已在班级中")
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 13006, "该学生不在班级中")
	default:
		response.InternalError(c)
	}
}
