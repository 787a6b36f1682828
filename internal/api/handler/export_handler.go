package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Christine-samola/Sistem-presensi/internal/service"
	"github.com/Christine-samola/Sistem-presensi/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSessionReport 导出会话出勤汇总
// GET /api/v1/sessions/:id/export
func (h *ExportHandler) ExportSessionReport(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSessionReport(c.Request.Context(), teacherID, sessionID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExportClassRecap 导出班级月度出勤矩阵
// GET /api/v1/classes/:id/export?month=2025-09
func (h *ExportHandler) ExportClassRecap(c *gin.Context) {
	classID := c.Param("id")
	if classID == "" {
		response.BadRequest(c, 10001, "班级ID不能为空")
		return
	}

	month := time.Now()
	if q := c.Query("month"); q != "" {
		parsed, err := time.Parse("2006-01", q)
		if err != nil {
			response.BadRequest(c, 10001, "month 参数格式应为 YYYY-MM")
			return
		}
		month = parsed
	}

	buf, filename, err := h.exportSvc.ExportClassRecap(c.Request.Context(), classID, month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 17001, "点名会话不存在")
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Forbidden(c, 17002, "只能导出自己的点名会话")
	case errors.Is(err, service.ErrExportEmptyRoster):
		response.BadRequest(c, 17003, "班级名册为空，无可导出内容")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 17004, "班级不存在")
	case errors.Is(err, service.ErrExportNoSessions):
		response.BadRequest(c, 17005, "该时段内没有已结束的点名会话")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
