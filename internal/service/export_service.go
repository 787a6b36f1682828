package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmptyRoster  = errors.New("班级名册为空，无可导出内容")
	ErrExportNoSessions   = errors.New("该时段内没有已结束的点名会话")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出单个会话的出勤汇总为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 名册内未签到且未手动录入的学生按「未签到」呈现
type ExportService interface {
	// ExportSessionReport 导出会话出勤汇总为 Excel
	ExportSessionReport(ctx context.Context, teacherID, sessionID string) (*bytes.Buffer, string, error)
	// ExportClassRecap 导出班级某自然月的出勤矩阵（行=学生，列=会话）为 Excel
	ExportClassRecap(ctx context.Context, classID string, month time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// statusLabels 出勤状态中文标签
var statusLabels = map[string]string{
	model.AttendancePresent: "出勤",
	model.AttendanceLate:    "迟到",
	model.AttendanceExcused: "请假",
	model.AttendanceSick:    "病假",
	model.AttendanceAbsent:  "缺勤",
}

// ═══════════════════════════════════════════════════════════
// ExportSessionReport — 导出会话出勤汇总
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：班级 / 科目 / 日期
//   - 表头：序号 | 学籍号 | 姓名 | 状态 | 来源 | 扫码时间
//   - 末尾：按状态汇总计数
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSessionReport(ctx context.Context, teacherID, sessionID string) (*bytes.Buffer, string, error) {
	// 1. 查询会话（含归属校验）
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSessionNotFound
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, "", err
	}
	if session.TeacherID != teacherID {
		return nil, "", ErrNotSessionOwner
	}

	// 2. 名册与记录
	members, err := s.repo.Class.ListMembers(ctx, session.ClassID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, "", err
	}
	if len(members) == 0 {
		return nil, "", ErrExportEmptyRoster
	}
	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询点名记录失败", zap.Error(err))
		return nil, "", err
	}

	byStudent := make(map[string]*model.AttendanceRecord, len(records))
	for i := range records {
		byStudent[records[i].StudentID] = &records[i]
	}

	className := session.ClassID
	if session.Class != nil {
		className = session.Class.Name
	}
	subjectName := "-"
	if session.Subject != nil {
		subjectName = session.Subject.Name
	}
	dateStr := session.StartTime.Format("2006-01-02")

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "出勤汇总"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 24)
	f.SetColWidth(sheetName, "D", "F", 14)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s · %s — 出勤汇总 (%s)", className, subjectName, dateStr))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"序号", "学籍号", "姓名", "状态", "来源", "扫码时间"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}

	// 数据行
	statusCount := make(map[string]int)
	row := 3
	for i, m := range members {
		name, nis := m.StudentID, ""
		if m.Student != nil {
			name = m.Student.Name
			nis = m.Student.NIS
		}

		statusLabel := "未签到"
		sourceLabel := "-"
		scanLabel := "-"
		if rec, ok := byStudent[m.StudentID]; ok {
			statusLabel = statusLabels[rec.Status]
			if rec.Source == model.SourceManual {
				sourceLabel = "手动"
			} else {
				sourceLabel = "扫码"
			}
			if rec.ScanTime != nil {
				scanLabel = rec.ScanTime.Format("15:04:05")
			}
			statusCount[rec.Status]++
		} else {
			statusCount["none"]++
		}

		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), nis)
		f.SetCellValue(sheetName, cell("C", row), name)
		f.SetCellValue(sheetName, cell("D", row), statusLabel)
		f.SetCellValue(sheetName, cell("E", row), sourceLabel)
		f.SetCellValue(sheetName, cell("F", row), scanLabel)
		row++
	}

	// 汇总行
	row++
	summary := fmt.Sprintf("出勤 %d · 迟到 %d · 请假 %d · 病假 %d · 缺勤 %d · 未签到 %d",
		statusCount[model.AttendancePresent],
		statusCount[model.AttendanceLate],
		statusCount[model.AttendanceExcused],
		statusCount[model.AttendanceSick],
		statusCount[model.AttendanceAbsent],
		statusCount["none"])
	f.SetCellValue(sheetName, cell("A", row), summary)
	f.MergeCell(sheetName, cell("A", row), cell("F", row))

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("出勤汇总_%s_%s.xlsx", className, dateStr)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportClassRecap — 导出班级月度出勤矩阵
// ═══════════════════════════════════════════════════════════
//
// 行 = 名册内学生，列 = 当月每个已结束会话（列头为日期+科目），
// 单元格为状态缩写，行尾附出勤率。

// statusShortLabels 矩阵单元格状态缩写
var statusShortLabels = map[string]string{
	model.AttendancePresent: "√",
	model.AttendanceLate:    "迟",
	model.AttendanceExcused: "假",
	model.AttendanceSick:    "病",
	model.AttendanceAbsent:  "×",
}

func (s *exportService) ExportClassRecap(ctx context.Context, classID string, month time.Time) (*bytes.Buffer, string, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, "", err
	}

	members, err := s.repo.Class.ListMembers(ctx, classID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, "", err
	}
	if len(members) == 0 {
		return nil, "", ErrExportEmptyRoster
	}

	// 自然月边界
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	to := from.AddDate(0, 1, 0)

	sessions, err := s.repo.Session.ListEndedByClassBetween(ctx, classID, from, to)
	if err != nil {
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}

	// 每个会话的记录按学生索引
	recordsBySession := make([]map[string]string, len(sessions))
	for i := range sessions {
		records, err := s.repo.Attendance.ListBySession(ctx, sessions[i].SessionID)
		if err != nil {
			s.logger.Error("查询点名记录失败", zap.Error(err))
			return nil, "", err
		}
		byStudent := make(map[string]string, len(records))
		for j := range records {
			byStudent[records[j].StudentID] = records[j].Status
		}
		recordsBySession[i] = byStudent
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "月度汇总"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "B", 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	monthStr := from.Format("2006-01")
	lastCol := colName(2 + len(sessions))
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 月度出勤汇总 (%s)", class.Name, monthStr))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头：学籍号 | 姓名 | 会话列… | 出勤率
	f.SetCellValue(sheetName, "A2", "学籍号")
	f.SetCellValue(sheetName, "B2", "姓名")
	for i := range sessions {
		label := sessions[i].StartTime.Format("01-02")
		if sessions[i].Subject != nil {
			label += " " + sessions[i].Subject.Name
		}
		f.SetCellValue(sheetName, cell(colName(2+i), 2), label)
	}
	f.SetCellValue(sheetName, cell(lastCol, 2), "出勤率")

	row := 3
	for _, m := range members {
		name, nis := m.StudentID, ""
		if m.Student != nil {
			name = m.Student.Name
			nis = m.Student.NIS
		}
		f.SetCellValue(sheetName, cell("A", row), nis)
		f.SetCellValue(sheetName, cell("B", row), name)

		attended := 0
		for i := range sessions {
			label := "-"
			if status, ok := recordsBySession[i][m.StudentID]; ok {
				label = statusShortLabels[status]
				if status == model.AttendancePresent || status == model.AttendanceLate {
					attended++
				}
			}
			f.SetCellValue(sheetName, cell(colName(2+i), row), label)
		}

		rate := float64(attended) / float64(len(sessions)) * 100
		f.SetCellValue(sheetName, cell(lastCol, row), fmt.Sprintf("%.1f%%", rate))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("月度出勤_%s_%s.xlsx", class.Name, monthStr)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
