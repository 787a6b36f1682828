package dto

// ── 点名会话模块 DTO ──

// StartSessionRequest 开启点名会话请求（教师）
type StartSessionRequest struct {
	ClassID   string  `json:"class_id"   binding:"required,uuid"`
	SubjectID *string `json:"subject_id" binding:"omitempty,uuid"`
}

// SessionResponse 点名会话响应
type SessionResponse struct {
	ID           string  `json:"id"`
	ClassID      string  `json:"class_id"`
	ClassName    string  `json:"class_name,omitempty"`
	SubjectID    *string `json:"subject_id,omitempty"`
	SubjectName  string  `json:"subject_name,omitempty"`
	TeacherID    string  `json:"teacher_id"`
	Token        string  `json:"token"` // QR 内容与手动输入共用同一值
	Status       string  `json:"status"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time,omitempty"`
	ExpiresAt    string  `json:"expires_at"`
	ScannedCount int     `json:"scanned_count"`
}

// SessionHistoryRequest 会话历史查询参数
type SessionHistoryRequest struct {
	Filter string `form:"filter" binding:"omitempty,oneof=week month all"` // 默认 week
}

// SessionHistoryItem 会话历史条目（含出勤统计）
type SessionHistoryItem struct {
	ID             string  `json:"id"`
	ClassName      string  `json:"class_name"`
	SubjectName    string  `json:"subject_name,omitempty"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        *string `json:"end_time,omitempty"`
	TotalStudents  int     `json:"total_students"`
	PresentCount   int     `json:"present_count"`
	AbsentCount    int     `json:"absent_count"`
	AttendanceRate float64 `json:"attendance_rate"` // 百分比，保留一位小数
}

// ── 扫码/点名记录 DTO ──

// ScanRequest 学生扫码签到请求
type ScanRequest struct {
	Token string `json:"token" binding:"required"`
}

// ScanResponse 扫码签到结果
// AlreadyScanned=true 表示重复提交，同样按成功返回
type ScanResponse struct {
	Record         RecordResponse `json:"record"`
	AlreadyScanned bool           `json:"already_scanned"`
	ClassName      string         `json:"class_name,omitempty"`
	SubjectName    string         `json:"subject_name,omitempty"`
	TeacherName    string         `json:"teacher_name,omitempty"`
}

// RecordResponse 点名记录响应
type RecordResponse struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	StudentID string  `json:"student_id"`
	Status    string  `json:"status"`
	Source    string  `json:"source"`
	ScanTime  *string `json:"scan_time,omitempty"`
}

// ManualOverrideRequest 教师手动录入/更正请求
type ManualOverrideRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Status    string `json:"status"     binding:"required,oneof=present late excused sick absent"`
}

// RosterEntry 会话学生名单条目（含当前点名状态）
type RosterEntry struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	NIS       string  `json:"nis"`
	Status    *string `json:"status,omitempty"` // 未签到时为 null
	Source    *string `json:"source,omitempty"`
	ScanTime  *string `json:"scan_time,omitempty"`
	Scanned   bool    `json:"scanned"`
}

// ── 学生端 DTO ──

// StudentStatsResponse 学生仪表盘统计
type StudentStatsResponse struct {
	TodayStatus    string  `json:"today_status"` // 当天状态；未签到为 "none"
	MonthlyPresent int     `json:"monthly_present"`
	MonthlyLate    int     `json:"monthly_late"`
	MonthlyTotal   int     `json:"monthly_total"` // 当月已结束会话数
	AttendanceRate float64 `json:"attendance_rate"`
}

// StudentHistoryItem 学生出勤历史条目
type StudentHistoryItem struct {
	RecordID    string  `json:"record_id"`
	SessionID   string  `json:"session_id"`
	ClassName   string  `json:"class_name"`
	SubjectName string  `json:"subject_name,omitempty"`
	TeacherName string  `json:"teacher_name,omitempty"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
	Source      string  `json:"source"`
	ScanTime    *string `json:"scan_time,omitempty"`
}
