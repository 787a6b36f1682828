package dto

// ── 课程表模块 DTO ──

// CreateScheduleRequest 创建课程表条目请求
type CreateScheduleRequest struct {
	ClassID   string  `json:"class_id"    binding:"required,uuid"`
	SubjectID *string `json:"subject_id"  binding:"omitempty,uuid"`
	DayOfWeek int     `json:"day_of_week" binding:"required,min=1,max=7"`
	StartTime string  `json:"start_time"  binding:"required,len=5"` // "HH:MM"
	EndTime   string  `json:"end_time"    binding:"required,len=5"`
	Room      string  `json:"room"        binding:"omitempty,max=50"`
}

// ImportICSRequest 从 iCalendar 导入课程表请求
// URL 与 Content 二选一：优先使用 Content
type ImportICSRequest struct {
	ClassID string `json:"class_id" binding:"required,uuid"`
	URL     string `json:"url"      binding:"omitempty,url"`
	Content string `json:"content"  binding:"omitempty"`
}

// ImportICSResponse ICS 导入结果
type ImportICSResponse struct {
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Items    []ScheduleResponse `json:"items"`
}

// ScheduleResponse 课程表条目响应
type ScheduleResponse struct {
	ID          string  `json:"id"`
	ClassID     string  `json:"class_id"`
	SubjectID   *string `json:"subject_id,omitempty"`
	SubjectName string  `json:"subject_name,omitempty"`
	DayOfWeek   int     `json:"day_of_week"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Room        string  `json:"room,omitempty"`
}
