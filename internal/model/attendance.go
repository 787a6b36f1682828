package model

import "time"

// ── 会话状态 ──

const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// ── 点名记录状态 ──

const (
	AttendancePresent = "present"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
	AttendanceSick    = "sick"
	AttendanceAbsent  = "absent"
)

// ── 点名记录来源 ──

const (
	SourceAuto   = "auto"   // 学生扫码
	SourceManual = "manual" // 教师手动录入
)

// ValidAttendanceStatus 判断状态是否属于合法集合
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendancePresent, AttendanceLate, AttendanceExcused, AttendanceSick, AttendanceAbsent:
		return true
	}
	return false
}

// AttendanceSession 点名会话表 — 对应 attendance_sessions
//
// 不变式：
//   - 每个教师至多一个 status=active 的会话（部分唯一索引 uq_attendance_sessions_teacher_active）
//   - token 全局唯一
//   - 会话从不删除（历史留存），仅由 End 或惰性过期翻转状态
type AttendanceSession struct {
	SessionID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassID   string     `gorm:"type:uuid;not null"                             json:"class_id"`
	SubjectID *string    `gorm:"type:uuid"                                      json:"subject_id,omitempty"`
	TeacherID string     `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Token     string     `gorm:"type:varchar(64);not null"                      json:"token"` // 不透明承载令牌，QR 与纯文本同值
	Status    string     `gorm:"type:varchar(10);not null;default:'active'"     json:"status"` // active | ended
	StartTime time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	BaseModel

	// 关联
	Class   *Class   `gorm:"foreignKey:ClassID;references:ClassID"     json:"class,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
	Teacher *User    `gorm:"foreignKey:TeacherID;references:UserID"    json:"teacher,omitempty"`
}

// TableName 指定表名
func (AttendanceSession) TableName() string { return "attendance_sessions" }

// ExpiresAt 令牌有效窗口的截止时刻
func (s *AttendanceSession) ExpiresAt(validity time.Duration) time.Time {
	return s.StartTime.Add(validity)
}

// IsExpired 判断会话在 now 时刻是否已失效（已结束或超出有效窗口）
func (s *AttendanceSession) IsExpired(now time.Time, validity time.Duration) bool {
	return s.Status == SessionEnded || now.After(s.ExpiresAt(validity))
}

// AttendanceRecord 点名记录表 — 对应 attendance_records
//
// 不变式：每个 (session_id, student_id) 恰好一条记录，
// 由唯一约束 uq_attendance_records_session_student 在存储层保证。
type AttendanceRecord struct {
	RecordID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	SessionID string     `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentID string     `gorm:"type:uuid;not null"                             json:"student_id"`
	Status    string     `gorm:"type:varchar(10);not null;default:'present'"    json:"status"` // present | late | excused | sick | absent
	Source    string     `gorm:"type:varchar(10);not null;default:'auto'"       json:"source"` // auto | manual
	ScanTime  *time.Time `json:"scan_time,omitempty"` // 手动录入时为 NULL
	BaseModel

	// 关联
	Session *AttendanceSession `gorm:"foreignKey:SessionID;references:SessionID" json:"session,omitempty"`
	Student *User              `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
