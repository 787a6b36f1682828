package model

// ClassSchedule 课程表 — 对应 class_schedules
// 每行表示某班级每周固定的一节课
type ClassSchedule struct {
	ClassScheduleID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_schedule_id"`
	ClassID         string  `gorm:"type:uuid;not null"                             json:"class_id"`
	SubjectID       *string `gorm:"type:uuid"                                      json:"subject_id,omitempty"`
	DayOfWeek       int     `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1=周一 … 7=周日
	StartTime       string  `gorm:"type:varchar(5);not null"                       json:"start_time"`  // "HH:MM"
	EndTime         string  `gorm:"type:varchar(5);not null"                       json:"end_time"`
	Room            string  `gorm:"type:varchar(50)"                               json:"room,omitempty"`
	BaseModel

	// 关联
	Class   *Class   `gorm:"foreignKey:ClassID;references:ClassID"     json:"class,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
}

// TableName 指定表名
func (ClassSchedule) TableName() string { return "class_schedules" }
