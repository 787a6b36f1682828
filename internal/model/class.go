package model

import "time"

// Class 班级表 — 对应 classes
type Class struct {
	ClassID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	Code         string  `gorm:"type:varchar(30);not null"                      json:"code"`
	Name         string  `gorm:"type:varchar(120);not null"                     json:"name"`
	Grade        string  `gorm:"type:varchar(10);not null;default:'X'"          json:"grade"` // X | XI | XII
	AcademicYear string  `gorm:"type:varchar(20);not null"                      json:"academic_year"`
	TeacherID    *string `gorm:"type:uuid"                                      json:"teacher_id,omitempty"` // 班主任
	BaseModel

	// 关联
	Teacher *User         `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
	Members []ClassMember `gorm:"foreignKey:ClassID"                     json:"members,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// ClassMember 班级成员表 — 对应 class_members
type ClassMember struct {
	ClassMemberID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_member_id"`
	ClassID       string    `gorm:"type:uuid;not null"                             json:"class_id"`
	StudentID     string    `gorm:"type:uuid;not null"                             json:"student_id"`
	JoinedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"joined_at"`

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (ClassMember) TableName() string { return "class_members" }

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code      string  `gorm:"type:varchar(20);not null"                      json:"code"`
	Name      string  `gorm:"type:varchar(100);not null"                     json:"name"`
	TeacherID *string `gorm:"type:uuid"                                      json:"teacher_id,omitempty"` // 任课教师
	IsActive  bool    `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
