package dto

// ── 班级/科目模块 DTO ──

// CreateClassRequest 创建班级请求
type CreateClassRequest struct {
	Code         string  `json:"code"          binding:"required,max=30"`
	Name         string  `json:"name"          binding:"required,max=120"`
	Grade        string  `json:"grade"         binding:"required,oneof=X XI XII"`
	AcademicYear string  `json:"academic_year" binding:"required,max=20"`
	TeacherID    *string `json:"teacher_id"    binding:"omitempty,uuid"`
}

// UpdateClassRequest 更新班级请求
type UpdateClassRequest struct {
	Name      *string `json:"name"       binding:"omitempty,max=120"`
	Grade     *string `json:"grade"      binding:"omitempty,oneof=X XI XII"`
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// AddMemberRequest 添加班级成员请求
type AddMemberRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

// ClassResponse 班级响应
type ClassResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Grade        string  `json:"grade"`
	AcademicYear string  `json:"academic_year"`
	TeacherID    *string `json:"teacher_id,omitempty"`
	TeacherName  string  `json:"teacher_name,omitempty"`
	MemberCount  int     `json:"member_count"`
}

// ClassMemberResponse 班级成员响应
type ClassMemberResponse struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	NIS       string `json:"nis"`
	Email     string `json:"email"`
	JoinedAt  string `json:"joined_at"`
}

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Code      string  `json:"code"       binding:"required,max=20"`
	Name      string  `json:"name"       binding:"required,max=100"`
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// SubjectResponse 科目响应
type SubjectResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	TeacherName string  `json:"teacher_name,omitempty"`
	IsActive    bool    `json:"is_active"`
}
