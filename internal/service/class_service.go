package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
)

// ── 班级/科目模块业务错误 ──

var (
	ErrClassNotFound   = errors.New("班级不存在")
	ErrSubjectNotFound = errors.New("科目不存在")
	ErrMemberExists    = errors.New("该学生已在班级中")
	ErrMemberNotFound  = errors.New("该学生不在班级中")
	ErrNotAStudent     = errors.New("只能将学生角色加入班级")
)

// ClassService 班级与科目管理业务接口
type ClassService interface {
	// ── 班级 ──
	Create(ctx context.Context, operatorID string, req *dto.CreateClassRequest) (*dto.ClassResponse, error)
	GetByID(ctx context.Context, classID string) (*dto.ClassResponse, error)
	List(ctx context.Context, page *dto.PaginationRequest) ([]dto.ClassResponse, int64, error)
	Update(ctx context.Context, operatorID, classID string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error)
	Delete(ctx context.Context, classID string) error

	// ── 班级成员 ──
	AddMember(ctx context.Context, classID string, req *dto.AddMemberRequest) error
	RemoveMember(ctx context.Context, classID, studentID string) error
	ListMembers(ctx context.Context, classID string) ([]dto.ClassMemberResponse, error)

	// ── 科目 ──
	CreateSubject(ctx context.Context, operatorID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error)
	DeleteSubject(ctx context.Context, subjectID string) error
}

type classService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, logger *zap.Logger) ClassService {
	return &classService{repo: repo, logger: logger}
}

// ── 班级 ──

func (s *classService) Create(ctx context.Context, operatorID string, req *dto.CreateClassRequest) (*dto.ClassResponse, error) {
	class := &model.Class{
		Code:         req.Code,
		Name:         req.Name,
		Grade:        req.Grade,
		AcademicYear: req.AcademicYear,
		TeacherID:    req.TeacherID,
	}
	class.CreatedBy = &operatorID
	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("创建班级失败", zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, class.ClassID)
}

func (s *classService) GetByID(ctx context.Context, classID string) (*dto.ClassResponse, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, err
	}

	count, err := s.repo.Class.CountMembers(ctx, classID)
	if err != nil {
		s.logger.Error("统计班级成员失败", zap.Error(err))
		return nil, err
	}

	resp := toClassResponse(class, int(count))
	return &resp, nil
}

func (s *classService) List(ctx context.Context, page *dto.PaginationRequest) ([]dto.ClassResponse, int64, error) {
	classes, total, err := s.repo.Class.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		count, err := s.repo.Class.CountMembers(ctx, classes[i].ClassID)
		if err != nil {
			s.logger.Error("统计班级成员失败", zap.Error(err))
			return nil, 0, err
		}
		resp = append(resp, toClassResponse(&classes[i], int(count)))
	}
	return resp, total, nil
}

func (s *classService) Update(ctx context.Context, operatorID, classID string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Grade != nil {
		class.Grade = *req.Grade
	}
	if req.TeacherID != nil {
		class.TeacherID = req.TeacherID
	}
	class.UpdatedBy = &operatorID

	if err := s.repo.Class.Update(ctx, class); err != nil {
		s.logger.Error("更新班级失败", zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, classID)
}

func (s *classService) Delete(ctx context.Context, classID string) error {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}
	if err := s.repo.Class.Delete(ctx, classID); err != nil {
		s.logger.Error("删除班级失败", zap.Error(err))
		return err
	}
	return nil
}

// ── 班级成员 ──

func (s *classService) AddMember(ctx context.Context, classID string, req *dto.AddMemberRequest) error {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	student, err := s.repo.User.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询学生失败", zap.Error(err))
		return err
	}
	if student.Role != model.RoleStudent {
		return ErrNotAStudent
	}

	exists, err := s.repo.Class.IsMember(ctx, classID, req.StudentID)
	if err != nil {
		s.logger.Error("查询班级成员失败", zap.Error(err))
		return err
	}
	if exists {
		return ErrMemberExists
	}

	member := &model.ClassMember{
		ClassID:   classID,
		StudentID: req.StudentID,
		JoinedAt:  time.Now(),
	}
	if err := s.repo.Class.AddMember(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMemberExists
		}
		s.logger.Error("添加班级成员失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *classService) RemoveMember(ctx context.Context, classID, studentID string) error {
	exists, err := s.repo.Class.IsMember(ctx, classID, studentID)
	if err != nil {
		s.logger.Error("查询班级成员失败", zap.Error(err))
		return err
	}
	if !exists {
		return ErrMemberNotFound
	}
	return s.repo.Class.RemoveMember(ctx, classID, studentID)
}

func (s *classService) ListMembers(ctx context.Context, classID string) ([]dto.ClassMemberResponse, error) {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	members, err := s.repo.Class.ListMembers(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级成员失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.ClassMemberResponse, 0, len(members))
	for _, m := range members {
		item := dto.ClassMemberResponse{
			StudentID: m.StudentID,
			JoinedAt:  m.JoinedAt.Format(time.RFC3339),
		}
		if m.Student != nil {
			item.Name = m.Student.Name
			item.NIS = m.Student.NIS
			item.Email = m.Student.Email
		}
		resp = append(resp, item)
	}
	return resp, nil
}

// ── 科目 ──

func (s *classService) CreateSubject(ctx context.Context, operatorID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	subject := &model.Subject{
		Code:      req.Code,
		Name:      req.Name,
		TeacherID: req.TeacherID,
		IsActive:  true,
	}
	subject.CreatedBy = &operatorID
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}

	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *classService) ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		resp = append(resp, toSubjectResponse(&subjects[i]))
	}
	return resp, nil
}

func (s *classService) DeleteSubject(ctx context.Context, subjectID string) error {
	if _, err := s.repo.Subject.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}
	return s.repo.Subject.Delete(ctx, subjectID)
}

// ── 辅助转换 ──

func toClassResponse(c *model.Class, memberCount int) dto.ClassResponse {
	resp := dto.ClassResponse{
		ID:           c.ClassID,
		Code:         c.Code,
		Name:         c.Name,
		Grade:        c.Grade,
		AcademicYear: c.AcademicYear,
		TeacherID:    c.TeacherID,
		MemberCount:  memberCount,
	}
	if c.Teacher != nil {
		resp.TeacherName = c.Teacher.Name
	}
	return resp
}

func toSubjectResponse(sub *model.Subject) dto.SubjectResponse {
	resp := dto.SubjectResponse{
		ID:        sub.SubjectID,
		Code:      sub.Code,
		Name:      sub.Name,
		TeacherID: sub.TeacherID,
		IsActive:  sub.IsActive,
	}
	if sub.Teacher != nil {
		resp.TeacherName = sub.Teacher.Name
	}
	return resp
}
