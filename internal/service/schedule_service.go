package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/config"
	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
)

// ── 课程表模块业务错误 ──

var (
	ErrScheduleNotFound  = errors.New("课程表条目不存在")
	ErrICSImportDisabled = errors.New("ICS 导入功能未启用")
	ErrICSSourceMissing  = errors.New("需要提供 ICS 内容或 URL")
)

// ScheduleService 课程表业务接口
type ScheduleService interface {
	Create(ctx context.Context, operatorID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	ListByClass(ctx context.Context, classID string) ([]dto.ScheduleResponse, error)
	Delete(ctx context.Context, scheduleID string) error
	ImportICS(ctx context.Context, operatorID string, req *dto.ImportICSRequest) (*dto.ImportICSResponse, error)
}

type scheduleService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{cfg: cfg, repo: repo, logger: logger}
}

func (s *scheduleService) Create(ctx context.Context, operatorID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if _, err := s.repo.Class.GetByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, err
	}

	schedule := &model.ClassSchedule{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
	}
	schedule.CreatedBy = &operatorID
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("创建课程表条目失败", zap.Error(err))
		return nil, err
	}

	resp := toScheduleResponse(schedule)
	return &resp, nil
}

func (s *scheduleService) ListByClass(ctx context.Context, classID string) ([]dto.ScheduleResponse, error) {
	schedules, err := s.repo.Schedule.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询课程表失败", zap.Error(err))
		return nil, err
	}

	resp := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		resp = append(resp, toScheduleResponse(&schedules[i]))
	}
	return resp, nil
}

func (s *scheduleService) Delete(ctx context.Context, scheduleID string) error {
	if _, err := s.repo.Schedule.GetByID(ctx, scheduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	return s.repo.Schedule.Delete(ctx, scheduleID)
}

// ═══════════════════════════════════════════════════════════
// ImportICS — 从 iCalendar 导入课程表
// ═══════════════════════════════════════════════════════════
//
// 匹配规则：
//   - VEVENT 的 SUMMARY 按名称（不区分大小写）匹配已有科目；匹配不到按无科目导入
//   - 与已有条目同 day+start_time 的事件跳过，避免重复导入

func (s *scheduleService) ImportICS(ctx context.Context, operatorID string, req *dto.ImportICSRequest) (*dto.ImportICSResponse, error) {
	if !s.cfg.Feature.ICSImportEnabled {
		return nil, ErrICSImportDisabled
	}

	if _, err := s.repo.Class.GetByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, err
	}

	// 1. 内容优先，其次 URL
	var events []parsedLessonEvent
	switch {
	case req.Content != "":
		parsed, err := ParseICSLessons(strings.NewReader(req.Content))
		if err != nil {
			return nil, err
		}
		events = parsed
	case req.URL != "":
		body, err := FetchICSContent(req.URL)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		parsed, err := ParseICSLessons(body)
		if err != nil {
			return nil, err
		}
		events = parsed
	default:
		return nil, ErrICSSourceMissing
	}

	// 2. 科目名称索引
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.Error(err))
		return nil, err
	}
	subjectByName := make(map[string]string, len(subjects))
	for i := range subjects {
		subjectByName[strings.ToLower(subjects[i].Name)] = subjects[i].SubjectID
	}

	// 3. 已有条目索引（day+start 去重）
	existing, err := s.repo.Schedule.ListByClass(ctx, req.ClassID)
	if err != nil {
		s.logger.Error("查询课程表失败", zap.Error(err))
		return nil, err
	}
	occupied := make(map[string]bool, len(existing))
	for _, e := range existing {
		occupied[slotKey(e.DayOfWeek, e.StartTime)] = true
	}

	// 4. 逐事件转换
	var toImport []model.ClassSchedule
	skipped := 0
	for _, evt := range events {
		if occupied[slotKey(evt.DayOfWeek, evt.StartTime)] {
			skipped++
			continue
		}
		occupied[slotKey(evt.DayOfWeek, evt.StartTime)] = true

		schedule := model.ClassSchedule{
			ClassID:   req.ClassID,
			DayOfWeek: evt.DayOfWeek,
			StartTime: evt.StartTime,
			EndTime:   evt.EndTime,
			Room:      evt.Location,
		}
		if id, ok := subjectByName[strings.ToLower(evt.Summary)]; ok {
			subjectID := id
			schedule.SubjectID = &subjectID
		}
		schedule.CreatedBy = &operatorID
		toImport = append(toImport, schedule)
	}

	// 5. 批量落库
	if len(toImport) > 0 {
		if err := s.repo.Schedule.BatchCreate(ctx, toImport); err != nil {
			s.logger.Error("批量导入课程表失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("ICS 课程表导入完成",
		zap.String("class_id", req.ClassID),
		zap.Int("imported", len(toImport)),
		zap.Int("skipped", skipped))

	items := make([]dto.ScheduleResponse, 0, len(toImport))
	for i := range toImport {
		items = append(items, toScheduleResponse(&toImport[i]))
	}
	return &dto.ImportICSResponse{
		Imported: len(toImport),
		Skipped:  skipped,
		Items:    items,
	}, nil
}

func slotKey(dayOfWeek int, startTime string) string {
	return fmt.Sprintf("%d@%s", dayOfWeek, startTime)
}

func toScheduleResponse(sc *model.ClassSchedule) dto.ScheduleResponse {
	resp := dto.ScheduleResponse{
		ID:        sc.ClassScheduleID,
		ClassID:   sc.ClassID,
		SubjectID: sc.SubjectID,
		DayOfWeek: sc.DayOfWeek,
		StartTime: sc.StartTime,
		EndTime:   sc.EndTime,
		Room:      sc.Room,
	}
	if sc.Subject != nil {
		resp.SubjectName = sc.Subject.Name
	}
	return resp
}
