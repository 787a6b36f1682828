package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/config"
	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
	pkgerrors "github.com/Christine-samola/Sistem-presensi/pkg/errors"
)

// ── 扫码/点名记录模块业务错误 ──

var (
	ErrTokenNotFound = errors.New("点名令牌无效")
	ErrTokenExpired  = errors.New("点名会话已结束或令牌已过期")
	ErrNotEnrolled   = errors.New("学生不在该班级名册中")
	ErrInvalidStatus = errors.New("非法的出勤状态")
)

// AttendanceService 扫码签到与点名记录业务接口
//
// 扫码提交语义：
//   - 令牌是唯一凭据，QR 与手动输入走同一条路径
//   - 同一学生对同一会话重复提交按成功处理（already_scanned），
//     底层恰好一条记录，由唯一约束保证
//   - 状态由服务端时钟决定：宽限期内 present，之后 late
//
// 手动录入语义：
//   - 仅限会话归属教师，会话结束后不可再改
//   - 对已有记录是整体覆盖（含来源与扫码时间）
type AttendanceService interface {
	Scan(ctx context.Context, studentID string, req *dto.ScanRequest) (*dto.ScanResponse, error)
	SetManual(ctx context.Context, teacherID, sessionID string, req *dto.ManualOverrideRequest) (*dto.RecordResponse, error)
	Roster(ctx context.Context, teacherID, sessionID string) ([]dto.RosterEntry, error)
	StudentStats(ctx context.Context, studentID string) (*dto.StudentStatsResponse, error)
	StudentHistory(ctx context.Context, studentID string, req *dto.SessionHistoryRequest) ([]dto.StudentHistoryItem, error)
}

type attendanceService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time // 测试注入
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// Scan — 学生扫码签到
// ═══════════════════════════════════════════════════════════

func (s *attendanceService) Scan(ctx context.Context, studentID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
	// 1. 解析令牌
	session, err := s.resolveToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	// 2. 名册校验
	enrolled, err := s.repo.Class.IsMember(ctx, session.ClassID, studentID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	// 3. 按服务端时钟定状态：宽限期内 present，之后 late
	now := s.now()
	status := model.AttendancePresent
	if now.After(session.StartTime.Add(s.cfg.Attendance.GracePeriod)) {
		status = model.AttendanceLate
	}

	// 4. 幂等写入：重复扫码不报错，返回既有记录
	record := &model.AttendanceRecord{
		SessionID: session.SessionID,
		StudentID: studentID,
		Status:    status,
		Source:    model.SourceAuto,
		ScanTime:  &now,
	}
	record.CreatedBy = &studentID

	inserted, err := s.repo.Attendance.CreateIfAbsent(ctx, record)
	if err != nil {
		s.logger.Error("写入点名记录失败", zap.Error(err))
		return nil, err
	}

	if !inserted {
		existing, err := s.repo.Attendance.GetBySessionAndStudent(ctx, session.SessionID, studentID)
		if err != nil {
			s.logger.Error("查询既有记录失败", zap.Error(err))
			return nil, err
		}
		record = existing
	} else {
		s.logger.Info("扫码签到成功",
			zap.String("session_id", session.SessionID),
			zap.String("student_id", studentID),
			zap.String("status", status))
	}

	resp := &dto.ScanResponse{
		Record:         toRecordResponse(record),
		AlreadyScanned: !inserted,
	}
	if session.Class != nil {
		resp.ClassName = session.Class.Name
	}
	if session.Subject != nil {
		resp.SubjectName = session.Subject.Name
	}
	if session.Teacher != nil {
		resp.TeacherName = session.Teacher.Name
	}
	return resp, nil
}

// resolveToken 将令牌解析为仍在有效窗口内的活动会话
// 超窗的活动会话在此惰性翻转为 ended
func (s *attendanceService) resolveToken(ctx context.Context, token string) (*model.AttendanceSession, error) {
	session, err := s.repo.Session.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}

	if session.Status == model.SessionEnded {
		return nil, ErrTokenExpired
	}

	if session.IsExpired(s.now(), s.cfg.Attendance.TokenValidity) {
		expiredAt := session.ExpiresAt(s.cfg.Attendance.TokenValidity)
		err := s.repo.Session.MarkEnded(ctx, session.SessionID, expiredAt, nil)
		if err != nil && !errors.Is(err, pkgerrors.ErrStateChanged) {
			s.logger.Error("翻转过期会话失败", zap.Error(err))
			return nil, err
		}
		return nil, ErrTokenExpired
	}

	return session, nil
}

// ═══════════════════════════════════════════════════════════
// SetManual — 教师手动录入/更正
// ═══════════════════════════════════════════════════════════

func (s *attendanceService) SetManual(ctx context.Context, teacherID, sessionID string, req *dto.ManualOverrideRequest) (*dto.RecordResponse, error) {
	if !model.ValidAttendanceStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	// 1. 会话校验：归属与状态
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}
	if session.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	if session.IsExpired(s.now(), s.cfg.Attendance.TokenValidity) {
		return nil, ErrSessionAlreadyEnded
	}

	// 2. 名册校验
	enrolled, err := s.repo.Class.IsMember(ctx, session.ClassID, req.StudentID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	// 3. 覆盖写入：手动录入抹去扫码时间
	record := &model.AttendanceRecord{
		SessionID: sessionID,
		StudentID: req.StudentID,
		Status:    req.Status,
		Source:    model.SourceManual,
		ScanTime:  nil,
	}
	record.CreatedBy = &teacherID
	record.UpdatedBy = &teacherID

	if err := s.repo.Attendance.Upsert(ctx, record); err != nil {
		s.logger.Error("手动录入失败", zap.Error(err))
		return nil, err
	}

	// Upsert 走冲突分支时不回填主键，重新读取
	saved, err := s.repo.Attendance.GetBySessionAndStudent(ctx, sessionID, req.StudentID)
	if err != nil {
		s.logger.Error("查询点名记录失败", zap.Error(err))
		return nil, err
	}

	s.writeAudit(ctx, teacherID, sessionID, req)

	s.logger.Info("手动录入出勤状态",
		zap.String("session_id", sessionID),
		zap.String("student_id", req.StudentID),
		zap.String("status", req.Status))

	resp := toRecordResponse(saved)
	return &resp, nil
}

func (s *attendanceService) writeAudit(ctx context.Context, teacherID, sessionID string, req *dto.ManualOverrideRequest) {
	log := &model.AuditLog{
		ActorID:  &teacherID,
		Action:   model.AuditManualOverride,
		Entity:   "attendance_record",
		EntityID: sessionID,
		Payload: model.JSONMap{
			"student_id": req.StudentID,
			"status":     req.Status,
		},
	}
	if err := s.repo.AuditLog.Create(ctx, log); err != nil {
		s.logger.Warn("写入审计日志失败", zap.Error(err))
	}
}

// ═══════════════════════════════════════════════════════════
// Roster — 会话名册（含实时点名状态）
// ═══════════════════════════════════════════════════════════

func (s *attendanceService) Roster(ctx context.Context, teacherID, sessionID string) ([]dto.RosterEntry, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}
	if session.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}

	members, err := s.repo.Class.ListMembers(ctx, session.ClassID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询点名记录失败", zap.Error(err))
		return nil, err
	}

	byStudent := make(map[string]*model.AttendanceRecord, len(records))
	for i := range records {
		byStudent[records[i].StudentID] = &records[i]
	}

	entries := make([]dto.RosterEntry, 0, len(members))
	for _, m := range members {
		entry := dto.RosterEntry{StudentID: m.StudentID}
		if m.Student != nil {
			entry.Name = m.Student.Name
			entry.NIS = m.Student.NIS
		}
		if rec, ok := byStudent[m.StudentID]; ok {
			entry.Scanned = true
			entry.Status = &rec.Status
			entry.Source = &rec.Source
			if rec.ScanTime != nil {
				t := rec.ScanTime.Format(time.RFC3339)
				entry.ScanTime = &t
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ═══════════════════════════════════════════════════════════
// 学生端 — 统计与历史
// ═══════════════════════════════════════════════════════════

func (s *attendanceService) StudentStats(ctx context.Context, studentID string) (*dto.StudentStatsResponse, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// 当天状态：取当天会话的最新一条记录
	todayStatus := "none"
	todayRecords, err := s.repo.Attendance.ListByStudent(ctx, studentID, &startOfDay, 1)
	if err != nil {
		s.logger.Error("查询当天记录失败", zap.Error(err))
		return nil, err
	}
	if len(todayRecords) > 0 {
		todayStatus = todayRecords[0].Status
	}

	// 当月按状态统计
	counts, err := s.repo.Attendance.CountByStudentSince(ctx, studentID, startOfMonth)
	if err != nil {
		s.logger.Error("统计当月记录失败", zap.Error(err))
		return nil, err
	}
	var present, late int
	for _, c := range counts {
		switch c.Status {
		case model.AttendancePresent:
			present = int(c.Count)
		case model.AttendanceLate:
			late = int(c.Count)
		}
	}

	// 当月应出勤数：所属班级已结束会话总数
	classIDs, err := s.repo.Class.ListClassIDsByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询所属班级失败", zap.Error(err))
		return nil, err
	}
	total, err := s.repo.Session.CountEndedByClassesSince(ctx, classIDs, startOfMonth)
	if err != nil {
		s.logger.Error("统计当月会话失败", zap.Error(err))
		return nil, err
	}

	rate := 0.0
	if total > 0 {
		rate = float64(present+late) / float64(total) * 100
		rate = float64(int(rate*10+0.5)) / 10
	}

	return &dto.StudentStatsResponse{
		TodayStatus:    todayStatus,
		MonthlyPresent: present,
		MonthlyLate:    late,
		MonthlyTotal:   int(total),
		AttendanceRate: rate,
	}, nil
}

func (s *attendanceService) StudentHistory(ctx context.Context, studentID string, req *dto.SessionHistoryRequest) ([]dto.StudentHistoryItem, error) {
	var since *time.Time
	now := s.now()
	switch req.Filter {
	case "month":
		t := now.AddDate(0, -1, 0)
		since = &t
	case "all":
		since = nil
	default: // week
		t := now.AddDate(0, 0, -7)
		since = &t
	}

	records, err := s.repo.Attendance.ListByStudent(ctx, studentID, since, 200)
	if err != nil {
		s.logger.Error("查询出勤历史失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.StudentHistoryItem, 0, len(records))
	for _, r := range records {
		item := dto.StudentHistoryItem{
			RecordID:  r.RecordID,
			SessionID: r.SessionID,
			Status:    r.Status,
			Source:    r.Source,
		}
		if r.ScanTime != nil {
			t := r.ScanTime.Format(time.RFC3339)
			item.ScanTime = &t
		}
		if r.Session != nil {
			item.Date = r.Session.StartTime.Format("2006-01-02")
			if r.Session.Class != nil {
				item.ClassName = r.Session.Class.Name
			}
			if r.Session.Subject != nil {
				item.SubjectName = r.Session.Subject.Name
			}
			if r.Session.Teacher != nil {
				item.TeacherName = r.Session.Teacher.Name
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// toRecordResponse 模型转响应
func toRecordResponse(r *model.AttendanceRecord) dto.RecordResponse {
	resp := dto.RecordResponse{
		ID:        r.RecordID,
		SessionID: r.SessionID,
		StudentID: r.StudentID,
		Status:    r.Status,
		Source:    r.Source,
	}
	if r.ScanTime != nil {
		t := r.ScanTime.Format(time.RFC3339)
		resp.ScanTime = &t
	}
	return resp
}
