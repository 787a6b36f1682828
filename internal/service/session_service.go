package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
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

// ── 点名会话模块业务错误 ──

var (
	ErrSessionAlreadyActive = errors.New("已有正在进行的点名会话，请先结束")
	ErrNoActiveSession      = errors.New("当前没有进行中的点名会话")
	ErrSessionNotFound      = errors.New("点名会话不存在")
	ErrNotSessionOwner      = errors.New("只能操作自己的点名会话")
	ErrSessionAlreadyEnded  = errors.New("点名会话已结束")
)

// tokenBytes 令牌随机字节数；base64url 编码后约 32 字符
const tokenBytes = 24

// SessionService 点名会话业务接口
//
// 会话生命周期：Start → (扫码签到窗口) → End / 惰性过期。
// 每个教师同一时间至多一个活动会话，由存储层部分唯一索引兜底；
// 过期不依赖后台任务，在读路径上惰性翻转（GetActive / 扫码解析时）。
type SessionService interface {
	Start(ctx context.Context, teacherID string, req *dto.StartSessionRequest) (*dto.SessionResponse, error)
	End(ctx context.Context, teacherID, sessionID string) (*dto.SessionResponse, error)
	GetActive(ctx context.Context, teacherID string) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, teacherID, sessionID string) (*dto.SessionResponse, error)
	History(ctx context.Context, teacherID string, req *dto.SessionHistoryRequest) ([]dto.SessionHistoryItem, error)
}

type sessionService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time // 测试注入
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) SessionService {
	return &sessionService{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// generateSessionToken 生成不透明承载令牌（crypto/rand + base64url，无填充）
func generateSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *sessionService) Start(ctx context.Context, teacherID string, req *dto.StartSessionRequest) (*dto.SessionResponse, error) {
	// 1. 校验班级存在
	if _, err := s.repo.Class.GetByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.Error(err))
		return nil, err
	}
	if req.SubjectID != nil {
		if _, err := s.repo.Subject.GetByID(ctx, *req.SubjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSubjectNotFound
			}
			s.logger.Error("查询科目失败", zap.Error(err))
			return nil, err
		}
	}

	// 2. 提前回收已过期的遗留会话，避免唯一索引误拒
	if active, err := s.repo.Session.GetActiveByTeacher(ctx, teacherID); err == nil {
		if !active.IsExpired(s.now(), s.cfg.Attendance.TokenValidity) {
			return nil, ErrSessionAlreadyActive
		}
		if err := s.expireSession(ctx, active); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询活动会话失败", zap.Error(err))
		return nil, err
	}

	// 3. 生成令牌并落库
	token, err := generateSessionToken()
	if err != nil {
		s.logger.Error("生成会话令牌失败", zap.Error(err))
		return nil, err
	}

	session := &model.AttendanceSession{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: teacherID,
		Token:     token,
		Status:    model.SessionActive,
		StartTime: s.now(),
	}
	session.CreatedBy = &teacherID

	if err := s.repo.Session.Create(ctx, session); err != nil {
		// 并发 Start 的兜底：部分唯一索引拒绝第二个活动会话
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSessionAlreadyActive
		}
		s.logger.Error("创建点名会话失败", zap.Error(err))
		return nil, err
	}

	s.writeAudit(ctx, teacherID, model.AuditSessionStart, session.SessionID, model.JSONMap{
		"class_id":   session.ClassID,
		"subject_id": session.SubjectID,
	})

	s.logger.Info("点名会话已开启",
		zap.String("session_id", session.SessionID),
		zap.String("teacher_id", teacherID),
		zap.String("class_id", session.ClassID))

	return s.toResponse(ctx, session)
}

func (s *sessionService) End(ctx context.Context, teacherID, sessionID string) (*dto.SessionResponse, error) {
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

	endTime := s.now()
	if err := s.repo.Session.MarkEnded(ctx, sessionID, endTime, &teacherID); err != nil {
		if errors.Is(err, pkgerrors.ErrStateChanged) {
			return nil, ErrSessionAlreadyEnded
		}
		s.logger.Error("结束会话失败", zap.Error(err))
		return nil, err
	}
	session.Status = model.SessionEnded
	session.EndTime = &endTime

	s.writeAudit(ctx, teacherID, model.AuditSessionEnd, sessionID, model.JSONMap{
		"class_id": session.ClassID,
	})

	s.logger.Info("点名会话已结束",
		zap.String("session_id", sessionID),
		zap.String("teacher_id", teacherID))

	return s.toResponse(ctx, session)
}

func (s *sessionService) GetActive(ctx context.Context, teacherID string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetActiveByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		s.logger.Error("查询活动会话失败", zap.Error(err))
		return nil, err
	}

	// 惰性过期：超出有效窗口的会话在读路径上翻转为 ended
	if session.IsExpired(s.now(), s.cfg.Attendance.TokenValidity) {
		if err := s.expireSession(ctx, session); err != nil {
			return nil, err
		}
		return nil, ErrNoActiveSession
	}

	return s.toResponse(ctx, session)
}

func (s *sessionService) GetByID(ctx context.Context, teacherID, sessionID string) (*dto.SessionResponse, error) {
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
	return s.toResponse(ctx, session)
}

func (s *sessionService) History(ctx context.Context, teacherID string, req *dto.SessionHistoryRequest) ([]dto.SessionHistoryItem, error) {
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

	sessions, err := s.repo.Session.ListEndedByTeacher(ctx, teacherID, since, 200)
	if err != nil {
		s.logger.Error("查询会话历史失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.SessionHistoryItem, 0, len(sessions))
	for i := range sessions {
		item, err := s.toHistoryItem(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// expireSession 惰性翻转过期会话；并发下另一方先翻转视为成功
func (s *sessionService) expireSession(ctx context.Context, session *model.AttendanceSession) error {
	expiredAt := session.ExpiresAt(s.cfg.Attendance.TokenValidity)
	err := s.repo.Session.MarkEnded(ctx, session.SessionID, expiredAt, nil)
	if err != nil && !errors.Is(err, pkgerrors.ErrStateChanged) {
		s.logger.Error("翻转过期会话失败", zap.Error(err))
		return err
	}
	s.logger.Info("会话已按有效窗口过期",
		zap.String("session_id", session.SessionID))
	return nil
}

func (s *sessionService) writeAudit(ctx context.Context, actorID, action, entityID string, payload model.JSONMap) {
	log := &model.AuditLog{
		ActorID:  &actorID,
		Action:   action,
		Entity:   "attendance_session",
		EntityID: entityID,
		Payload:  payload,
	}
	// 审计失败不影响主流程
	if err := s.repo.AuditLog.Create(ctx, log); err != nil {
		s.logger.Warn("写入审计日志失败", zap.Error(err))
	}
}

func (s *sessionService) toResponse(ctx context.Context, session *model.AttendanceSession) (*dto.SessionResponse, error) {
	count, err := s.repo.Attendance.CountBySession(ctx, session.SessionID)
	if err != nil {
		s.logger.Error("统计签到人数失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.SessionResponse{
		ID:           session.SessionID,
		ClassID:      session.ClassID,
		SubjectID:    session.SubjectID,
		TeacherID:    session.TeacherID,
		Token:        session.Token,
		Status:       session.Status,
		StartTime:    session.StartTime.Format(time.RFC3339),
		ExpiresAt:    session.ExpiresAt(s.cfg.Attendance.TokenValidity).Format(time.RFC3339),
		ScannedCount: int(count),
	}
	if session.EndTime != nil {
		t := session.EndTime.Format(time.RFC3339)
		resp.EndTime = &t
	}
	if session.Class != nil {
		resp.ClassName = session.Class.Name
	}
	if session.Subject != nil {
		resp.SubjectName = session.Subject.Name
	}
	return resp, nil
}

func (s *sessionService) toHistoryItem(ctx context.Context, session *model.AttendanceSession) (dto.SessionHistoryItem, error) {
	total, err := s.repo.Class.CountMembers(ctx, session.ClassID)
	if err != nil {
		return dto.SessionHistoryItem{}, err
	}
	records, err := s.repo.Attendance.ListBySession(ctx, session.SessionID)
	if err != nil {
		return dto.SessionHistoryItem{}, err
	}

	present := 0
	for _, r := range records {
		if r.Status == model.AttendancePresent || r.Status == model.AttendanceLate {
			present++
		}
	}
	absent := int(total) - present

	rate := 0.0
	if total > 0 {
		rate = float64(present) / float64(total) * 100
		rate = float64(int(rate*10+0.5)) / 10 // 保留一位小数
	}

	item := dto.SessionHistoryItem{
		ID:             session.SessionID,
		Date:           session.StartTime.Format("2006-01-02"),
		StartTime:      session.StartTime.Format("15:04"),
		TotalStudents:  int(total),
		PresentCount:   present,
		AbsentCount:    absent,
		AttendanceRate: rate,
	}
	if session.EndTime != nil {
		t := session.EndTime.Format("15:04")
		item.EndTime = &t
	}
	if session.Class != nil {
		item.ClassName = session.Class.Name
	}
	if session.Subject != nil {
		item.SubjectName = session.Subject.Name
	}
	return item, nil
}
