package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
	pkgerrors "github.com/Christine-samola/Sistem-presensi/pkg/errors"
)

// SessionRepository 点名会话数据访问接口
//
// 并发约定：
//   - Create 在 (teacher_id) WHERE status='active' 部分唯一索引或 token 唯一索引
//     冲突时返回 gorm.ErrDuplicatedKey（由 TranslateError 保证）
//   - MarkEnded 为条件更新（仅 status='active' 时生效），并发结束/过期翻转
//     只有一个调用方命中，其余得到 pkgerrors.ErrStateChanged
type SessionRepository interface {
	Create(ctx context.Context, session *model.AttendanceSession) error
	GetByID(ctx context.Context, id string) (*model.AttendanceSession, error)
	GetByToken(ctx context.Context, token string) (*model.AttendanceSession, error)
	GetActiveByTeacher(ctx context.Context, teacherID string) (*model.AttendanceSession, error)
	MarkEnded(ctx context.Context, id string, endTime time.Time, updatedBy *string) error
	ListEndedByTeacher(ctx context.Context, teacherID string, since *time.Time, limit int) ([]model.AttendanceSession, error)
	ListEndedByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]model.AttendanceSession, error)
	CountEndedByClassesSince(ctx context.Context, classIDs []string, since time.Time) (int64, error)
}

// sessionRepo SessionRepository 的 GORM 实现
type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.AttendanceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Subject").
		Preload("Teacher").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByToken(ctx context.Context, token string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Subject").
		Preload("Teacher").
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetActiveByTeacher(ctx context.Context, teacherID string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Subject").
		Where("teacher_id = ? AND status = ?", teacherID, model.SessionActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) MarkEnded(ctx context.Context, id string, endTime time.Time, updatedBy *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("session_id = ? AND status = ?", id, model.SessionActive).
		Updates(map[string]interface{}{
			"status":     model.SessionEnded,
			"end_time":   endTime,
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateChanged
	}
	return nil
}

func (r *sessionRepo) ListEndedByTeacher(ctx context.Context, teacherID string, since *time.Time, limit int) ([]model.AttendanceSession, error) {
	var sessions []model.AttendanceSession
	db := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Subject").
		Where("teacher_id = ? AND status = ?", teacherID, model.SessionEnded)
	if since != nil {
		db = db.Where("start_time >= ?", *since)
	}
	err := db.Order("start_time DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListEndedByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]model.AttendanceSession, error) {
	var sessions []model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("class_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			classID, model.SessionEnded, from, to).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) CountEndedByClassesSince(ctx context.Context, classIDs []string, since time.Time) (int64, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("class_id IN ? AND status = ? AND start_time >= ?", classIDs, model.SessionEnded, since).
		Count(&count).Error
	return count, err
}
