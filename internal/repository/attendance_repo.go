package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
)

// StatusCount 按状态聚合的记录数
type StatusCount struct {
	Status string
	Count  int64
}

// AttendanceRepository 点名记录数据访问接口
//
// 幂等约定：
//   - CreateIfAbsent 依赖 (session_id, student_id) 唯一约束做 INSERT ... ON CONFLICT
//     DO NOTHING，返回值指示本次调用是否真正落库。并发重复扫码恰好一条成功。
//   - Upsert 同一约束上 DO UPDATE，手动录入对已有记录是覆盖而非追加。
type AttendanceRepository interface {
	CreateIfAbsent(ctx context.Context, record *model.AttendanceRecord) (bool, error)
	Upsert(ctx context.Context, record *model.AttendanceRecord) error
	GetBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, since *time.Time, limit int) ([]model.AttendanceRecord, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
	CountByStudentSince(ctx context.Context, studentID string, since time.Time) ([]StatusCount, error)
}

// attendanceRepo AttendanceRepository 的 GORM 实现
type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

// CreateIfAbsent 幂等写入：已存在同 (session_id, student_id) 记录时静默跳过。
// 返回 true 表示本次插入成功，false 表示记录已存在。
func (r *attendanceRepo) CreateIfAbsent(ctx context.Context, record *model.AttendanceRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Upsert 写入或覆盖记录。冲突时更新状态与来源，scan_time 一并覆盖
// （手动录入传 NULL，即抹去原扫码时间）。
func (r *attendanceRepo) Upsert(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "source", "scan_time", "updated_at", "updated_by"}),
		}).
		Create(record).Error
}

func (r *attendanceRepo) GetBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, since *time.Time, limit int) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	db := r.db.WithContext(ctx).
		Preload("Session").
		Preload("Session.Class").
		Preload("Session.Subject").
		Preload("Session.Teacher").
		Where("student_id = ?", studentID)
	if since != nil {
		db = db.Joins("JOIN attendance_sessions s ON s.session_id = attendance_records.session_id").
			Where("s.start_time >= ?", *since)
	}
	err := db.Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// CountByStudentSince 按状态统计学生在 since 之后的记录数（以会话开始时间为准）
func (r *attendanceRepo) CountByStudentSince(ctx context.Context, studentID string, since time.Time) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Select("attendance_records.status AS status, COUNT(*) AS count").
		Joins("JOIN attendance_sessions s ON s.session_id = attendance_records.session_id").
		Where("attendance_records.student_id = ? AND s.start_time >= ?", studentID, since).
		Group("attendance_records.status").
		Find(&counts).Error
	return counts, err
}
