package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
)

// ScheduleRepository 课程表数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.ClassSchedule) error
	BatchCreate(ctx context.Context, schedules []model.ClassSchedule) error
	GetByID(ctx context.Context, id string) (*model.ClassSchedule, error)
	ListByClass(ctx context.Context, classID string) ([]model.ClassSchedule, error)
	Delete(ctx context.Context, id string) error
	DeleteByClass(ctx context.Context, classID string) error
}

// scheduleRepo ScheduleRepository 的 GORM 实现
type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.ClassSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) BatchCreate(ctx context.Context, schedules []model.ClassSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&schedules).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.ClassSchedule, error) {
	var schedule model.ClassSchedule
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("class_schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) ListByClass(ctx context.Context, classID string) ([]model.ClassSchedule, error) {
	var schedules []model.ClassSchedule
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("class_id = ?", classID).
		Order("day_of_week ASC, start_time ASC").
		Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("class_schedule_id = ?", id).
		Delete(&model.ClassSchedule{}).Error
}

func (r *scheduleRepo) DeleteByClass(ctx context.Context, classID string) error {
	return r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&model.ClassSchedule{}).Error
}
