package service

import (
	"go.uber.org/zap"

	"github.com/Christine-samola/Sistem-presensi/config"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
	"github.com/Christine-samola/Sistem-presensi/pkg/jwt"
	"github.com/Christine-samola/Sistem-presensi/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Class      ClassService
	Schedule   ScheduleService
	Session    SessionService
	Attendance AttendanceService
	Export     ExportService
}

// NewService 创建 Service 聚合
// redisClient 可为 nil（降级运行：登出不再使 Token 即时失效）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, redisClient, logger),
		User:       NewUserService(repo, logger),
		Class:      NewClassService(repo, logger),
		Schedule:   NewScheduleService(cfg, repo, logger),
		Session:    NewSessionService(cfg, repo, logger),
		Attendance: NewAttendanceService(cfg, repo, logger),
		Export:     NewExportService(repo, logger),
	}
}
