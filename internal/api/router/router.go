package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Christine-samola/Sistem-presensi/config"
	"github.com/Christine-samola/Sistem-presensi/internal/api/handler"
	"github.com/Christine-samola/Sistem-presensi/internal/api/middleware"
	"github.com/Christine-samola/Sistem-presensi/pkg/jwt"
	"github.com/Christine-samola/Sistem-presensi/pkg/redis"
)

// maxBodyBytes 请求体上限，点名接口均为小 JSON，ICS 导入正文最大
const maxBodyBytes = 6 << 20 // 6MB

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块（管理员）
			users := authorized.Group("/users", middleware.RoleAuth("admin"))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.PUT("/:id/password", h.User.ResetPassword)
			}

			// 班级模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.GET("/:id", h.Class.GetClass)
				classes.GET("/:id/members", h.Class.ListMembers)
				classes.GET("/:id/export", middleware.RoleAuth("admin", "teacher"), h.Export.ExportClassRecap)
				classes.POST("", middleware.RoleAuth("admin"), h.Class.CreateClass)
				classes.PUT("/:id", middleware.RoleAuth("admin"), h.Class.UpdateClass)
				classes.DELETE("/:id", middleware.RoleAuth("admin"), h.Class.DeleteClass)
				classes.POST("/:id/members", middleware.RoleAuth("admin"), h.Class.AddMember)
				classes.DELETE("/:id/members/:student_id", middleware.RoleAuth("admin"), h.Class.RemoveMember)
			}

			// 科目模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Class.ListSubjects)
				subjects.POST("", middleware.RoleAuth("admin"), h.Class.CreateSubject)
				subjects.DELETE("/:id", middleware.RoleAuth("admin"), h.Class.DeleteSubject)
			}

			// 课程表模块
			schedules := authorized.Group("/schedules")
			{
				schedules.GET("", h.Schedule.ListSchedules)
				schedules.POST("", middleware.RoleAuth("admin"), h.Schedule.CreateSchedule)
				schedules.DELETE("/:id", middleware.RoleAuth("admin"), h.Schedule.DeleteSchedule)
				schedules.POST("/import-ics", middleware.RoleAuth("admin"), h.Schedule.ImportICS)
			}

			// 点名会话模块（教师）
			sessions := authorized.Group("/sessions", middleware.RoleAuth("teacher"))
			{
				sessions.POST("", h.Session.StartSession)
				sessions.GET("/active", h.Session.GetActiveSession)
				sessions.GET("/history", h.Session.SessionHistory)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.PUT("/:id/end", h.Session.EndSession)
				sessions.GET("/:id/roster", h.Attendance.Roster)
				sessions.PUT("/:id/records", h.Attendance.SetManual)
				sessions.GET("/:id/export", h.Export.ExportSessionReport)
			}

			// 点名记录模块（学生）
			attendance := authorized.Group("/attendance", middleware.RoleAuth("student"))
			{
				attendance.POST("/scan",
					middleware.RateLimit(rdb, cfg.Attendance.ScanRateLimit, time.Minute),
					h.Attendance.Scan)
				attendance.GET("/stats", h.Attendance.StudentStats)
				attendance.GET("/history", h.Attendance.StudentHistory)
			}
		}
	}

	return r
}
