package model

import "time"

// ── 审计动作常量 ──

const (
	AuditSessionStart   = "session.start"
	AuditSessionEnd     = "session.end"
	AuditManualOverride = "attendance.manual_override"
)

// AuditLog 审计日志表 — 对应 audit_logs（纯追加，不更新）
type AuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_log_id"`
	ActorID    *string   `gorm:"type:uuid"                                      json:"actor_id,omitempty"`
	Action     string    `gorm:"type:varchar(50);not null"                      json:"action"`
	Entity     string    `gorm:"type:varchar(50);not null"                      json:"entity"`
	EntityID   string    `gorm:"type:uuid;not null"                             json:"entity_id"`
	Payload    JSONMap   `gorm:"type:jsonb;not null;default:'{}'"               json:"payload"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }
