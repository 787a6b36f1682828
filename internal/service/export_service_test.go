package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
)

func TestExportSessionReport_Success(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	session := startSessionAt(env, "tok-exp", start)

	scan := start.Add(5 * time.Minute)
	env.attRepo.CreateIfAbsent(context.Background(), &model.AttendanceRecord{
		SessionID: session.SessionID,
		StudentID: env.student.UserID,
		Status:    model.AttendancePresent,
		Source:    model.SourceAuto,
		ScanTime:  &scan,
	})

	svc := NewExportService(env.repo, zap.NewNop())
	buf, filename, err := svc.ExportSessionReport(context.Background(), env.teacher.UserID, session.SessionID)
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("导出内容不应为空")
	}
	if filename == "" {
		t.Error("建议文件名不应为空")
	}

	// 验证生成的文件可被 excelize 读回
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("出勤汇总")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 1 名学生
	if len(rows) < 3 {
		t.Errorf("期望至少 3 行，实际 %d 行", len(rows))
	}
}

func TestExportClassRecap_Success(t *testing.T) {
	env := newTestEnv()
	month := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// 当月两个已结束会话：一次出勤，一次未签到
	s1 := startSessionAt(env, "tok-r1", month.AddDate(0, 0, 2).Add(8*time.Hour))
	env.sessRepo.MarkEnded(context.Background(), s1.SessionID, s1.StartTime.Add(time.Hour), nil)
	scan := s1.StartTime.Add(3 * time.Minute)
	env.attRepo.CreateIfAbsent(context.Background(), &model.AttendanceRecord{
		SessionID: s1.SessionID,
		StudentID: env.student.UserID,
		Status:    model.AttendancePresent,
		Source:    model.SourceAuto,
		ScanTime:  &scan,
	})
	s2 := startSessionAt(env, "tok-r2", month.AddDate(0, 0, 9).Add(8*time.Hour))
	env.sessRepo.MarkEnded(context.Background(), s2.SessionID, s2.StartTime.Add(time.Hour), nil)

	svc := NewExportService(env.repo, zap.NewNop())
	buf, filename, err := svc.ExportClassRecap(context.Background(), env.class.ClassID, month)
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename == "" {
		t.Error("建议文件名不应为空")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("月度汇总")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 1 名学生
	if len(rows) < 3 {
		t.Fatalf("期望至少 3 行，实际 %d 行", len(rows))
	}
	// 学生行：两列会话 + 出勤率 50.0%
	studentRow := rows[2]
	if got := studentRow[len(studentRow)-1]; got != "50.0%" {
		t.Errorf("期望出勤率 50.0%%，实际 %s", got)
	}
}

func TestExportClassRecap_NoSessions(t *testing.T) {
	env := newTestEnv()
	month := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	svc := NewExportService(env.repo, zap.NewNop())
	_, _, err := svc.ExportClassRecap(context.Background(), env.class.ClassID, month)
	if !errors.Is(err, ErrExportNoSessions) {
		t.Errorf("期望 ErrExportNoSessions，实际: %v", err)
	}
}

func TestExportSessionReport_NotOwner(t *testing.T) {
	env := newTestEnv()
	session := startSessionAt(env, "tok-exp", time.Now())

	svc := NewExportService(env.repo, zap.NewNop())
	_, _, err := svc.ExportSessionReport(context.Background(), "other-teacher", session.SessionID)
	if !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("期望 ErrNotSessionOwner，实际: %v", err)
	}
}

func TestExportSessionReport_EmptyRoster(t *testing.T) {
	env := newTestEnv()
	env.classRepo.members[env.class.ClassID] = nil
	session := startSessionAt(env, "tok-exp", time.Now())

	svc := NewExportService(env.repo, zap.NewNop())
	_, _, err := svc.ExportSessionReport(context.Background(), env.teacher.UserID, session.SessionID)
	if !errors.Is(err, ErrExportEmptyRoster) {
		t.Errorf("期望 ErrExportEmptyRoster，实际: %v", err)
	}
}
