package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/model"
)

// sampleICS 每周一 08:00-09:30 数学、周三 10:00-11:30 物理
const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Timetable//EN
BEGIN:VEVENT
UID:lesson-1@test
SUMMARY:Matematika
LOCATION:R-101
DTSTART:20260907T080000
DTEND:20260907T093000
RRULE:FREQ=WEEKLY;BYDAY=MO
END:VEVENT
BEGIN:VEVENT
UID:lesson-2@test
SUMMARY:Fisika
DTSTART:20260909T100000
DTEND:20260909T113000
RRULE:FREQ=WEEKLY;BYDAY=WE
END:VEVENT
BEGIN:VEVENT
UID:lesson-1-dup@test
SUMMARY:Matematika
LOCATION:R-101
DTSTART:20260914T080000
DTEND:20260914T093000
END:VEVENT
END:VCALENDAR
`

func TestParseICSLessons(t *testing.T) {
	events, err := ParseICSLessons(strings.NewReader(sampleICS))
	if err != nil {
		t.Fatalf("解析应成功: %v", err)
	}
	// 重复的 Matematika 事件应被合并
	if len(events) != 2 {
		t.Fatalf("期望 2 个去重后事件，实际 %d 个", len(events))
	}

	math := events[0]
	if math.Summary != "Matematika" {
		t.Errorf("期望第一个事件为 Matematika，实际 %s", math.Summary)
	}
	if math.DayOfWeek != 1 {
		t.Errorf("2026-09-07 是周一，期望 day_of_week=1，实际 %d", math.DayOfWeek)
	}
	if math.StartTime != "08:00" || math.EndTime != "09:30" {
		t.Errorf("期望 08:00-09:30，实际 %s-%s", math.StartTime, math.EndTime)
	}
	if math.Location != "R-101" {
		t.Errorf("期望教室 R-101，实际 %s", math.Location)
	}

	fisika := events[1]
	if fisika.DayOfWeek != 3 {
		t.Errorf("2026-09-09 是周三，期望 day_of_week=3，实际 %d", fisika.DayOfWeek)
	}
}

func TestParseICSLessons_Garbage(t *testing.T) {
	if _, err := ParseICSLessons(strings.NewReader("not an ics file")); err == nil {
		t.Error("非法内容应返回错误")
	}
}

func TestImportICS_MatchesSubjects(t *testing.T) {
	env := newTestEnv()
	svc := NewScheduleService(env.cfg, env.repo, zap.NewNop())

	// 只登记 Matematika 科目；Fisika 无匹配
	env.repo.Subject.Create(context.Background(), &model.Subject{
		SubjectID: "subj-mat", Code: "MAT", Name: "Matematika", IsActive: true,
	})

	resp, err := svc.ImportICS(context.Background(), "admin-1", &dto.ImportICSRequest{
		ClassID: env.class.ClassID,
		Content: sampleICS,
	})
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.Imported != 2 {
		t.Errorf("期望导入 2 条，实际 %d", resp.Imported)
	}
	if resp.Skipped != 0 {
		t.Errorf("期望跳过 0 条，实际 %d", resp.Skipped)
	}

	var matched, unmatched int
	for _, item := range resp.Items {
		if item.SubjectID != nil && *item.SubjectID == "subj-mat" {
			matched++
		} else if item.SubjectID == nil {
			unmatched++
		}
	}
	if matched != 1 || unmatched != 1 {
		t.Errorf("期望 1 条匹配科目、1 条无科目，实际 matched=%d unmatched=%d", matched, unmatched)
	}
}

func TestImportICS_SkipsExistingSlots(t *testing.T) {
	env := newTestEnv()
	svc := NewScheduleService(env.cfg, env.repo, zap.NewNop())

	// 周一 08:00 已有课
	env.repo.Schedule.Create(context.Background(), &model.ClassSchedule{
		ClassID:   env.class.ClassID,
		DayOfWeek: 1,
		StartTime: "08:00",
		EndTime:   "09:30",
	})

	resp, err := svc.ImportICS(context.Background(), "admin-1", &dto.ImportICSRequest{
		ClassID: env.class.ClassID,
		Content: sampleICS,
	})
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.Imported != 1 {
		t.Errorf("冲突时段应跳过，期望导入 1 条，实际 %d", resp.Imported)
	}
	if resp.Skipped != 1 {
		t.Errorf("期望跳过 1 条，实际 %d", resp.Skipped)
	}
}

func TestImportICS_FeatureDisabled(t *testing.T) {
	env := newTestEnv()
	env.cfg.Feature.ICSImportEnabled = false
	svc := NewScheduleService(env.cfg, env.repo, zap.NewNop())

	_, err := svc.ImportICS(context.Background(), "admin-1", &dto.ImportICSRequest{
		ClassID: env.class.ClassID,
		Content: sampleICS,
	})
	if !errors.Is(err, ErrICSImportDisabled) {
		t.Errorf("期望 ErrICSImportDisabled，实际: %v", err)
	}
}

func TestImportICS_MissingSource(t *testing.T) {
	env := newTestEnv()
	svc := NewScheduleService(env.cfg, env.repo, zap.NewNop())

	_, err := svc.ImportICS(context.Background(), "admin-1", &dto.ImportICSRequest{
		ClassID: env.class.ClassID,
	})
	if !errors.Is(err, ErrICSSourceMissing) {
		t.Errorf("期望 ErrICSSourceMissing，实际: %v", err)
	}
}
