package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为每周固定课程条目。
//
// 设计决策：
//   - DTSTART/DTEND 确定星期几与上下课时间
//   - 课程表按周循环，RRULE 的周次信息不展开，仅取事件模板
//   - 合并同 summary+day+time 的重复事件（导出工具常以多个单次事件表示同一节课）
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	jakartaTimezone = "Asia/Jakarta"
)

// parsedLessonEvent ICS 解析中间结构
type parsedLessonEvent struct {
	Summary   string
	DayOfWeek int // 1=Monday … 7=Sunday
	StartTime string
	EndTime   string
	Location  string
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICSLessons 解析 ICS 内容为去重后的每周课程事件列表
func ParseICSLessons(reader io.Reader) ([]parsedLessonEvent, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	loc, _ := time.LoadLocation(jakartaTimezone)

	seen := make(map[string]bool)
	var events []parsedLessonEvent
	for _, comp := range cal.Events() {
		evt, ok := parseLessonVEvent(comp, loc)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s|%d|%s|%s", evt.Summary, evt.DayOfWeek, evt.StartTime, evt.EndTime)
		if seen[key] {
			continue
		}
		seen[key] = true
		events = append(events, evt)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].DayOfWeek != events[j].DayOfWeek {
			return events[i].DayOfWeek < events[j].DayOfWeek
		}
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

// parseLessonVEvent 解析单个 VEVENT 组件
func parseLessonVEvent(evt *ics.VEvent, loc *time.Location) (parsedLessonEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedLessonEvent{}, false
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedLessonEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		// 无 DTEND 时默认一节课 45 分钟
		dtEnd = dtStart.Add(45 * time.Minute)
	}

	location := ""
	if prop := evt.GetProperty(ics.ComponentPropertyLocation); prop != nil {
		location = strings.TrimSpace(prop.Value)
	}

	return parsedLessonEvent{
		Summary:   strings.TrimSpace(summary.Value),
		DayOfWeek: goWeekdayToISO(dtStart.Weekday()),
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
		Location:  location,
	}, true
}

// parseICSDateTime 解析 ICS 日期时间属性（支持常见的三种格式）
func parseICSDateTime(evt *ics.VEvent, prop ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	p := evt.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("缺少属性 %s", prop)
	}
	value := p.Value

	// UTC 格式: 20260105T013000Z
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	// 本地时间格式: 20260105T083000
	if t, err := time.ParseInLocation("20060102T150405", value, loc); err == nil {
		return t, nil
	}
	// 纯日期格式: 20260105
	return time.ParseInLocation("20060102", value, loc)
}

// goWeekdayToISO time.Weekday (Sunday=0) → ISO (Monday=1 … Sunday=7)
func goWeekdayToISO(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
