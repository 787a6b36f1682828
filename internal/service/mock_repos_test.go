package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/internal/repository"
	pkgerrors "github.com/Christine-samola/Sistem-presensi/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id / nis / "email:"+email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.NIS
	}
	m.users[user.UserID] = user
	m.users[user.NIS] = user
	if user.Email != "" {
		m.users["email:"+user.Email] = user
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByNIS(_ context.Context, nis string) (*model.User, error) {
	if u, ok := m.users[nis]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	m.users[user.NIS] = user
	if user.Email != "" {
		m.users["email:"+user.Email] = user
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role, search string, offset, limit int) ([]model.User, int64, error) {
	seen := make(map[string]bool)
	var all []model.User
	for _, u := range m.users {
		if seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		if role != "" && u.Role != role {
			continue
		}
		if search != "" && !strings.Contains(u.Name, search) && !strings.Contains(u.NIS, search) {
			continue
		}
		all = append(all, *u)
	}
	total := int64(len(all))
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	if offset > len(all) {
		return nil, total, nil
	}
	return all[offset:end], total, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.Class
	members map[string][]*model.ClassMember // key: class_id
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{
		classes: make(map[string]*model.Class),
		members: make(map[string][]*model.ClassMember),
	}
}

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		class.ClassID = "class-" + class.Code
	}
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) List(_ context.Context, offset, limit int) ([]model.Class, int64, error) {
	var all []model.Class
	for _, c := range m.classes {
		all = append(all, *c)
	}
	total := int64(len(all))
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	if offset > len(all) {
		return nil, total, nil
	}
	return all[offset:end], total, nil
}

func (m *mockClassRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Class, error) {
	var result []model.Class
	for _, c := range m.classes {
		if c.TeacherID != nil && *c.TeacherID == teacherID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) Delete(_ context.Context, id string) error {
	delete(m.classes, id)
	return nil
}

func (m *mockClassRepo) AddMember(_ context.Context, member *model.ClassMember) error {
	for _, existing := range m.members[member.ClassID] {
		if existing.StudentID == member.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if member.ClassMemberID == "" {
		member.ClassMemberID = fmt.Sprintf("cm-%s-%s", member.ClassID, member.StudentID)
	}
	m.members[member.ClassID] = append(m.members[member.ClassID], member)
	return nil
}

func (m *mockClassRepo) RemoveMember(_ context.Context, classID, studentID string) error {
	list := m.members[classID]
	for i, member := range list {
		if member.StudentID == studentID {
			m.members[classID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockClassRepo) ListMembers(_ context.Context, classID string) ([]model.ClassMember, error) {
	var result []model.ClassMember
	for _, member := range m.members[classID] {
		result = append(result, *member)
	}
	return result, nil
}

func (m *mockClassRepo) CountMembers(_ context.Context, classID string) (int64, error) {
	return int64(len(m.members[classID])), nil
}

func (m *mockClassRepo) IsMember(_ context.Context, classID, studentID string) (bool, error) {
	for _, member := range m.members[classID] {
		if member.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassRepo) ListClassIDsByStudent(_ context.Context, studentID string) ([]string, error) {
	var ids []string
	for classID, list := range m.members {
		for _, member := range list {
			if member.StudentID == studentID {
				ids = append(ids, classID)
				break
			}
		}
	}
	return ids, nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = "subj-" + subject.Code
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	var result []model.Subject
	for _, s := range m.subjects {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string) error {
	delete(m.subjects, id)
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	schedules map[string]*model.ClassSchedule
	seq       int
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.ClassSchedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.ClassSchedule) error {
	if schedule.ClassScheduleID == "" {
		m.seq++
		schedule.ClassScheduleID = fmt.Sprintf("sched-%d", m.seq)
	}
	m.schedules[schedule.ClassScheduleID] = schedule
	return nil
}

func (m *mockScheduleRepo) BatchCreate(_ context.Context, schedules []model.ClassSchedule) error {
	for i := range schedules {
		m.seq++
		schedules[i].ClassScheduleID = fmt.Sprintf("sched-%d", m.seq)
		copied := schedules[i]
		m.schedules[copied.ClassScheduleID] = &copied
	}
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.ClassSchedule, error) {
	if s, ok := m.schedules[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) ListByClass(_ context.Context, classID string) ([]model.ClassSchedule, error) {
	var result []model.ClassSchedule
	for _, s := range m.schedules {
		if s.ClassID == classID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string) error {
	delete(m.schedules, id)
	return nil
}

func (m *mockScheduleRepo) DeleteByClass(_ context.Context, classID string) error {
	for id, s := range m.schedules {
		if s.ClassID == classID {
			delete(m.schedules, id)
		}
	}
	return nil
}

// ── Mock SessionRepository ──
//
// 与存储层语义对齐：
//   - Create 模拟部分唯一索引（同教师至多一个 active）
//   - MarkEnded 为条件更新，未命中返回 ErrStateChanged
// 互斥锁保证并发测试下语义正确。

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.AttendanceSession
	seq      int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.AttendanceSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.AttendanceSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TeacherID == session.TeacherID && s.Status == model.SessionActive {
			return gorm.ErrDuplicatedKey
		}
		if s.Token == session.Token {
			return gorm.ErrDuplicatedKey
		}
	}
	if session.SessionID == "" {
		m.seq++
		session.SessionID = fmt.Sprintf("sess-%d", m.seq)
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetByToken(_ context.Context, token string) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetActiveByTeacher(_ context.Context, teacherID string) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TeacherID == teacherID && s.Status == model.SessionActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) MarkEnded(_ context.Context, id string, endTime time.Time, updatedBy *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionActive {
		return pkgerrors.ErrStateChanged
	}
	s.Status = model.SessionEnded
	s.EndTime = &endTime
	s.UpdatedBy = updatedBy
	return nil
}

func (m *mockSessionRepo) ListEndedByTeacher(_ context.Context, teacherID string, since *time.Time, limit int) ([]model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceSession
	for _, s := range m.sessions {
		if s.TeacherID != teacherID || s.Status != model.SessionEnded {
			continue
		}
		if since != nil && s.StartTime.Before(*since) {
			continue
		}
		result = append(result, *s)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockSessionRepo) ListEndedByClassBetween(_ context.Context, classID string, from, to time.Time) ([]model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceSession
	for _, s := range m.sessions {
		if s.ClassID != classID || s.Status != model.SessionEnded {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *mockSessionRepo) CountEndedByClassesSince(_ context.Context, classIDs []string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idSet := make(map[string]bool, len(classIDs))
	for _, id := range classIDs {
		idSet[id] = true
	}
	var count int64
	for _, s := range m.sessions {
		if idSet[s.ClassID] && s.Status == model.SessionEnded && !s.StartTime.Before(since) {
			count++
		}
	}
	return count, nil
}

// ── Mock AttendanceRepository ──
//
// CreateIfAbsent 在互斥锁内模拟 (session_id, student_id) 唯一约束，
// 支撑并发扫码恰好一条成功的测试。

type mockAttendanceRepo struct {
	mu       sync.Mutex
	records  map[string]*model.AttendanceRecord // key: session_id|student_id
	sessions *mockSessionRepo                   // ListByStudent 的 Session 预加载来源
	seq      int
}

func newMockAttendanceRepo(sessions *mockSessionRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{
		records:  make(map[string]*model.AttendanceRecord),
		sessions: sessions,
	}
}

func recordKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}

func (m *mockAttendanceRepo) CreateIfAbsent(_ context.Context, record *model.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(record.SessionID, record.StudentID)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.seq++
	record.RecordID = fmt.Sprintf("rec-%d", m.seq)
	copied := *record
	m.records[key] = &copied
	return true, nil
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(record.SessionID, record.StudentID)
	if existing, ok := m.records[key]; ok {
		existing.Status = record.Status
		existing.Source = record.Source
		existing.ScanTime = record.ScanTime
		existing.UpdatedBy = record.UpdatedBy
		return nil
	}
	m.seq++
	record.RecordID = fmt.Sprintf("rec-%d", m.seq)
	copied := *record
	m.records[key] = &copied
	return nil
}

func (m *mockAttendanceRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[recordKey(sessionID, studentID)]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, since *time.Time, limit int) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		copied := *r
		if m.sessions != nil {
			if s, ok := m.sessions.sessions[r.SessionID]; ok {
				sessCopy := *s
				copied.Session = &sessCopy
			}
		}
		if since != nil && (copied.Session == nil || copied.Session.StartTime.Before(*since)) {
			continue
		}
		result = append(result, copied)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) CountBySession(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.records {
		if r.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (m *mockAttendanceRepo) CountByStudentSince(_ context.Context, studentID string, since time.Time) ([]repository.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		if m.sessions != nil {
			if s, ok := m.sessions.sessions[r.SessionID]; ok && s.StartTime.Before(since) {
				continue
			}
		}
		counts[r.Status]++
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func newMockAuditLogRepo() *mockAuditLogRepo {
	return &mockAuditLogRepo{}
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.AuditLogID == "" {
		log.AuditLogID = fmt.Sprintf("audit-%d", len(m.logs)+1)
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditLogRepo) List(_ context.Context, action string, page, pageSize int) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.AuditLog
	for _, l := range m.logs {
		if action != "" && l.Action != action {
			continue
		}
		all = append(all, *l)
	}
	return all, int64(len(all)), nil
}

// countByAction 测试辅助：统计某动作的审计条数
func (m *mockAuditLogRepo) countByAction(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.logs {
		if l.Action == action {
			count++
		}
	}
	return count
}
