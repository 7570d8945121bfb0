package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"TrackerSync/internal/model"
	"TrackerSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStudentNotFound 学生不在名册中
	ErrStudentNotFound = errors.New("学生不存在")
	// ErrDuplicateStudent 邮箱或句柄已被占用
	ErrDuplicateStudent = errors.New("该邮箱或Codeforces句柄已存在")
	// ErrAnalyticsNotFound 该学生尚无同步成功的分析记录
	ErrAnalyticsNotFound = errors.New("暂无Codeforces数据")
)

// ValidationError 入参校验失败
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// CreateStudentInput 新建学生入参
type CreateStudentInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	CodeforcesHandle string `json:"codeforcesHandle"`
}

// UpdateStudentInput 更新学生入参，留空字段不变
type UpdateStudentInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	CodeforcesHandle string `json:"codeforcesHandle"`
}

// StudentOverview 名册列表视图：学生基本信息叠加分析记录里的 rating 概览
type StudentOverview struct {
	*model.Student
	CurrentRating int        `json:"currentRating"`
	MaxRating     int        `json:"maxRating"`
	LastUpdated   *time.Time `json:"lastUpdated"`
}

// StudentService 名册业务：增删改查 + 同步触发 + 分析数据读取。
// 句柄建立（新建带句柄/改句柄）后的初始同步是异步尽力而为，失败绝不阻塞名册写入。
type StudentService struct {
	studentRepo   repository.StudentRepository
	analyticsRepo repository.AnalyticsRepository
	syncService   *SyncService
	emailService  *EmailService
	logger        *logrus.Logger
}

func NewStudentService(
	studentRepo repository.StudentRepository,
	analyticsRepo repository.AnalyticsRepository,
	syncService *SyncService,
	emailService *EmailService,
	logger *logrus.Logger,
) *StudentService {
	return &StudentService{
		studentRepo:   studentRepo,
		analyticsRepo: analyticsRepo,
		syncService:   syncService,
		emailService:  emailService,
		logger:        logger,
	}
}

// ListStudents 全量名册，叠加各自分析记录的 rating 概览（无记录则为0）
func (s *StudentService) ListStudents(ctx context.Context) ([]*StudentOverview, error) {
	students, err := s.studentRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	overviews := make([]*StudentOverview, 0, len(students))
	for _, student := range students {
		overview := &StudentOverview{Student: student, LastUpdated: student.LastUpdated}
		if record, err := s.analyticsRepo.GetByStudentID(ctx, student.ID); err == nil && record != nil {
			overview.CurrentRating = record.CurrentRating
			overview.MaxRating = record.MaxRating
			overview.LastUpdated = &record.UpdatedAt
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

// GetStudentDetail 单个学生 + 完整分析记录（可能为nil：从未同步成功）
func (s *StudentService) GetStudentDetail(ctx context.Context, studentUUID string) (*model.Student, *model.CodeforcesData, error) {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return nil, nil, err
	}
	if student == nil {
		return nil, nil, ErrStudentNotFound
	}
	record, err := s.analyticsRepo.GetByStudentID(ctx, student.ID)
	if err != nil {
		return nil, nil, err
	}
	return student, record, nil
}

// CreateStudent 新建学生；成功后异步发欢迎邮件并触发初始同步
func (s *StudentService) CreateStudent(ctx context.Context, input CreateStudentInput) (*model.Student, error) {
	if err := validateStudentInput(input.Name, input.Email, input.CodeforcesHandle); err != nil {
		return nil, err
	}
	existing, err := s.studentRepo.FindByEmailOrHandle(ctx, input.Email, input.CodeforcesHandle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateStudent
	}

	student := &model.Student{
		StudentUUID:        uuid.NewString(),
		Name:               strings.TrimSpace(input.Name),
		Email:              strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:              strings.TrimSpace(input.Phone),
		CodeforcesHandle:   strings.TrimSpace(input.CodeforcesHandle),
		EmailNotifications: true,
		IsActive:           true,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}

	s.scheduleHandleEstablished(student.ID, student.CodeforcesHandle)
	if s.emailService != nil {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.emailService.SendWelcomeEmail(bgCtx, student); err != nil {
				s.logger.WithError(err).WithField("email", student.Email).Warn("欢迎邮件发送失败")
			}
		}()
	}
	return student, nil
}

// UpdateStudent 更新学生；句柄变更时异步触发一次重新同步
func (s *StudentService) UpdateStudent(ctx context.Context, studentUUID string, input UpdateStudentInput) (*model.Student, error) {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	newHandle := strings.TrimSpace(input.CodeforcesHandle)
	handleChanged := newHandle != "" && newHandle != student.CodeforcesHandle
	if handleChanged && len(newHandle) > 24 {
		return nil, &ValidationError{Msg: "Codeforces句柄不能超过24个字符"}
	}

	if v := strings.TrimSpace(input.Name); v != "" {
		student.Name = v
	}
	if v := strings.ToLower(strings.TrimSpace(input.Email)); v != "" {
		student.Email = v
	}
	if v := strings.TrimSpace(input.Phone); v != "" {
		student.Phone = v
	}
	if handleChanged {
		student.CodeforcesHandle = newHandle
	}
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}

	if handleChanged {
		s.scheduleHandleEstablished(student.ID, newHandle)
	}
	return student, nil
}

// DeleteStudent 删除学生，分析记录级联删除
func (s *StudentService) DeleteStudent(ctx context.Context, studentUUID string) error {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return err
	}
	if student == nil {
		return ErrStudentNotFound
	}
	return s.studentRepo.Delete(ctx, student.ID)
}

// ToggleNotifications 开关提醒邮件，返回切换后的状态
func (s *StudentService) ToggleNotifications(ctx context.Context, studentUUID string) (bool, error) {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return false, err
	}
	if student == nil {
		return false, ErrStudentNotFound
	}
	student.EmailNotifications = !student.EmailNotifications
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return false, err
	}
	return student.EmailNotifications, nil
}

// RefreshData 手动强制刷新：同步执行，错误原样返回给调用方展示
func (s *StudentService) RefreshData(ctx context.Context, studentUUID string) (*model.CodeforcesData, error) {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	return s.syncService.SyncStudent(ctx, student.ID, student.CodeforcesHandle)
}

// GetContestHistory 比赛历史，按天数裁剪并按时间倒序
func (s *StudentService) GetContestHistory(ctx context.Context, studentUUID string, days int) ([]model.ContestHistoryEntry, error) {
	record, err := s.getRecord(ctx, studentUUID)
	if err != nil {
		return nil, err
	}
	var history []model.ContestHistoryEntry
	if err := json.Unmarshal(record.ContestHistory, &history); err != nil {
		return nil, fmt.Errorf("解析比赛历史失败: %w", err)
	}

	if days <= 0 {
		days = 365
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	filtered := make([]model.ContestHistoryEntry, 0, len(history))
	for _, entry := range history {
		if !entry.Date.Before(cutoff) {
			filtered = append(filtered, entry)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.After(filtered[j].Date) })
	return filtered, nil
}

// GetProblemStats 做题统计 + 热力图；days>0 时热力图按天数裁剪
func (s *StudentService) GetProblemStats(ctx context.Context, studentUUID string, days int) (*model.ProblemStats, []model.HeatmapEntry, error) {
	record, err := s.getRecord(ctx, studentUUID)
	if err != nil {
		return nil, nil, err
	}
	var stats model.ProblemStats
	if err := json.Unmarshal(record.ProblemStats, &stats); err != nil {
		return nil, nil, fmt.Errorf("解析做题统计失败: %w", err)
	}
	var heatmap []model.HeatmapEntry
	if err := json.Unmarshal(record.SubmissionHeatmap, &heatmap); err != nil {
		return nil, nil, fmt.Errorf("解析提交热力图失败: %w", err)
	}

	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		filtered := make([]model.HeatmapEntry, 0, len(heatmap))
		for _, entry := range heatmap {
			if !entry.Date.Before(cutoff) {
				filtered = append(filtered, entry)
			}
		}
		heatmap = filtered
	}
	return &stats, heatmap, nil
}

func (s *StudentService) getRecord(ctx context.Context, studentUUID string) (*model.CodeforcesData, error) {
	student, err := s.studentRepo.GetByUUID(ctx, studentUUID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	record, err := s.analyticsRepo.GetByStudentID(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrAnalyticsNotFound
	}
	return record, nil
}

// scheduleHandleEstablished 句柄建立/变更后的初始同步：主写入提交后异步执行，
// 自带独立错误通道（日志），失败不回传
func (s *StudentService) scheduleHandleEstablished(studentID uint64, handle string) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.syncService.SyncStudent(bgCtx, studentID, handle); err != nil {
			s.logger.WithError(err).WithField("handle", handle).Warn("初始同步失败（不影响名册写入）")
			return
		}
		s.logger.WithField("handle", handle).Info("初始同步完成")
	}()
}

func validateStudentInput(name, email, handle string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Msg: "姓名不能为空"}
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return &ValidationError{Msg: "邮箱格式不正确"}
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return &ValidationError{Msg: "Codeforces句柄不能为空"}
	}
	if len(handle) > 24 {
		return &ValidationError{Msg: "Codeforces句柄不能超过24个字符"}
	}
	return nil
}
