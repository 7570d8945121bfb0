package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"TrackerSync/internal/adapter/codeforces"
	"TrackerSync/internal/model"
	"TrackerSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// Fetcher 外部平台客户端抽象，便于注入与测试
type Fetcher interface {
	FetchUserData(ctx context.Context, handle string) (*codeforces.UserData, error)
}

// SyncError 单个学生一次同步失败，包裹拉取或落库的底层原因并带上学生上下文
type SyncError struct {
	StudentID uint64
	Handle    string
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("同步学生 %d（句柄 %s）失败: %v", e.StudentID, e.Handle, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// SyncService 单个学生的同步单元：拉取 → 聚合 → 整条替换落库 → 回写名册时间戳。
// 手动刷新、句柄建立/变更、定时批量都从这里进入。
type SyncService struct {
	fetcher       Fetcher
	analyticsRepo repository.AnalyticsRepository
	studentRepo   repository.StudentRepository
	logger        *logrus.Logger
	retryCount    int
}

func NewSyncService(
	fetcher Fetcher,
	analyticsRepo repository.AnalyticsRepository,
	studentRepo repository.StudentRepository,
	retryCount int,
	logger *logrus.Logger,
) *SyncService {
	return &SyncService{
		fetcher:       fetcher,
		analyticsRepo: analyticsRepo,
		studentRepo:   studentRepo,
		logger:        logger,
		retryCount:    retryCount,
	}
}

// SyncStudent 同步一个学生并返回落库后的记录。
// 两次落库（upsert + 名册时间戳）若只成功前者，仍返回 SyncError 让调用方感知部分写入；
// 整条替换语义保证重跑安全。
func (s *SyncService) SyncStudent(ctx context.Context, studentID uint64, handle string) (*model.CodeforcesData, error) {
	data, err := s.fetchWithRetry(ctx, handle)
	if err != nil {
		return nil, &SyncError{StudentID: studentID, Handle: handle, Err: err}
	}

	analytics := DeriveAnalytics(data.Info, data.RatingHistory, data.Submissions)
	record, err := buildRecord(studentID, analytics)
	if err != nil {
		return nil, &SyncError{StudentID: studentID, Handle: handle, Err: err}
	}

	if err := s.analyticsRepo.Upsert(ctx, record); err != nil {
		return nil, &SyncError{StudentID: studentID, Handle: handle, Err: err}
	}
	if err := s.studentRepo.TouchLastUpdated(ctx, studentID, record.UpdatedAt); err != nil {
		// 分析记录已写入，只有名册时间戳缺失；重跑一次 SyncStudent 即可补齐
		s.logger.WithError(err).WithField("student_id", studentID).Warn("分析记录已落库，但名册时间戳回写失败")
		return record, &SyncError{StudentID: studentID, Handle: handle, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"student_id": studentID,
		"handle":     handle,
		"solved":     analytics.ProblemStats.TotalSolved,
	}).Info("学生数据同步完成")
	return record, nil
}

// fetchWithRetry 按配置做指数退避重试；retryCount=0 时只拉一次。
// 句柄不存在不重试（重试也不会出现）。
func (s *SyncService) fetchWithRetry(ctx context.Context, handle string) (*codeforces.UserData, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			s.logger.Warnf("第 %d 次重试拉取 %s（退避 %s）", attempt, handle, backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		data, err := s.fetcher.FetchUserData(ctx, handle)
		if err == nil {
			return data, nil
		}
		lastErr = err
		var notFound *codeforces.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
	}
	return nil, lastErr
}

// buildRecord 把派生结果序列化为 jsonb 列并盖上当前时间戳
func buildRecord(studentID uint64, analytics *model.Analytics) (*model.CodeforcesData, error) {
	contestHistory, err := json.Marshal(analytics.ContestHistory)
	if err != nil {
		return nil, fmt.Errorf("序列化比赛历史失败: %w", err)
	}
	problemStats, err := json.Marshal(analytics.ProblemStats)
	if err != nil {
		return nil, fmt.Errorf("序列化做题统计失败: %w", err)
	}
	heatmap, err := json.Marshal(analytics.SubmissionHeatmap)
	if err != nil {
		return nil, fmt.Errorf("序列化提交热力图失败: %w", err)
	}

	return &model.CodeforcesData{
		StudentID:         studentID,
		CurrentRating:     analytics.CurrentRating,
		MaxRating:         analytics.MaxRating,
		ContestHistory:    contestHistory,
		ProblemStats:      problemStats,
		SubmissionHeatmap: heatmap,
		LastActive:        analytics.LastActive,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}
