package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"TrackerSync/internal/config"
	"TrackerSync/internal/model"
	"TrackerSync/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Scheduler 按 Cron 表达式定时对全量名册逐个触发同步。
// 失败隔离在单个学生粒度：谁失败记谁的日志，批次继续。
type Scheduler struct {
	studentRepo   repository.StudentRepository
	analyticsRepo repository.AnalyticsRepository
	syncService   *SyncService
	emailService  *EmailService
	cfg           *config.SyncConfig
	logger        *logrus.Logger
	cron          *cron.Cron
	running       atomic.Bool // 同一时刻只允许一批在跑，到点发现上批未完则跳过本次
}

func NewScheduler(
	studentRepo repository.StudentRepository,
	analyticsRepo repository.AnalyticsRepository,
	syncService *SyncService,
	emailService *EmailService,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		studentRepo:   studentRepo,
		analyticsRepo: analyticsRepo,
		syncService:   syncService,
		emailService:  emailService,
		cfg:           cfg,
		logger:        logger,
		cron:          cron.New(),
	}
}

// Start 注册定时任务并启动调度；ctx 取消后批次在学生边界处停止
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		if err := s.RunBatch(ctx); err != nil {
			s.logger.WithError(err).Error("定时批量同步失败")
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时任务失败（cron=%s）: %w", s.cfg.Cron, err)
	}
	s.cron.Start()
	s.logger.Infof("定时同步已启动: %s", s.cfg.Cron)
	return nil
}

// Stop 停止调度器（不打断进行中的批次）
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunBatch 跑一批全量同步：并发上限保护外部API，单学生失败只记日志；
// 名册枚举失败则整批中止。批次结束后做一轮不活跃提醒。
func (s *Scheduler) RunBatch(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("上一批同步尚未结束，跳过本次触发")
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	students, err := s.studentRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("获取学生名册失败: %w", err)
	}
	s.logger.Infof("开始批量同步，共 %d 名学生", len(students))

	var okCount, failCount atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, st := range students {
		// 取消只在学生边界生效，进行中的单人同步允许跑完
		if ctx.Err() != nil {
			s.logger.Warn("批量同步被取消，剩余学生留到下一批")
			break
		}
		student := st
		g.Go(func() error {
			if _, err := s.syncService.SyncStudent(ctx, student.ID, student.CodeforcesHandle); err != nil {
				failCount.Add(1)
				syncFailureTotal.Inc()
				s.logger.WithError(err).WithField("handle", student.CodeforcesHandle).Warn("单个学生同步失败，继续批次")
				return nil
			}
			okCount.Add(1)
			syncSuccessTotal.Inc()
			return nil
		})
	}
	_ = g.Wait()

	batchDurationSeconds.Observe(time.Since(start).Seconds())
	s.logger.Infof("批量同步结束：成功 %d，失败 %d，耗时 %s", okCount.Load(), failCount.Load(), time.Since(start).Round(time.Millisecond))

	s.sendInactivityReminders(ctx, students)
	return nil
}

// sendInactivityReminders 对开启通知且连续 InactiveDays 天无提交的在册学生发提醒邮件。
// 邮件失败只记日志，不影响批次结果。
func (s *Scheduler) sendInactivityReminders(ctx context.Context, students []*model.Student) {
	if s.emailService == nil || !s.emailService.IsEnabled() {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.InactiveDays)

	for _, student := range students {
		if !student.IsActive || !student.EmailNotifications {
			continue
		}
		record, err := s.analyticsRepo.GetByStudentID(ctx, student.ID)
		if err != nil || record == nil {
			continue
		}
		if record.LastActive == nil || !record.LastActive.Before(cutoff) {
			continue
		}
		if err := s.emailService.SendReminderEmail(ctx, student, s.cfg.InactiveDays); err != nil {
			s.logger.WithError(err).WithField("email", student.Email).Warn("提醒邮件发送失败")
			continue
		}
		reminderSentTotal.Inc()
		if err := s.studentRepo.MarkReminderSent(ctx, student.ID, time.Now().UTC()); err != nil {
			s.logger.WithError(err).WithField("student_id", student.ID).Warn("回写提醒记录失败")
		}
	}
}
