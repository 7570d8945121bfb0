package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 同步链路的运行指标，经 /metrics 暴露
var (
	syncSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_sync_success_total",
		Help: "单学生同步成功次数",
	})
	syncFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_sync_failure_total",
		Help: "单学生同步失败次数",
	})
	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_batch_duration_seconds",
		Help:    "整批同步耗时（秒）",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	reminderSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_reminder_sent_total",
		Help: "不活跃提醒邮件发送次数",
	})
)
