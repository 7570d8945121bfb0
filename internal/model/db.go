package model

import (
	"time"

	"gorm.io/datatypes"
)

// Student 学生名册，Codeforces 句柄唯一，作为外部平台的拉取标识
type Student struct {
	ID                 uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	StudentUUID        string     `gorm:"column:student_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	Name               string     `gorm:"column:name;type:varchar(50);not null;comment:学生姓名"`
	Email              string     `gorm:"column:email;type:varchar(128);uniqueIndex;not null;comment:邮箱"`
	Phone              string     `gorm:"column:phone;type:varchar(20);comment:电话"`
	CodeforcesHandle   string     `gorm:"column:codeforces_handle;type:varchar(24);uniqueIndex;not null;comment:Codeforces句柄"`
	EmailNotifications bool       `gorm:"column:email_notifications;type:boolean;default:true;comment:是否接收提醒邮件"`
	ReminderCount      int        `gorm:"column:reminder_count;type:int;default:0;comment:已发送提醒邮件次数"`
	LastReminderSent   *time.Time `gorm:"column:last_reminder_sent;type:timestamp;comment:最近一次提醒时间"`
	IsActive           bool       `gorm:"column:is_active;type:boolean;default:true;comment:是否在册"`
	LastUpdated        *time.Time `gorm:"column:last_updated;type:timestamp;comment:最近一次同步成功时间"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamp;default:now();comment:创建时间"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

// CodeforcesData 派生分析记录，与学生 1:1，每次同步成功整条替换。
// 不存在该记录表示该学生从未同步成功过，属正常状态而非错误。
type CodeforcesData struct {
	ID                uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	StudentID         uint64         `gorm:"column:student_id;type:bigint;uniqueIndex:uk_student;not null;comment:关联学生ID"`
	CurrentRating     int            `gorm:"column:current_rating;type:int;default:0;comment:当前rating"`
	MaxRating         int            `gorm:"column:max_rating;type:int;default:0;comment:历史最高rating"`
	ContestHistory    datatypes.JSON `gorm:"column:contest_history;type:jsonb;not null;comment:比赛历史"`
	ProblemStats      datatypes.JSON `gorm:"column:problem_stats;type:jsonb;not null;comment:做题统计"`
	SubmissionHeatmap datatypes.JSON `gorm:"column:submission_heatmap;type:jsonb;not null;comment:提交热力图"`
	LastActive        *time.Time     `gorm:"column:last_active;type:timestamp;comment:最近一次提交时间"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

func (Student) TableName() string        { return "students" }
func (CodeforcesData) TableName() string { return "codeforces_data" }
