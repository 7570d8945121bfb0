package repository

import (
	"context"
	"errors"

	"TrackerSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository 派生分析记录仓储，按学生ID一人一条
type AnalyticsRepository interface {
	// Upsert 不存在则创建，存在则整条替换（只保留主键与student_id），非增量合并
	Upsert(ctx context.Context, data *model.CodeforcesData) error
	// GetByStudentID 记录不存在返回 (nil, nil)：从未同步成功是正常可查询状态
	GetByStudentID(ctx context.Context, studentID uint64) (*model.CodeforcesData, error)
	DeleteByStudentID(ctx context.Context, studentID uint64) error
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Upsert(ctx context.Context, data *model.CodeforcesData) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_rating", "max_rating", "contest_history",
			"problem_stats", "submission_heatmap", "last_active", "updated_at",
		}),
	}).Create(data).Error; err != nil {
		return &PersistenceError{Op: "UpsertCodeforcesData", Err: err}
	}
	return nil
}

func (r *analyticsRepository) GetByStudentID(ctx context.Context, studentID uint64) (*model.CodeforcesData, error) {
	var data model.CodeforcesData
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&data).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "GetCodeforcesData", Err: err}
	}
	return &data, nil
}

func (r *analyticsRepository) DeleteByStudentID(ctx context.Context, studentID uint64) error {
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&model.CodeforcesData{}).Error; err != nil {
		return &PersistenceError{Op: "DeleteCodeforcesData", Err: err}
	}
	return nil
}
