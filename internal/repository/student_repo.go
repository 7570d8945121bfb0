package repository

import (
	"context"
	"errors"
	"time"

	"TrackerSync/internal/model"

	"gorm.io/gorm"
)

// StudentRepository 学生名册仓储
type StudentRepository interface {
	List(ctx context.Context) ([]*model.Student, error)
	GetByUUID(ctx context.Context, studentUUID string) (*model.Student, error)
	// FindByEmailOrHandle 查重用，不存在返回 (nil, nil)
	FindByEmailOrHandle(ctx context.Context, email, handle string) (*model.Student, error)
	Create(ctx context.Context, student *model.Student) error
	Update(ctx context.Context, student *model.Student) error
	// Delete 连同派生分析记录一并删除（级联，分析记录归学生所有）
	Delete(ctx context.Context, studentID uint64) error
	// TouchLastUpdated 同步成功后回写名册时间戳
	TouchLastUpdated(ctx context.Context, studentID uint64, at time.Time) error
	// MarkReminderSent 提醒邮件发出后累加计数并记录时间
	MarkReminderSent(ctx context.Context, studentID uint64, at time.Time) error
}

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context) ([]*model.Student, error) {
	var students []*model.Student
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&students).Error; err != nil {
		return nil, &PersistenceError{Op: "ListStudents", Err: err}
	}
	return students, nil
}

func (r *studentRepository) GetByUUID(ctx context.Context, studentUUID string) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("student_uuid = ?", studentUUID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "GetStudent", Err: err}
	}
	return &student, nil
}

func (r *studentRepository) FindByEmailOrHandle(ctx context.Context, email, handle string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("email = ? OR codeforces_handle = ?", email, handle).
		First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "FindStudent", Err: err}
	}
	return &student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *model.Student) error {
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		return &PersistenceError{Op: "CreateStudent", Err: err}
	}
	return nil
}

func (r *studentRepository) Update(ctx context.Context, student *model.Student) error {
	if err := r.db.WithContext(ctx).Save(student).Error; err != nil {
		return &PersistenceError{Op: "UpdateStudent", Err: err}
	}
	return nil
}

func (r *studentRepository) Delete(ctx context.Context, studentID uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", studentID).Delete(&model.CodeforcesData{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", studentID).Delete(&model.Student{}).Error
	})
	if err != nil {
		return &PersistenceError{Op: "DeleteStudent", Err: err}
	}
	return nil
}

func (r *studentRepository) TouchLastUpdated(ctx context.Context, studentID uint64, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", studentID).
		Update("last_updated", at).Error; err != nil {
		return &PersistenceError{Op: "TouchLastUpdated", Err: err}
	}
	return nil
}

func (r *studentRepository) MarkReminderSent(ctx context.Context, studentID uint64, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", studentID).
		Updates(map[string]interface{}{
			"reminder_count":     gorm.Expr("reminder_count + 1"),
			"last_reminder_sent": at,
		}).Error; err != nil {
		return &PersistenceError{Op: "MarkReminderSent", Err: err}
	}
	return nil
}
