package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"TrackerSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStudentService(fetcher *fakeFetcher, studentRepo *fakeStudentRepo, analyticsRepo *fakeAnalyticsRepo) *StudentService {
	logger := testLogger()
	syncService := NewSyncService(fetcher, analyticsRepo, studentRepo, 0, logger)
	return NewStudentService(studentRepo, analyticsRepo, syncService, nil, logger)
}

func TestCreateStudentValidation(t *testing.T) {
	svc := newTestStudentService(newFakeFetcher(), newFakeStudentRepo(), newFakeAnalyticsRepo())

	tests := []struct {
		name  string
		input CreateStudentInput
	}{
		{"姓名为空", CreateStudentInput{Email: "a@b.com", CodeforcesHandle: "alice"}},
		{"邮箱缺@", CreateStudentInput{Name: "张三", Email: "not-an-email", CodeforcesHandle: "alice"}},
		{"句柄为空", CreateStudentInput{Name: "张三", Email: "a@b.com"}},
		{"句柄超长", CreateStudentInput{Name: "张三", Email: "a@b.com", CodeforcesHandle: "aaaaaaaaaaaaaaaaaaaaaaaaa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStudent(context.Background(), tt.input)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

// 新建成功：字段归一化（邮箱小写、去空白）、默认开启通知，并异步触发初始同步
func TestCreateStudent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.data["alice"] = sampleUserData()
	studentRepo := newFakeStudentRepo()
	analyticsRepo := newFakeAnalyticsRepo()
	svc := newTestStudentService(fetcher, studentRepo, analyticsRepo)

	student, err := svc.CreateStudent(context.Background(), CreateStudentInput{
		Name:             "  张三 ",
		Email:            " Alice@Example.COM ",
		CodeforcesHandle: " alice ",
	})

	require.NoError(t, err)
	assert.Equal(t, "张三", student.Name)
	assert.Equal(t, "alice@example.com", student.Email)
	assert.Equal(t, "alice", student.CodeforcesHandle)
	assert.NotEmpty(t, student.StudentUUID)
	assert.True(t, student.EmailNotifications)
	assert.True(t, student.IsActive)

	// 初始同步是异步的，等它把分析记录写进来
	assert.Eventually(t, func() bool {
		record, _ := analyticsRepo.GetByStudentID(context.Background(), student.ID)
		return record != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateStudentDuplicate(t *testing.T) {
	studentRepo := newFakeStudentRepo(&model.Student{ID: 1, Email: "a@b.com", CodeforcesHandle: "alice"})
	svc := newTestStudentService(newFakeFetcher(), studentRepo, newFakeAnalyticsRepo())

	_, err := svc.CreateStudent(context.Background(), CreateStudentInput{
		Name: "李四", Email: "other@b.com", CodeforcesHandle: "alice",
	})
	assert.ErrorIs(t, err, ErrDuplicateStudent)
}

// 改句柄触发重新同步，其它字段更新不触发
func TestUpdateStudentHandleChangeTriggersResync(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.data["newhandle"] = sampleUserData()
	student := &model.Student{ID: 1, StudentUUID: "u-1", Name: "张三", Email: "a@b.com", CodeforcesHandle: "alice"}
	studentRepo := newFakeStudentRepo(student)
	analyticsRepo := newFakeAnalyticsRepo()
	svc := newTestStudentService(fetcher, studentRepo, analyticsRepo)

	// 只改姓名：不触发同步
	_, err := svc.UpdateStudent(context.Background(), "u-1", UpdateStudentInput{Name: "王五"})
	require.NoError(t, err)
	assert.Equal(t, "王五", student.Name)
	assert.Equal(t, 0, fetcher.callCount("alice"))

	// 改句柄：触发一次重新同步
	updated, err := svc.UpdateStudent(context.Background(), "u-1", UpdateStudentInput{CodeforcesHandle: "newhandle"})
	require.NoError(t, err)
	assert.Equal(t, "newhandle", updated.CodeforcesHandle)
	assert.Eventually(t, func() bool {
		return fetcher.callCount("newhandle") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateStudentNotFound(t *testing.T) {
	svc := newTestStudentService(newFakeFetcher(), newFakeStudentRepo(), newFakeAnalyticsRepo())
	_, err := svc.UpdateStudent(context.Background(), "不存在", UpdateStudentInput{Name: "x"})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestToggleNotifications(t *testing.T) {
	student := &model.Student{ID: 1, StudentUUID: "u-1", EmailNotifications: true}
	svc := newTestStudentService(newFakeFetcher(), newFakeStudentRepo(student), newFakeAnalyticsRepo())

	enabled, err := svc.ToggleNotifications(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = svc.ToggleNotifications(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, enabled)
}

// 比赛历史按天数窗口裁剪并按时间倒序返回
func TestGetContestHistoryWindow(t *testing.T) {
	now := time.Now().UTC()
	history := []model.ContestHistoryEntry{
		{ContestID: 1, Date: now.AddDate(0, 0, -400)},
		{ContestID: 2, Date: now.AddDate(0, 0, -10)},
		{ContestID: 3, Date: now.AddDate(0, 0, -30)},
	}
	raw, err := json.Marshal(history)
	require.NoError(t, err)

	student := &model.Student{ID: 1, StudentUUID: "u-1"}
	analyticsRepo := newFakeAnalyticsRepo()
	require.NoError(t, analyticsRepo.Upsert(context.Background(), &model.CodeforcesData{
		StudentID:         1,
		ContestHistory:    raw,
		ProblemStats:      []byte(`{}`),
		SubmissionHeatmap: []byte(`[]`),
	}))
	svc := newTestStudentService(newFakeFetcher(), newFakeStudentRepo(student), analyticsRepo)

	// 默认365天：400天前的那场被裁掉，剩下按时间倒序
	entries, err := svc.GetContestHistory(context.Background(), "u-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].ContestID)
	assert.Equal(t, 3, entries[1].ContestID)

	// 收窄到20天只剩一场
	entries, err = svc.GetContestHistory(context.Background(), "u-1", 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].ContestID)
}

// 从未同步成功的学生查分析数据返回 ErrAnalyticsNotFound
func TestGetProblemStatsNoRecord(t *testing.T) {
	student := &model.Student{ID: 1, StudentUUID: "u-1"}
	svc := newTestStudentService(newFakeFetcher(), newFakeStudentRepo(student), newFakeAnalyticsRepo())

	_, _, err := svc.GetProblemStats(context.Background(), "u-1", 0)
	assert.ErrorIs(t, err, ErrAnalyticsNotFound)
}

func TestDeleteStudentCascades(t *testing.T) {
	student := &model.Student{ID: 1, StudentUUID: "u-1"}
	studentRepo := newFakeStudentRepo(student)
	analyticsRepo := newFakeAnalyticsRepo()
	svc := newTestStudentService(newFakeFetcher(), studentRepo, analyticsRepo)

	require.NoError(t, svc.DeleteStudent(context.Background(), "u-1"))

	got, err := studentRepo.GetByUUID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
