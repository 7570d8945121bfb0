package codeforces

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"TrackerSync/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(baseURL string, submissionCount int) *Client {
	return NewClient(&config.PlatformConfig{
		BaseURL: baseURL,
		Timeout: 5,
	}, submissionCount, testLogger())
}

// 三个接口都正常：三元数据齐活，user.status 带上配置的拉取条数
func TestFetchUserDataSuccess(t *testing.T) {
	var mu sync.Mutex
	queries := make(map[string]string)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries[r.URL.Path] = r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user.info":
			fmt.Fprint(w, `{"status":"OK","result":[{"handle":"tourist","rating":3800,"maxRating":4000}]}`)
		case "/user.rating":
			fmt.Fprint(w, `{"status":"OK","result":[{"contestId":5,"contestName":"Round 5","handle":"tourist","rank":1,"ratingUpdateTimeSeconds":1000,"oldRating":3700,"newRating":3800}]}`)
		case "/user.status":
			fmt.Fprint(w, `{"status":"OK","result":[{"id":1,"contestId":5,"creationTimeSeconds":500,"verdict":"OK","problem":{"contestId":5,"index":"A","name":"Watermelon","rating":800}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 500)
	data, err := client.FetchUserData(context.Background(), "tourist")

	require.NoError(t, err)
	assert.Equal(t, "tourist", data.Info.Handle)
	assert.Equal(t, 3800, data.Info.Rating)
	assert.Equal(t, 4000, data.Info.MaxRating)
	require.Len(t, data.RatingHistory, 1)
	assert.Equal(t, 5, data.RatingHistory[0].ContestID)
	require.Len(t, data.Submissions, 1)
	assert.Equal(t, "5A", data.Submissions[0].Problem.Key())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, queries["/user.info"], "handles=tourist")
	assert.Contains(t, queries["/user.rating"], "handle=tourist")
	assert.Contains(t, queries["/user.status"], "count=500")
	assert.Contains(t, queries["/user.status"], "from=1")
}

// 平台对业务失败返回 HTTP 400 + FAILED 包裹，句柄不存在要归类为 NotFoundError
func TestFetchUserDataHandleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"FAILED","comment":"handles: User with handle nosuch not found"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100)
	data, err := client.FetchUserData(context.Background(), "nosuch")

	assert.Nil(t, data)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nosuch", notFound.Handle)
}

// 其它 FAILED 原因（如限流）不是句柄问题，归类为 SourceError
func TestFetchUserDataOtherAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"FAILED","comment":"Call limit exceeded"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100)
	_, err := client.FetchUserData(context.Background(), "tourist")

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "tourist", srcErr.Handle)
}

// 传输层故障归类为 SourceError
func TestFetchUserDataTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立刻关掉，模拟网络不可达

	client := newTestClient(srv.URL, 100)
	_, err := client.FetchUserData(context.Background(), "tourist")

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
}

// 空句柄不发任何请求，直接报错
func TestFetchUserDataEmptyHandle(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100)
	_, err := client.FetchUserData(context.Background(), "  ")

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.False(t, called)
}

// user.info 返回空列表视为句柄不存在
func TestFetchUserDataEmptyUserList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","result":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100)
	_, err := client.FetchUserData(context.Background(), "ghost")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
