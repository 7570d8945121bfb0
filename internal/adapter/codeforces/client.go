package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"TrackerSync/internal/config"
	"TrackerSync/internal/model"
	"TrackerSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UserData 单个句柄一次拉取得到的三元原始数据
type UserData struct {
	Info          model.CFUserInfo
	RatingHistory []model.CFRatingChange
	Submissions   []model.CFSubmission
}

// Client Codeforces 只读客户端，无共享状态，可按需构建或复用
type Client struct {
	cfg             *config.PlatformConfig
	httpClient      *http.Client
	logger          *logrus.Logger
	submissionCount int
}

// NewClient 创建客户端；submissionCount 为 user.status 的拉取上限
func NewClient(cfg *config.PlatformConfig, submissionCount int, logger *logrus.Logger) *Client {
	if submissionCount <= 0 {
		submissionCount = 1000
	}
	return &Client{
		cfg:             cfg,
		httpClient:      httpclient.NewHTTPClient(cfg, logger),
		logger:          logger,
		submissionCount: submissionCount,
	}
}

// FetchUserData 并发发起三个只读请求（档案/比赛历史/提交历史），任一失败则整体失败。
// 句柄未知返回 *NotFoundError，其余失败返回 *SourceError；本层不做重试。
func (c *Client) FetchUserData(ctx context.Context, handle string) (*UserData, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, &SourceError{Handle: handle, Err: errors.New("句柄不能为空")}
	}

	data := &UserData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var users []model.CFUserInfo
		if err := c.getResult(gctx, "user.info", url.Values{"handles": {handle}}, &users); err != nil {
			return err
		}
		if len(users) == 0 {
			return &apiFailedError{Comment: fmt.Sprintf("handles: User with handle %s not found", handle)}
		}
		data.Info = users[0]
		return nil
	})
	g.Go(func() error {
		return c.getResult(gctx, "user.rating", url.Values{"handle": {handle}}, &data.RatingHistory)
	})
	g.Go(func() error {
		return c.getResult(gctx, "user.status", url.Values{
			"handle": {handle},
			"from":   {"1"},
			"count":  {fmt.Sprintf("%d", c.submissionCount)},
		}, &data.Submissions)
	})

	if err := g.Wait(); err != nil {
		var failed *apiFailedError
		if errors.As(err, &failed) && strings.Contains(failed.Comment, "not found") {
			return nil, &NotFoundError{Handle: handle}
		}
		return nil, &SourceError{Handle: handle, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"handle":      handle,
		"contests":    len(data.RatingHistory),
		"submissions": len(data.Submissions),
	}).Info("Codeforces 数据拉取成功")
	return data, nil
}

// getResult 调用单个API方法并解开统一响应包裹。
// Codeforces 对业务失败（如句柄不存在）返回 HTTP 400 + FAILED 包裹，
// 因此无论状态码先尝试解析包裹，解析不动才按传输错误处理。
func (c *Client) getResult(ctx context.Context, method string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("构建 %s 请求失败: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Errorf("关闭 %s 响应体失败: %v", method, err)
		}
	}()

	var envelope model.CFResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("解析 %s 响应失败（HTTP %d）: %w", method, resp.StatusCode, err)
	}
	if envelope.Status != "OK" {
		return &apiFailedError{Comment: envelope.Comment}
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("解析 %s result 失败: %w", method, err)
	}
	return nil
}
