package model

import "time"

// 以下派生类型整体序列化后存入 codeforces_data 的 jsonb 列，不单独建表

// ContestHistoryEntry 单场比赛的派生结果，与 rating 变更事件 1:1
type ContestHistoryEntry struct {
	ContestID        int       `json:"contestId"`
	ContestName      string    `json:"contestName"`
	Rank             int       `json:"rank"`
	RatingChange     int       `json:"ratingChange"`
	ProblemsUnsolved int       `json:"problemsUnsolved"`
	Date             time.Time `json:"date"`
}

// RatingBucket 100 分段的题目难度分布（如 "1200-1299"）
type RatingBucket struct {
	RatingRange string `json:"ratingRange"`
	Count       int    `json:"count"`
}

// MostDifficultProblem 已解出的最难题；无已解题时保持零值占位
type MostDifficultProblem struct {
	ProblemID string `json:"problemId,omitempty"`
	Rating    int    `json:"rating"`
	Name      string `json:"name,omitempty"`
}

// ProblemStats 做题统计
type ProblemStats struct {
	TotalSolved           int                  `json:"totalSolved"`
	AverageRating         int                  `json:"averageRating"`
	AverageProblemsPerDay float64              `json:"averageProblemsPerDay"`
	RatingDistribution    []RatingBucket       `json:"ratingDistribution"`
	MostDifficultSolved   MostDifficultProblem `json:"mostDifficultSolved"`
}

// HeatmapEntry 按 UTC 自然日聚合的提交次数（全部判定结果都计入）
type HeatmapEntry struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Analytics 一次同步派生出的完整分析结果（未绑定学生身份）
type Analytics struct {
	CurrentRating     int
	MaxRating         int
	ContestHistory    []ContestHistoryEntry
	ProblemStats      ProblemStats
	SubmissionHeatmap []HeatmapEntry
	LastActive        *time.Time
}
