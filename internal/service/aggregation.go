package service

import (
	"fmt"
	"time"

	"TrackerSync/internal/model"
)

// 本文件为纯函数聚合层：不做任何 I/O，相同输入必得相同输出，
// 由 SyncService 在拉取原始数据后调用。

// assumedContestSize 每场比赛按固定5题估算未解出数。
// 这是沿用下来的近似值，真实题数需要比赛元数据，历史数据口径依赖它，勿擅自修正。
const assumedContestSize = 5

// DeriveAnalytics 由三元原始数据派生完整分析结果（不含学生身份与落库时间戳）
func DeriveAnalytics(info model.CFUserInfo, ratingHistory []model.CFRatingChange, submissions []model.CFSubmission) *model.Analytics {
	stats, heatmap := DeriveProblemStats(submissions)
	return &model.Analytics{
		CurrentRating:     info.Rating,
		MaxRating:         info.MaxRating,
		ContestHistory:    DeriveContestHistory(ratingHistory, submissions),
		ProblemStats:      stats,
		SubmissionHeatmap: heatmap,
		LastActive:        lastActiveDate(submissions),
	}
}

// DeriveContestHistory 把每个 rating 变更事件 1:1 映射为比赛历史条目，保持输入顺序
// （平台返回顺序，通常为时间倒序）
func DeriveContestHistory(ratingHistory []model.CFRatingChange, submissions []model.CFSubmission) []model.ContestHistoryEntry {
	entries := make([]model.ContestHistoryEntry, 0, len(ratingHistory))
	for _, contest := range ratingHistory {
		entries = append(entries, model.ContestHistoryEntry{
			ContestID:        contest.ContestID,
			ContestName:      contest.ContestName,
			Rank:             contest.Rank,
			RatingChange:     contest.NewRating - contest.OldRating,
			ProblemsUnsolved: countUnsolvedProblems(contest, submissions),
			Date:             time.Unix(contest.RatingUpdateTimeSeconds, 0).UTC(),
		})
	}
	return entries
}

// countUnsolvedProblems 赛末未解出题数 = 5 - 赛中（提交时间≤rating更新时间）通过的去重题数，下限0
func countUnsolvedProblems(contest model.CFRatingChange, submissions []model.CFSubmission) int {
	solved := make(map[string]struct{})
	for _, sub := range submissions {
		if sub.ContestID != contest.ContestID || sub.CreationTimeSeconds > contest.RatingUpdateTimeSeconds {
			continue
		}
		if sub.Verdict == model.VerdictOK {
			solved[sub.Problem.Key()] = struct{}{}
		}
	}
	if n := assumedContestSize - len(solved); n > 0 {
		return n
	}
	return 0
}

// DeriveProblemStats 单次遍历全部提交，产出做题统计与提交热力图。
//   - 仅当通过且题目有难度分时，该题第一次计入解题集合（先出现者赢得同分最难题）；
//   - 热力图对所有判定结果的提交按 UTC 自然日计数；
//   - 分布桶与热力图均保持首次出现顺序，保证相同输入产出逐字节一致。
func DeriveProblemStats(submissions []model.CFSubmission) (model.ProblemStats, []model.HeatmapEntry) {
	solvedProblems := make(map[string]struct{})
	bucketCounts := make(map[string]int)
	var bucketOrder []string
	totalRating := 0
	solvedCount := 0
	mostDifficult := model.MostDifficultProblem{Rating: 0}
	heatmapCounts := make(map[string]int)
	var heatmapOrder []string

	for _, sub := range submissions {
		if sub.Verdict == model.VerdictOK && sub.Problem.Rating > 0 {
			key := sub.Problem.Key()
			if _, seen := solvedProblems[key]; !seen {
				solvedProblems[key] = struct{}{}
				rating := sub.Problem.Rating

				// 难度分布：100分一桶
				bucket := rating / 100 * 100
				rangeKey := fmt.Sprintf("%d-%d", bucket, bucket+99)
				if _, ok := bucketCounts[rangeKey]; !ok {
					bucketOrder = append(bucketOrder, rangeKey)
				}
				bucketCounts[rangeKey]++

				// 最难题：严格大于才替换，同分保留先出现的
				if rating > mostDifficult.Rating {
					mostDifficult = model.MostDifficultProblem{
						ProblemID: key,
						Rating:    rating,
						Name:      sub.Problem.Name,
					}
				}

				totalRating += rating
				solvedCount++
			}
		}

		// 热力图：全部判定结果都计入
		if sub.CreationTimeSeconds > 0 {
			day := time.Unix(sub.CreationTimeSeconds, 0).UTC().Format("2006-01-02")
			if _, ok := heatmapCounts[day]; !ok {
				heatmapOrder = append(heatmapOrder, day)
			}
			heatmapCounts[day]++
		}
	}

	averageRating := 0
	if solvedCount > 0 {
		// 四舍五入到整数
		averageRating = int(float64(totalRating)/float64(solvedCount) + 0.5)
	}

	heatmap := make([]model.HeatmapEntry, 0, len(heatmapOrder))
	for _, day := range heatmapOrder {
		date, _ := time.ParseInLocation("2006-01-02", day, time.UTC)
		heatmap = append(heatmap, model.HeatmapEntry{Date: date, Count: heatmapCounts[day]})
	}

	distribution := make([]model.RatingBucket, 0, len(bucketOrder))
	for _, rangeKey := range bucketOrder {
		distribution = append(distribution, model.RatingBucket{RatingRange: rangeKey, Count: bucketCounts[rangeKey]})
	}

	return model.ProblemStats{
		TotalSolved:           len(solvedProblems),
		AverageRating:         averageRating,
		AverageProblemsPerDay: averagePerDay(len(solvedProblems), submissions),
		RatingDistribution:    distribution,
		MostDifficultSolved:   mostDifficult,
	}, heatmap
}

// averagePerDay 日均解题数 = 去重解题数 / max(1, 全部提交最早与最晚时间差的天数)。
// 时间差取绝对值且允许小数天；无提交返回0。
func averagePerDay(totalSolved int, submissions []model.CFSubmission) float64 {
	if len(submissions) == 0 {
		return 0
	}
	earliest, latest := submissions[0].CreationTimeSeconds, submissions[0].CreationTimeSeconds
	for _, sub := range submissions[1:] {
		if sub.CreationTimeSeconds < earliest {
			earliest = sub.CreationTimeSeconds
		}
		if sub.CreationTimeSeconds > latest {
			latest = sub.CreationTimeSeconds
		}
	}
	days := float64(latest-earliest) / (60 * 60 * 24)
	if days < 1 {
		days = 1
	}
	return float64(totalSolved) / days
}

// lastActiveDate 最近一次提交的时间，无提交返回nil
func lastActiveDate(submissions []model.CFSubmission) *time.Time {
	if len(submissions) == 0 {
		return nil
	}
	latest := submissions[0].CreationTimeSeconds
	for _, sub := range submissions[1:] {
		if sub.CreationTimeSeconds > latest {
			latest = sub.CreationTimeSeconds
		}
	}
	t := time.Unix(latest, 0).UTC()
	return &t
}
