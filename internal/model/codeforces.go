package model

import (
	"encoding/json"
	"fmt"
)

// VerdictOK Codeforces 判题通过的哨兵值
const VerdictOK = "OK"

// CFResponse Codeforces API 统一响应包裹（status=OK/FAILED）
type CFResponse struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// CFUserInfo user.info 返回的用户档案，未定级用户无 rating 字段（零值兜底为 0）
type CFUserInfo struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
}

// CFRatingChange user.rating 返回的单场比赛 rating 变更事件
type CFRatingChange struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// CFProblem 题目信息，Rating 为 0 表示未定级题
type CFProblem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating,omitempty"`
}

// Key 题目复合键：contestId 与 index 直接拼接（如 "1700A"）
func (p CFProblem) Key() string {
	return fmt.Sprintf("%d%s", p.ContestID, p.Index)
}

// CFSubmission user.status 返回的单次判题记录
type CFSubmission struct {
	ID                  int64     `json:"id"`
	ContestID           int       `json:"contestId"`
	CreationTimeSeconds int64     `json:"creationTimeSeconds"`
	Problem             CFProblem `json:"problem"`
	Verdict             string    `json:"verdict"`
}
