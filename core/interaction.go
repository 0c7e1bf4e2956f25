package core

import "time"

// 显式反馈取值：同一用户对同一文章只保留最近一次反馈（覆盖，不累积）。
const (
	FeedbackDisliked = -1
	FeedbackNone     = 0
	FeedbackLiked    = 1
)

// ReadingRecord 是交互日志中的一条阅读记录。
// 任何一条记录都使文章进入"已读"集合；Liked 决定喜欢/不喜欢集合。
type ReadingRecord struct {
	UserID    int64
	ArticleID int64

	// CompletionRate 阅读完成率，取值 [0, 1]。
	CompletionRate float64

	// TimeSpent 阅读时长（秒）。
	TimeSpent int64

	// Liked ∈ {-1, 0, 1}。
	Liked int

	Bookmarked bool
	CreatedAt  time.Time
}
