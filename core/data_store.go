package core

import "context"

// 推荐子系统的数据面接口。接口定义在领域层，由 store 包（或业务方自己的
// 数据层）实现。数据缺失一律返回 (nil, nil) / 空切片，而不是错误。

// ArticleStore 提供文章数据访问。
type ArticleStore interface {
	// GetArticle 按 ID 获取文章；不存在返回 (nil, nil)。
	GetArticle(ctx context.Context, id int64) (*ArticleRecord, error)

	// GetArticles 批量获取文章；缺失的 ID 不出现在结果中。
	GetArticles(ctx context.Context, ids []int64) (map[int64]*ArticleRecord, error)

	// ListArticles 返回全量文章快照（建索引用）。
	ListArticles(ctx context.Context) ([]*ArticleRecord, error)

	// ListByLevels 返回指定难度等级内、排除 excluded 的候选文章，
	// 按 (平均完成率 desc, 浏览量 desc) 排序，最多 limit 篇。
	// limit <= 0 表示不限制。
	ListByLevels(ctx context.Context, levels []string, excluded map[int64]struct{}, limit int) ([]*ArticleRecord, error)
}

// UserStore 提供用户记录访问与模型回写。
type UserStore interface {
	// GetUser 按 ID 获取用户；不存在返回 (nil, nil)。
	GetUser(ctx context.Context, id int64) (*User, error)

	// SaveUserModel 原子回写用户向量与兴趣权重（整体成功或整体失败，
	// 失败时旧值必须保持不变）。
	SaveUserModel(ctx context.Context, id int64, embedding []float64, interests map[string]float64) error
}

// HistoryStore 提供阅读历史访问。
type HistoryStore interface {
	// ListHistory 返回用户的阅读历史，按时间倒序（最新在前）。
	ListHistory(ctx context.Context, userID int64) ([]*ReadingRecord, error)
}

// EngagementStats 是单篇文章的实时参与度统计。
type EngagementStats struct {
	Views             int64
	AvgCompletionRate float64
}

// EngagementSource 提供实时参与度特征（如 Feast 在线特征库）。
// 可选依赖：没有它时打分使用建索引时的快照计数。
type EngagementSource interface {
	// ArticleStats 批量获取文章的参与度统计；缺失的 ID 不出现在结果中。
	ArticleStats(ctx context.Context, ids []int64) (map[int64]EngagementStats, error)

	// Close 释放底层连接。
	Close() error
}
