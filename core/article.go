package core

import (
	"strings"
	"time"
)

// ArticleRecord 是文章在推荐子系统内的只读快照：建索引时整体载入，
// 重建前不做增量更新。Embedding 缺失的文章可以进入冷启动推荐，
// 但永远不会出现在基于内容的相似度检索中。
type ArticleRecord struct {
	ID    int64
	Title string

	// Content 全文内容，仅用于结果回填展示，不参与打分。
	Content    string
	Category   string
	Source     string
	SourceName string

	// DifficultyLevel 是 CEFR 等级（A1-C2）；DifficultyScore 是上游打出的连续难度分。
	DifficultyLevel string
	DifficultyScore float64

	WordCount int

	// Embedding 由上游模型生成，维度不由本子系统约定（从首个有效向量推断）。
	Embedding []float64

	// 参与度计数器，由阅读事件在外部累积。
	Views             int64
	AvgCompletionRate float64

	// CreatedAt 用于新鲜度衰减；零值表示未知。
	CreatedAt time.Time
}

// CategoryKey 返回归一化后的类别（小写；缺失时为 "general"）。
func (a *ArticleRecord) CategoryKey() string {
	if a == nil || a.Category == "" {
		return "general"
	}
	return strings.ToLower(a.Category)
}

// LevelNum 返回文章 CEFR 等级对应的整数（缺失按 B1 处理）。
func (a *ArticleRecord) LevelNum() int {
	if a == nil {
		return LevelNum(DefaultLevel)
	}
	return LevelNum(a.DifficultyLevel)
}

// HasEmbedding 判断文章是否携带可索引的 embedding。
func (a *ArticleRecord) HasEmbedding() bool {
	return a != nil && ValidEmbedding(a.Embedding)
}
