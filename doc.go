// Package recommender 是面向语言学习场景的混合文章推荐子系统。
//
// 设计要点：
// - 双链路混合: 内容相似度检索（行为充足）+ 冷启动热门（行为不足）互补
// - 画像实时派生: 每次请求从交互历史重算，只有用户向量与兴趣权重回写持久层
// - 可解释: 每条推荐携带五维分数明细、人类可读理由与链路来源 label
package recommender

import (
	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/engine"
)

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type Engine = engine.Engine
type Option = engine.Option

type ArticleRecord = core.ArticleRecord
type User = core.User
type UserProfile = core.UserProfile
type ReadingRecord = core.ReadingRecord
type Recommendation = core.Recommendation
type ScoreBreakdown = core.ScoreBreakdown
type SimilarArticle = core.SimilarArticle

var (
	New                = engine.New
	WithWeights        = engine.WithWeights
	WithFilters        = engine.WithFilters
	WithEngagement     = engine.WithEngagement
	WithSearchBreadth  = engine.WithSearchBreadth
	WithMaxPerCategory = engine.WithMaxPerCategory
)
