// Package recall 提供行为数据不足时的候选获取策略。
package recall

import (
	"context"

	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/pkg/utils"
)

const (
	// defaultMaxPerCategory 冷启动结果中单类别的多样性上限。
	defaultMaxPerCategory = 2

	// preferredThreshold 声明偏好被视为"偏好类别"的权重阈值。
	preferredThreshold = 0.1

	// candidateFactor 候选池相对目标数量的超额倍数，留出多样性筛选空间。
	candidateFactor = 3

	// baseScore 冷启动结果的合成基础分。
	baseScore = 0.5

	// preferredBonus 偏好类别的加分。
	preferredBonus = 0.2
)

// ColdStart 是冷启动推荐源：按用户水平 ±1 级圈定难度带，
// 以热度（完成率、浏览量）排序，并施加单类别多样性上限。
// 服务于新用户或派生不出向量的用户。
type ColdStart struct {
	Users    core.UserStore
	Articles core.ArticleStore

	// MaxPerCategory 单类别上限；0 表示默认值 2。
	MaxPerCategory int
}

// NewColdStart 创建冷启动推荐源。
func NewColdStart(users core.UserStore, articles core.ArticleStore) *ColdStart {
	return &ColdStart{Users: users, Articles: articles}
}

func (r *ColdStart) Name() string { return "recall.coldstart" }

// Recommend 产出冷启动推荐；未知用户返回空结果。
func (r *ColdStart) Recommend(ctx context.Context, userID int64, limit int, excluded map[int64]struct{}) ([]*core.Recommendation, error) {
	if limit <= 0 {
		return nil, nil
	}

	user, err := r.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	userLevel := user.EnglishLevel
	if _, ok := core.LevelMap[userLevel]; !ok {
		userLevel = core.DefaultLevel
	}

	// 可接受难度带：用户水平 ±1 级
	levels := core.LevelBand(userLevel, 1)

	candidates, err := r.Articles.ListByLevels(ctx, levels, excluded, limit*candidateFactor)
	if err != nil {
		return nil, err
	}

	// 声明偏好中权重超过阈值的类别视为偏好类别
	preferred := make(map[string]bool, len(user.Interests))
	for cat, weight := range user.Interests {
		if weight > preferredThreshold {
			preferred[cat] = true
		}
	}

	maxPerCategory := r.MaxPerCategory
	if maxPerCategory <= 0 {
		maxPerCategory = defaultMaxPerCategory
	}

	out := make([]*core.Recommendation, 0, limit)
	categoryCounts := make(map[string]int)

	// 候选已按 (完成率 desc, 浏览量 desc) 排序，顺序遍历即按热度选取
	for _, article := range candidates {
		cat := article.CategoryKey()
		if categoryCounts[cat] >= maxPerCategory {
			continue
		}

		isPreferred := preferred[cat]

		score := baseScore
		reason := "Popular in your level"
		if isPreferred {
			score += preferredBonus
			reason += " & matches your interests"
		}

		levelMatch := 0.7
		if article.DifficultyLevel == userLevel {
			levelMatch = 1.0
		}
		views := float64(article.Views) / 100
		if views > 1 {
			views = 1
		}

		rec := &core.Recommendation{
			Article: article,
			Score:   score,
			Reason:  reason,
			Breakdown: core.ScoreBreakdown{
				ContentSimilarity: 0.5, // 冷启动无相似度信号，给中性分
				LevelFit:          levelMatch,
				InterestMatch:     user.Interests[cat],
				Engagement:        views,
				Freshness:         0.8,
			},
		}
		rec.PutLabel("source", utils.Label{Value: "cold_start", Source: r.Name()})
		if isPreferred {
			rec.PutLabel("preferred_category", utils.Label{Value: cat, Source: r.Name()})
		}

		out = append(out, rec)
		categoryCounts[cat]++

		if len(out) >= limit {
			break
		}
	}

	return out, nil
}
