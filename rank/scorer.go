// Package rank 实现候选文章的多信号加权打分与推荐理由生成。
package rank

import (
	"strings"
	"time"

	"github.com/lingoread/recommender/core"
)

// Weights 是五个子分数的融合权重。策略常量，可经配置调整，不做学习。
type Weights struct {
	ContentSimilarity float64
	LevelFit          float64
	InterestMatch     float64
	Engagement        float64
	Freshness         float64
}

// DefaultWeights 返回默认融合权重。
func DefaultWeights() Weights {
	return Weights{
		ContentSimilarity: 0.35, // 内容相似度
		LevelFit:          0.25, // 难度匹配
		InterestMatch:     0.20, // 兴趣匹配
		Engagement:        0.10, // 参与度信号
		Freshness:         0.10, // 新鲜度
	}
}

const (
	// harderDiscount 偏难文章的难度差折扣：稍难比稍易更利于学习。
	harderDiscount = 0.8

	// levelFitStep 每一级难度差扣除的匹配分。
	levelFitStep = 0.3

	// levelPenaltyStep 每一级难度差累积的排除惩罚。
	levelPenaltyStep = 0.25

	// maxLevelPenalty 超过该惩罚的候选直接排除（约两级以上的难度鸿沟）。
	maxLevelPenalty = 0.5

	// defaultInterest 用户未接触过的类别的兴趣保底分，避免新类别永远为零。
	defaultInterest = 0.1

	// freshnessWindowDays 新鲜度线性衰减窗口（天）。
	freshnessWindowDays = 30

	// viewsNorm 浏览量归一化基准。
	viewsNorm = 100
)

// Result 是单篇候选的打分结果。
type Result struct {
	Breakdown core.ScoreBreakdown

	// Final 最终加权分。
	Final float64

	// LevelPenalty 难度排除惩罚，仅用于排除判定，不进入加权和。
	LevelPenalty float64

	// Reason 人类可读的推荐理由（最多两条）。
	Reason string
}

// Excluded 判断难度鸿沟是否过大，候选应整体剔除。
func (r Result) Excluded() bool {
	return r.LevelPenalty > maxLevelPenalty
}

// Scorer 对单篇候选文章计算五个 [0, 1] 子分数并加权融合。
// Now 可注入以便测试；nil 时使用 time.Now。
type Scorer struct {
	Weights Weights
	Now     func() time.Time
}

// NewScorer 创建使用默认权重的打分器。
func NewScorer() *Scorer {
	return &Scorer{Weights: DefaultWeights()}
}

// Score 打分。similarity 是索引检索得到的余弦相似度（[-1, 1]）；
// userLevel 是用户 CEFR 等级整数；interests 是用户兴趣权重分布。
func (s *Scorer) Score(article *core.ArticleRecord, similarity float64, userLevel int, interests map[string]float64) Result {
	var r Result

	// 1. 内容相似度：[-1,1] -> [0,1]
	r.Breakdown.ContentSimilarity = clamp01((similarity + 1) / 2)

	// 2. 难度匹配：偏难一点比偏简单好（学习目的），难度差打折后再计分
	levelDiff := float64(article.LevelNum() - userLevel)
	if levelDiff > 0 {
		levelDiff *= harderDiscount
	} else {
		levelDiff = -levelDiff
	}
	r.Breakdown.LevelFit = clamp01(1 - levelDiff*levelFitStep)
	r.LevelPenalty = levelDiff * levelPenaltyStep

	// 3. 兴趣匹配：未接触类别给保底分
	interest, ok := interests[article.CategoryKey()]
	if !ok {
		interest = defaultInterest
	}
	r.Breakdown.InterestMatch = interest

	// 4. 参与度：完成率（质量）权重高于浏览量（热度）
	completion := article.AvgCompletionRate
	if completion > 1 {
		completion = 1
	}
	views := float64(article.Views) / viewsNorm
	if views > 1 {
		views = 1
	}
	r.Breakdown.Engagement = completion*0.7 + views*0.3

	// 5. 新鲜度：30 天内线性衰减；创建时间未知给中性分
	r.Breakdown.Freshness = s.freshness(article.CreatedAt)

	r.Final = r.Breakdown.ContentSimilarity*s.Weights.ContentSimilarity +
		r.Breakdown.LevelFit*s.Weights.LevelFit +
		r.Breakdown.InterestMatch*s.Weights.InterestMatch +
		r.Breakdown.Engagement*s.Weights.Engagement +
		r.Breakdown.Freshness*s.Weights.Freshness

	r.Reason = buildReason(r.Breakdown, article.CategoryKey())
	return r
}

func (s *Scorer) freshness(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0.5
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	days := now().Sub(createdAt).Hours() / 24
	return clamp01(1 - days/freshnessWindowDays)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// buildReason 根据子分数阈值拼装推荐理由，最多取前两条。
func buildReason(b core.ScoreBreakdown, category string) string {
	reasons := make([]string, 0, 2)

	if b.ContentSimilarity > 0.7 {
		reasons = append(reasons, "Similar to articles you liked")
	}
	if b.LevelFit > 0.8 {
		reasons = append(reasons, "Perfect difficulty for your level")
	} else if b.LevelFit > 0.6 {
		reasons = append(reasons, "Good challenge for improvement")
	}
	if len(reasons) < 2 && b.InterestMatch > 0.3 {
		reasons = append(reasons, "Matches your interest in "+category)
	}
	if len(reasons) < 2 && b.Engagement > 0.7 {
		reasons = append(reasons, "Highly rated by other learners")
	}
	if len(reasons) < 2 && b.Freshness > 0.8 {
		reasons = append(reasons, "Fresh content")
	}

	if len(reasons) == 0 {
		return "Recommended for you"
	}
	return strings.Join(reasons, " • ")
}
