package core

import "github.com/lingoread/recommender/pkg/utils"

// ScoreBreakdown 是五个子分数的明细，均在 [0, 1]，用于解释与调参观测。
type ScoreBreakdown struct {
	ContentSimilarity float64 `json:"content_similarity"`
	LevelFit          float64 `json:"level_fit"`
	InterestMatch     float64 `json:"interest_match"`
	Engagement        float64 `json:"engagement"`
	Freshness         float64 `json:"freshness"`
}

// Recommendation 是推荐结果的统一承载结构：最终分、解释、明细与展示字段。
// Labels 记录链路来源（content_based / cold_start），用于 explain 与观测。
type Recommendation struct {
	Article *ArticleRecord

	// Score 最终加权分；子分数有界但加权和不承诺上界。
	Score float64

	// Reason 人类可读的推荐理由。
	Reason string

	Breakdown ScoreBreakdown

	Labels map[string]utils.Label
}

// PutLabel 写入 Label；同名 key 按默认 Merge 规则累积。
func (r *Recommendation) PutLabel(key string, lbl utils.Label) {
	if r.Labels == nil {
		r.Labels = make(map[string]utils.Label)
	}
	if old, ok := r.Labels[key]; ok {
		r.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	r.Labels[key] = lbl
}

// SimilarArticle 是"更多类似文章"的结果项。
type SimilarArticle struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	DifficultyLevel string  `json:"difficulty_level"`
	SimilarityScore float64 `json:"similarity_score"`
}
