// Package profile 将原始交互历史聚合为用户画像。
package profile

import (
	"context"
	"math"

	"github.com/lingoread/recommender/core"
)

const (
	// maxLikedEmbeddings 参与加权平均的喜欢文章上限（取最近的）。
	maxLikedEmbeddings = 20

	// maxDislikedEmbeddings 参与排斥项的不喜欢文章上限（取最近的）。
	maxDislikedEmbeddings = 10

	// minLikedForDerive 喜欢数低于该值时优先复用存储的历史向量。
	minLikedForDerive = 3

	// dislikeRepulsion 不喜欢方向的排斥系数（软排斥，不是硬排除）。
	dislikeRepulsion = 0.2
)

// Builder 从存储层读取交互历史，派生 core.UserProfile。
// 每次调用全量重算，不做缓存；零历史用户得到合法的冷启动画像而非错误。
type Builder struct {
	Users    core.UserStore
	Articles core.ArticleStore
	History  core.HistoryStore
}

// NewBuilder 创建画像构建器。
func NewBuilder(users core.UserStore, articles core.ArticleStore, history core.HistoryStore) *Builder {
	return &Builder{Users: users, Articles: articles, History: history}
}

// Build 构建用户画像；未知用户返回 (nil, nil)。
func (b *Builder) Build(ctx context.Context, userID int64) (*core.UserProfile, error) {
	user, err := b.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	history, err := b.History.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 同一文章只保留最近一条记录（反馈覆盖语义），
	// 保证 liked 与 disliked 集合互斥。
	records := dedupeByArticle(history)

	articleIDs := make([]int64, 0, len(records))
	for _, r := range records {
		articleIDs = append(articleIDs, r.ArticleID)
	}
	articles, err := b.Articles.GetArticles(ctx, articleIDs)
	if err != nil {
		return nil, err
	}

	p := &core.UserProfile{
		UserID:              userID,
		EnglishLevel:        levelOrDefault(user.EnglishLevel),
		LearningGoal:        user.LearningGoal,
		LikedArticles:       make(map[int64]struct{}),
		DislikedArticles:    make(map[int64]struct{}),
		ReadArticles:        make(map[int64]struct{}),
		EstimatedVocabulary: user.EstimatedVocabulary,
	}

	stats := make(map[string]*categoryStats)
	var likedEmbeddings, dislikedEmbeddings [][]float64 // 最新在前

	for _, record := range records {
		article, ok := articles[record.ArticleID]
		if !ok || article == nil {
			continue
		}

		p.ReadArticles[article.ID] = struct{}{}
		cat := article.CategoryKey()
		cs := stats[cat]
		if cs == nil {
			cs = &categoryStats{}
			stats[cat] = cs
		}
		cs.reads++
		cs.totalCompletion += record.CompletionRate
		cs.totalTime += record.TimeSpent

		switch record.Liked {
		case core.FeedbackLiked:
			p.LikedArticles[article.ID] = struct{}{}
			cs.likes++
			if len(article.Embedding) > 0 {
				likedEmbeddings = append(likedEmbeddings, article.Embedding)
			}
		case core.FeedbackDisliked:
			p.DislikedArticles[article.ID] = struct{}{}
			cs.dislikes++
			if len(article.Embedding) > 0 {
				dislikedEmbeddings = append(dislikedEmbeddings, article.Embedding)
			}
		}
	}

	p.UserEmbedding = deriveUserEmbedding(likedEmbeddings, dislikedEmbeddings, user.Embedding)
	p.Interests = deriveInterests(stats, user.Interests)
	p.CategoryPreferences = derivePreferences(stats)

	return p, nil
}

// categoryStats 是单个类别的累计计数。
type categoryStats struct {
	reads           int
	likes           int
	dislikes        int
	totalCompletion float64
	totalTime       int64
}

// dedupeByArticle 按文章去重，保留最近一条（输入最新在前）。
func dedupeByArticle(history []*core.ReadingRecord) []*core.ReadingRecord {
	seen := make(map[int64]struct{}, len(history))
	out := make([]*core.ReadingRecord, 0, len(history))
	for _, r := range history {
		if r == nil {
			continue
		}
		if _, ok := seen[r.ArticleID]; ok {
			continue
		}
		seen[r.ArticleID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// deriveUserEmbedding 计算用户向量。
//
// 算法：
//  1. 取最近 maxLikedEmbeddings 篇喜欢文章的向量做时间加权平均，
//     权重按 exp(linspace(-1, 0, n)) 指数爬升（最新权重最高，几何衰减）
//  2. 若有不喜欢向量（最近 maxDislikedEmbeddings 篇），减去其均值的
//     dislikeRepulsion 倍
//  3. L2 归一化
//
// 行为数据不足（喜欢数 < minLikedForDerive）时优先复用存储的历史向量；
// 两者都没有时返回 nil（画像不携带向量，走冷启动）。
func deriveUserEmbedding(liked, disliked [][]float64, stored []float64) []float64 {
	if len(liked) < minLikedForDerive && len(stored) > 0 {
		out := make([]float64, len(stored))
		copy(out, stored)
		return out
	}
	if len(liked) == 0 {
		return nil
	}

	if len(liked) > maxLikedEmbeddings {
		liked = liked[:maxLikedEmbeddings]
	}

	dim := len(liked[0])
	n := len(liked)
	weights := recencyWeights(n)

	// liked 最新在前：weights[0] 对应最新一篇。
	avg := make([]float64, dim)
	for i, vec := range liked {
		if len(vec) != dim {
			continue
		}
		w := weights[i]
		for d := 0; d < dim; d++ {
			avg[d] += w * vec[d]
		}
	}

	if len(disliked) > 0 {
		if len(disliked) > maxDislikedEmbeddings {
			disliked = disliked[:maxDislikedEmbeddings]
		}
		mean := make([]float64, dim)
		var count float64
		for _, vec := range disliked {
			if len(vec) != dim {
				continue
			}
			for d := 0; d < dim; d++ {
				mean[d] += vec[d]
			}
			count++
		}
		if count > 0 {
			for d := 0; d < dim; d++ {
				avg[d] -= dislikeRepulsion * mean[d] / count
			}
		}
	}

	return core.L2Normalize(avg)
}

// recencyWeights 返回长度 n、总和为 1 的时间衰减权重。
// 权重按 exp 从 0 到 -1 衰减：索引 0（最新）最高，末尾（最旧）最低。
func recencyWeights(n int) []float64 {
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = 1
		return weights
	}
	var sum float64
	for i := 0; i < n; i++ {
		weights[i] = math.Exp(-float64(i) / float64(n-1))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// deriveInterests 计算各类别的兴趣权重。
//
// 每个类别：read_share*0.3 + like_rate*0.4 + completion_rate*0.3 - dislike_rate*0.3，
// 负分截断为 0，再整体归一化到总和为 1。
// 无阅读历史时回退到用户声明的偏好。
func deriveInterests(stats map[string]*categoryStats, declared map[string]float64) map[string]float64 {
	if len(stats) == 0 {
		return copyWeights(declared)
	}

	var totalReads int
	for _, cs := range stats {
		totalReads += cs.reads
	}
	if totalReads == 0 {
		return copyWeights(declared)
	}

	interests := make(map[string]float64, len(stats))
	var total float64
	for cat, cs := range stats {
		reads := float64(cs.reads)
		readShare := reads / float64(totalReads)
		likeRate := float64(cs.likes) / reads
		dislikeRate := float64(cs.dislikes) / reads
		completion := cs.totalCompletion / reads

		score := readShare*0.3 + likeRate*0.4 + completion*0.3 - dislikeRate*0.3
		if score < 0 {
			score = 0
		}
		interests[cat] = score
		total += score
	}

	if total > 0 {
		for cat := range interests {
			interests[cat] /= total
		}
	}
	return interests
}

// derivePreferences 汇总各类别的行为统计与参与度分。
func derivePreferences(stats map[string]*categoryStats) map[string]core.CategoryPreference {
	if len(stats) == 0 {
		return nil
	}
	out := make(map[string]core.CategoryPreference, len(stats))
	for cat, cs := range stats {
		if cs.reads == 0 {
			continue
		}
		out[cat] = core.CategoryPreference{
			Reads:           cs.reads,
			Likes:           cs.likes,
			Dislikes:        cs.dislikes,
			AvgCompletion:   cs.totalCompletion / float64(cs.reads),
			EngagementScore: engagementScore(cs),
		}
	}
	return out
}

// engagementScore 计算类别参与度：like_rate*0.4 + avg_completion*0.4 - dislike_rate*0.2，
// 截断到 [0, 1]。
func engagementScore(cs *categoryStats) float64 {
	if cs.reads == 0 {
		return 0
	}
	reads := float64(cs.reads)
	score := float64(cs.likes)/reads*0.4 + cs.totalCompletion/reads*0.4 - float64(cs.dislikes)/reads*0.2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func levelOrDefault(level string) string {
	if _, ok := core.LevelMap[level]; ok {
		return level
	}
	return core.DefaultLevel
}

func copyWeights(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
