package core

// UserProfile 是由交互历史实时派生的用户画像。
//
// 它不做持久化（每次请求重算）；只有派生出的 UserEmbedding 与 Interests
// 会在显式反馈后回写到 User 记录，作为下次冷启动的种子。
//
// 维度            作用
// 静态属性        冷启动 / 难度过滤
// 兴趣权重        兴趣匹配打分
// 用户向量        内容相似度检索
// 已读/喜欢集合   排除与反馈信号
type UserProfile struct {
	UserID       int64
	EnglishLevel string // 缺失按 B1
	LearningGoal string

	// Interests 是 category -> weight 的兴趣分布。
	// 由历史派生时归一化到总和为 1；无历史时回退到用户声明的偏好。
	Interests map[string]float64

	// UserEmbedding 是时间加权的喜欢文章向量（已 L2 归一化）；nil 表示无法派生。
	UserEmbedding []float64

	// 不变式：LikedArticles 与 DislikedArticles 互斥（最近一次反馈覆盖旧值）。
	LikedArticles    map[int64]struct{}
	DislikedArticles map[int64]struct{}
	ReadArticles     map[int64]struct{}

	// CategoryPreferences 是每个读过的类别的行为统计汇总。
	CategoryPreferences map[string]CategoryPreference

	EstimatedVocabulary int
}

// CategoryPreference 是单个类别的行为统计。
type CategoryPreference struct {
	Reads    int
	Likes    int
	Dislikes int

	// AvgCompletion 该类别的平均完成率。
	AvgCompletion float64

	// EngagementScore 派生的参与度分数，取值 [0, 1]。
	EngagementScore float64
}

// LevelNum 返回用户 CEFR 等级对应的整数。
func (p *UserProfile) LevelNum() int {
	if p == nil {
		return LevelNum(DefaultLevel)
	}
	return LevelNum(p.EnglishLevel)
}

// InterestWeight 返回用户对某类别的兴趣权重；未知类别返回 0。
func (p *UserProfile) InterestWeight(category string) float64 {
	if p == nil || p.Interests == nil {
		return 0
	}
	return p.Interests[category]
}

// IsNewUser 判断用户是否缺少足够的行为信号（冷启动条件）：
// 阅读少于 5 篇，或者派生不出用户向量。
func (p *UserProfile) IsNewUser() bool {
	if p == nil {
		return true
	}
	return len(p.ReadArticles) < 5 || p.UserEmbedding == nil
}

// Excluded 返回推荐时需要排除的文章集合（已读 ∪ 不喜欢）。
func (p *UserProfile) Excluded() map[int64]struct{} {
	out := make(map[int64]struct{}, len(p.ReadArticles)+len(p.DislikedArticles))
	for id := range p.ReadArticles {
		out[id] = struct{}{}
	}
	for id := range p.DislikedArticles {
		out[id] = struct{}{}
	}
	return out
}
