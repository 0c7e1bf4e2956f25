// Package engine 是推荐子系统的编排层：组合向量索引、用户画像、
// 多信号打分、冷启动与过滤器，对外提供推荐、相似文章、画像与
// 向量回写等操作。
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/filter"
	"github.com/lingoread/recommender/pkg/utils"
	"github.com/lingoread/recommender/profile"
	"github.com/lingoread/recommender/rank"
	"github.com/lingoread/recommender/recall"
	"github.com/lingoread/recommender/vector"
)

const (
	// defaultLimit 未指定数量时的默认推荐条数。
	defaultLimit = 10

	// defaultSearchBreadth 内容检索的默认宽度（与语料规模取小）。
	defaultSearchBreadth = 200

	// maxSimilarK 相似文章检索的内部宽度上限。
	maxSimilarK = 50

	// overfetchFactor 内容链路收集候选的超额倍数，为排序与去重留余量。
	overfetchFactor = 2

	// engagementBatchSize 参与度刷新的单批文章数。
	engagementBatchSize = 100

	// engagementConcurrency 参与度刷新的并发批次数。
	engagementConcurrency = 4
)

// Engine 是混合推荐引擎。
//
// 推荐链路：
//  1. 构建用户画像，得到排除集（已读 ∪ 不喜欢）
//  2. 行为充足（读 >= 5 且有用户向量）走内容相似度检索 + 多信号打分
//  3. 数量不足时用冷启动（难度带热门 + 多样性）补齐
//  4. 去重、补全文章详情、按分数降序截断
//
// 索引重建（BuildIndex / BuildFromStore）与参与度刷新（RefreshEngagement）
// 是维护操作，调用方在请求路径之外周期触发；与 Recommend 并发安全。
type Engine struct {
	index    *vector.Index
	profiles *profile.Builder
	cold     *recall.ColdStart
	scorer   *rank.Scorer

	articles core.ArticleStore
	users    core.UserStore

	filters       []filter.Filter
	engagement    core.EngagementSource
	searchBreadth int
}

// Option 是引擎配置选项。
type Option func(*Engine)

// WithWeights 设置打分融合权重。
func WithWeights(w rank.Weights) Option {
	return func(e *Engine) {
		e.scorer.Weights = w
	}
}

// WithFilters 追加候选过滤器（黑名单、运营规则等）。
func WithFilters(filters ...filter.Filter) Option {
	return func(e *Engine) {
		e.filters = append(e.filters, filters...)
	}
}

// WithEngagement 注入实时参与度来源（如 Feast 在线特征库）。
func WithEngagement(src core.EngagementSource) Option {
	return func(e *Engine) {
		e.engagement = src
	}
}

// WithSearchBreadth 设置内容检索宽度；0 表示默认 200。
func WithSearchBreadth(k int) Option {
	return func(e *Engine) {
		e.searchBreadth = k
	}
}

// WithMaxPerCategory 设置冷启动单类别多样性上限。
func WithMaxPerCategory(n int) Option {
	return func(e *Engine) {
		e.cold.MaxPerCategory = n
	}
}

// WithNow 注入时钟（测试新鲜度用）。
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.scorer.Now = now
	}
}

// New 创建推荐引擎。
func New(articles core.ArticleStore, users core.UserStore, history core.HistoryStore, opts ...Option) *Engine {
	e := &Engine{
		index:         vector.New(),
		profiles:      profile.NewBuilder(users, articles, history),
		cold:          recall.NewColdStart(users, articles),
		scorer:        rank.NewScorer(),
		articles:      articles,
		users:         users,
		searchBreadth: defaultSearchBreadth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index 返回底层向量索引（观测与测试用）。
func (e *Engine) Index() *vector.Index { return e.index }

// BuildIndex 从给定文章快照重建向量索引（原子替换）。
func (e *Engine) BuildIndex(articles []*core.ArticleRecord) {
	e.index.Build(articles)
}

// BuildFromStore 从文章存储拉取全量快照并重建索引。
func (e *Engine) BuildFromStore(ctx context.Context) error {
	articles, err := e.articles.ListArticles(ctx)
	if err != nil {
		return err
	}
	e.index.Build(articles)
	return nil
}

// Recommend 为用户产出最多 limit 条推荐；未知用户返回空结果。
// limit <= 0 时使用默认条数。
func (e *Engine) Recommend(ctx context.Context, userID int64, limit int) ([]*core.Recommendation, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	p, err := e.profiles.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	excluded := p.Excluded()

	var recs []*core.Recommendation
	if !p.IsNewUser() && e.index.Ready() {
		recs = e.contentBased(ctx, p, limit, excluded)
	}

	// 不足时冷启动补齐；已收集的候选一并排除，避免两条链路重复
	if len(recs) < limit {
		fillExcluded := make(map[int64]struct{}, len(excluded)+len(recs))
		for id := range excluded {
			fillExcluded[id] = struct{}{}
		}
		for _, rec := range recs {
			fillExcluded[rec.Article.ID] = struct{}{}
		}

		fill, err := e.cold.Recommend(ctx, userID, limit-len(recs), fillExcluded)
		if err != nil {
			return nil, err
		}
		for _, rec := range fill {
			if filter.Apply(ctx, e.filters, p, rec.Article) {
				continue
			}
			recs = append(recs, rec)
		}
	}

	recs = dedupe(recs)

	recs, err = e.hydrate(ctx, recs)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// contentBased 执行内容相似度链路：检索、过滤、打分、收集。
func (e *Engine) contentBased(ctx context.Context, p *core.UserProfile, limit int, excluded map[int64]struct{}) []*core.Recommendation {
	breadth := e.searchBreadth
	if breadth <= 0 {
		breadth = defaultSearchBreadth
	}
	if size := e.index.Size(); breadth > size {
		breadth = size
	}

	results := e.index.Search(p.UserEmbedding, breadth)
	userLevel := p.LevelNum()

	out := make([]*core.Recommendation, 0, limit*overfetchFactor)
	for _, hit := range results {
		if _, ok := excluded[hit.ID]; ok {
			continue
		}
		article, ok := e.index.Meta(hit.ID)
		if !ok {
			continue
		}
		if filter.Apply(ctx, e.filters, p, article) {
			continue
		}

		scored := e.scorer.Score(article, hit.Score, userLevel, p.Interests)
		if scored.Excluded() {
			continue
		}

		rec := &core.Recommendation{
			Article:   article,
			Score:     scored.Final,
			Reason:    scored.Reason,
			Breakdown: scored.Breakdown,
		}
		rec.PutLabel("source", utils.Label{Value: "content_based", Source: "engine"})
		out = append(out, rec)

		if len(out) >= limit*overfetchFactor {
			break
		}
	}
	return out
}

// dedupe 按文章 ID 去重，先到先得。
func dedupe(recs []*core.Recommendation) []*core.Recommendation {
	seen := make(map[int64]struct{}, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		if rec == nil || rec.Article == nil {
			continue
		}
		if _, ok := seen[rec.Article.ID]; ok {
			continue
		}
		seen[rec.Article.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// hydrate 用存储中的完整记录替换索引元数据快照（补全正文等展示字段）。
// 存储中已不存在的文章（建索引后被下线）被剔除。
func (e *Engine) hydrate(ctx context.Context, recs []*core.Recommendation) ([]*core.Recommendation, error) {
	if len(recs) == 0 {
		return recs, nil
	}
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.Article.ID)
	}
	full, err := e.articles.GetArticles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, rec := range recs {
		article, ok := full[rec.Article.ID]
		if !ok || article == nil {
			continue
		}
		rec.Article = article
		out = append(out, rec)
	}
	return out, nil
}

// GetSimilarArticles 返回与指定文章最相似的 limit 篇
// （不含其自身，不含 excluded 中的 ID）。
//
// 文章不在索引中时（如 embedding 缺失后入库），回退到存储按其向量检索；
// 两者都不可用返回空结果。
func (e *Engine) GetSimilarArticles(ctx context.Context, articleID int64, limit int, excluded map[int64]struct{}) ([]core.SimilarArticle, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	k := maxSimilarK
	if size := e.index.Size(); k > size {
		k = size
	}

	results := e.index.SearchByID(articleID, k)
	if results == nil {
		article, err := e.articles.GetArticle(ctx, articleID)
		if err != nil {
			return nil, err
		}
		if article == nil || !article.HasEmbedding() {
			return nil, nil
		}
		results = e.index.Search(article.Embedding, k)
	}

	out := make([]core.SimilarArticle, 0, limit)
	for _, hit := range results {
		if hit.ID == articleID {
			continue
		}
		if _, ok := excluded[hit.ID]; ok {
			continue
		}
		article, ok := e.index.Meta(hit.ID)
		if !ok {
			continue
		}
		out = append(out, core.SimilarArticle{
			ID:              article.ID,
			Title:           article.Title,
			Category:        article.Category,
			DifficultyLevel: article.DifficultyLevel,
			SimilarityScore: hit.Score,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetUserProfile 构建并返回用户画像；未知用户返回 (nil, nil)。
func (e *Engine) GetUserProfile(ctx context.Context, userID int64) (*core.UserProfile, error) {
	return e.profiles.Build(ctx, userID)
}

// UpdateUserEmbedding 在显式反馈后重算并回写用户向量与兴趣权重。
// 返回是否发生了回写：没有喜欢记录或派生不出向量时返回 (false, nil)。
func (e *Engine) UpdateUserEmbedding(ctx context.Context, userID int64) (bool, error) {
	p, err := e.profiles.Build(ctx, userID)
	if err != nil {
		return false, err
	}
	if p == nil || len(p.LikedArticles) == 0 || p.UserEmbedding == nil {
		return false, nil
	}
	if err := e.users.SaveUserModel(ctx, userID, p.UserEmbedding, p.Interests); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshEngagement 批量拉取实时参与度并刷新索引元数据。
// 未注入参与度来源时是空操作。批次并发执行，整体失败返回首个错误。
func (e *Engine) RefreshEngagement(ctx context.Context) error {
	if e.engagement == nil {
		return nil
	}

	ids := e.index.IDs()
	if len(ids) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		stats = make(map[int64]core.EngagementStats, len(ids))
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(engagementConcurrency)

	for start := 0; start < len(ids); start += engagementBatchSize {
		end := start + engagementBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		eg.Go(func() error {
			got, err := e.engagement.ArticleStats(ctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, s := range got {
				stats[id] = s
			}
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	e.index.UpdateEngagement(stats)
	return nil
}
