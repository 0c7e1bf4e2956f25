// Package vector 实现文章 embedding 的精确内积检索（flat index）。
//
// 所有入库向量 L2 归一化，内积即余弦相似度。索引从全量快照整体重建，
// 重建是原子替换：并发读者要么看到旧索引、要么看到新索引，
// 不会看到构建了一半的状态。
package vector

import (
	"sort"
	"sync"

	"github.com/lingoread/recommender/core"
)

// SearchResult 是单个检索结果项。
type SearchResult struct {
	// ID 文章 ID
	ID int64

	// Score 余弦相似度，取值 [-1, 1]
	Score float64
}

// Index 是文章向量的 flat 精确检索索引。
// 零值可用（空索引上的检索返回空结果，不报错）。
type Index struct {
	mu sync.RWMutex

	// MinDim 是可入库向量的最小维度；0 表示使用 core.MinEmbeddingDim。
	// 向量维度由首个有效向量推断，此后维度不一致的文章被跳过。
	MinDim int

	dim     int
	ids     []int64
	vectors [][]float64
	meta    map[int64]*core.ArticleRecord
}

// New 创建一个空索引。
func New() *Index {
	return &Index{MinDim: core.MinEmbeddingDim}
}

// Build 从文章快照整体重建索引。
//
// 规则：
//   - embedding 缺失、维度不足 MinDim、或与已推断维度不一致的文章被跳过
//   - 保留的向量全部 L2 归一化；元数据（类别、难度、参与度、创建时间、
//     归一化后的向量本身）存入 meta 供打分与 SearchByID 复用
//   - 全部无效时索引置空，后续检索返回空结果
func (ix *Index) Build(articles []*core.ArticleRecord) {
	minDim := ix.MinDim
	if minDim <= 0 {
		minDim = core.MinEmbeddingDim
	}

	var (
		dim     int
		ids     = make([]int64, 0, len(articles))
		vectors = make([][]float64, 0, len(articles))
		meta    = make(map[int64]*core.ArticleRecord, len(articles))
	)

	for _, a := range articles {
		if a == nil || len(a.Embedding) < minDim {
			continue
		}
		if dim == 0 {
			dim = len(a.Embedding)
		}
		if len(a.Embedding) != dim {
			continue
		}
		normalized := core.L2Normalize(a.Embedding)
		if normalized == nil {
			continue
		}

		record := *a
		record.Embedding = normalized
		ids = append(ids, a.ID)
		vectors = append(vectors, normalized)
		meta[a.ID] = &record
	}

	if len(ids) == 0 {
		dim = 0
		ids = nil
		vectors = nil
		meta = nil
	}

	ix.mu.Lock()
	ix.dim = dim
	ix.ids = ids
	ix.vectors = vectors
	ix.meta = meta
	ix.mu.Unlock()
}

// Search 返回与查询向量最相似的 k 篇文章（按余弦相似度降序）。
// 查询向量先归一化；k 超过语料规模时自动截断；
// 空索引/维度不匹配/零向量返回空结果。
func (ix *Index) Search(query []float64, k int) []SearchResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.ids) == 0 || k <= 0 || len(query) != ix.dim {
		return nil
	}

	q := core.L2Normalize(query)
	if q == nil {
		return nil
	}

	results := make([]SearchResult, len(ix.ids))
	for i, vec := range ix.vectors {
		results[i] = SearchResult{
			ID:    ix.ids[i],
			Score: core.InnerProduct(q, vec),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// SearchByID 以某篇已入库文章的向量为查询做检索（含该文章自身）。
// 文章不在索引中返回 nil。
func (ix *Index) SearchByID(id int64, k int) []SearchResult {
	ix.mu.RLock()
	record, ok := ix.meta[id]
	ix.mu.RUnlock()
	if !ok {
		return nil
	}
	return ix.Search(record.Embedding, k)
}

// Meta 返回文章入库时的元数据快照（含归一化向量）。
func (ix *Index) Meta(id int64) (*core.ArticleRecord, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	record, ok := ix.meta[id]
	return record, ok
}

// IDs 返回已索引文章 ID 的快照。
func (ix *Index) IDs() []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]int64, len(ix.ids))
	copy(out, ix.ids)
	return out
}

// Size 返回已索引的文章数。
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Dim 返回向量维度；空索引返回 0。
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Ready 判断索引是否已构建且非空。
func (ix *Index) Ready() bool {
	return ix.Size() > 0
}

// UpdateEngagement 用实时统计刷新元数据中的参与度计数器。
// 只更新计数，不触碰向量。Meta 交出的记录指针可能仍被并发读者持有，
// 因此写入采用复制替换：旧记录保持不变，map 指向新副本。
func (ix *Index) UpdateEngagement(stats map[int64]core.EngagementStats) {
	if len(stats) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for id, s := range stats {
		if record, ok := ix.meta[id]; ok {
			updated := *record
			updated.Views = s.Views
			updated.AvgCompletionRate = s.AvgCompletionRate
			ix.meta[id] = &updated
		}
	}
}
