package vector

import (
	"math"
	"testing"
	"time"

	"github.com/lingoread/recommender/core"
)

// pad 把低维向量补零到最小可索引维度，保持方向信息在前几维。
func pad(v ...float64) []float64 {
	out := make([]float64, core.MinEmbeddingDim)
	copy(out, v)
	return out
}

func testArticles() []*core.ArticleRecord {
	return []*core.ArticleRecord{
		{ID: 1, Title: "tech a", Category: "technology", Embedding: pad(1, 0)},
		{ID: 2, Title: "tech b", Category: "technology", Embedding: pad(0.9, 0.1)},
		{ID: 3, Title: "travel", Category: "travel", Embedding: pad(0, 1)},
	}
}

func TestIndexSearchOrdering(t *testing.T) {
	ix := New()
	ix.Build(testArticles())

	if ix.Size() != 3 {
		t.Fatalf("size = %d, want 3", ix.Size())
	}

	results := ix.Search(pad(1, 0), 3)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != 1 || results[1].ID != 2 || results[2].ID != 3 {
		t.Errorf("order = %v, want [1 2 3]", []int64{results[0].ID, results[1].ID, results[2].ID})
	}
	if math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("self similarity = %v, want 1", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not descending at %d", i)
		}
	}
}

func TestIndexBuildFilters(t *testing.T) {
	ix := New()
	ix.Build([]*core.ArticleRecord{
		{ID: 1, Embedding: pad(1, 0)},
		{ID: 2, Embedding: []float64{1, 0}},                   // 维度不足
		{ID: 3},                                               // 无向量
		{ID: 4, Embedding: make([]float64, core.MinEmbeddingDim)}, // 零向量
		{ID: 5, Embedding: make([]float64, core.MinEmbeddingDim+5)}, // 维度不一致
	})

	if ix.Size() != 1 {
		t.Fatalf("size = %d, want 1 (invalid embeddings skipped)", ix.Size())
	}
	if _, ok := ix.Meta(1); !ok {
		t.Error("article 1 should be indexed")
	}
	if _, ok := ix.Meta(2); ok {
		t.Error("short embedding should be skipped")
	}
}

func TestIndexRebuildSwap(t *testing.T) {
	ix := New()
	ix.Build(testArticles())
	if !ix.Ready() {
		t.Fatal("index should be ready after build")
	}

	// 重建为新快照：旧文章消失，新文章可检索
	ix.Build([]*core.ArticleRecord{{ID: 9, Embedding: pad(0.5, 0.5)}})
	if ix.Size() != 1 {
		t.Fatalf("size after rebuild = %d, want 1", ix.Size())
	}
	if _, ok := ix.Meta(1); ok {
		t.Error("old article should be gone after rebuild")
	}

	// 全部无效时索引置空
	ix.Build(nil)
	if ix.Ready() {
		t.Error("index should be empty after rebuilding from nil")
	}
	if got := ix.Search(pad(1, 0), 5); got != nil {
		t.Errorf("search on empty index = %v, want nil", got)
	}
}

func TestIndexSearchEdgeCases(t *testing.T) {
	ix := New()
	ix.Build(testArticles())

	if got := ix.Search([]float64{1, 0}, 5); got != nil {
		t.Errorf("dim mismatch should return nil, got %v", got)
	}
	if got := ix.Search(make([]float64, core.MinEmbeddingDim), 5); got != nil {
		t.Errorf("zero query should return nil, got %v", got)
	}
	if got := ix.Search(pad(1, 0), 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
	// k 超过语料规模自动截断
	if got := ix.Search(pad(1, 0), 100); len(got) != 3 {
		t.Errorf("k beyond corpus: got %d results, want 3", len(got))
	}
}

func TestIndexSearchByID(t *testing.T) {
	ix := New()
	ix.Build(testArticles())

	results := ix.SearchByID(1, 3)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != 1 {
		t.Errorf("first result should be the article itself, got %d", results[0].ID)
	}

	if got := ix.SearchByID(999, 3); got != nil {
		t.Errorf("unknown article should return nil, got %v", got)
	}
}

func TestIndexUpdateEngagement(t *testing.T) {
	ix := New()
	articles := testArticles()
	articles[0].CreatedAt = time.Now()
	ix.Build(articles)

	ix.UpdateEngagement(map[int64]core.EngagementStats{
		1:   {Views: 500, AvgCompletionRate: 0.9},
		999: {Views: 1}, // 不在索引中，忽略
	})

	meta, ok := ix.Meta(1)
	if !ok {
		t.Fatal("article 1 missing")
	}
	if meta.Views != 500 || meta.AvgCompletionRate != 0.9 {
		t.Errorf("engagement not updated: views=%d completion=%v", meta.Views, meta.AvgCompletionRate)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("non-engagement fields must not be touched")
	}
}

// 刷新采用复制替换：先前取到的元数据指针不被原地改写，
// 新的 Meta 调用才看到新计数。
func TestIndexUpdateEngagementSnapshotIsolation(t *testing.T) {
	ix := New()
	ix.Build(testArticles())

	before, ok := ix.Meta(1)
	if !ok {
		t.Fatal("article 1 missing")
	}
	oldViews := before.Views

	ix.UpdateEngagement(map[int64]core.EngagementStats{
		1: {Views: oldViews + 100, AvgCompletionRate: 0.95},
	})

	if before.Views != oldViews {
		t.Errorf("held snapshot mutated in place: views=%d, want %d", before.Views, oldViews)
	}
	after, _ := ix.Meta(1)
	if after.Views != oldViews+100 || after.AvgCompletionRate != 0.95 {
		t.Errorf("refreshed meta: views=%d completion=%v", after.Views, after.AvgCompletionRate)
	}
}

func TestIndexUpdateEngagementConcurrentReads(t *testing.T) {
	ix := New()
	ix.Build(testArticles())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			ix.UpdateEngagement(map[int64]core.EngagementStats{
				1: {Views: int64(i), AvgCompletionRate: 0.5},
				2: {Views: int64(i), AvgCompletionRate: 0.6},
			})
		}
	}()

	for i := 0; i < 200; i++ {
		if meta, ok := ix.Meta(1); ok {
			_ = meta.Views + meta.Views
		}
		if results := ix.Search(pad(1, 0), 3); len(results) == 0 {
			t.Fatal("search returned empty on built index")
		}
	}
	<-done
}

func TestIndexMinDimOverride(t *testing.T) {
	ix := New()
	ix.MinDim = 2
	ix.Build([]*core.ArticleRecord{
		{ID: 1, Embedding: []float64{1, 0}},
		{ID: 2, Embedding: []float64{0, 1}},
	})
	if ix.Size() != 2 {
		t.Fatalf("size = %d, want 2 with MinDim=2", ix.Size())
	}
	results := ix.Search([]float64{1, 0}, 1)
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("unexpected results %v", results)
	}
}
