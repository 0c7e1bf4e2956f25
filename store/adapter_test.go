package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/lingoread/recommender/core"
)

func newTestAdapter(t *testing.T) (*DataAdapter, *MemoryStore) {
	t.Helper()
	kv := NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return NewDataAdapter(kv, "test"), kv
}

func TestMemoryStoreBasics(t *testing.T) {
	kv := NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("missing key should be not-found, got %v", err)
	}

	if err := kv.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}

	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("deleted key should be not-found, got %v", err)
	}
}

func TestMemoryStoreZRangeDescending(t *testing.T) {
	kv := NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	kv.ZAdd(ctx, "rank", 1, "low")
	kv.ZAdd(ctx, "rank", 9, "high")
	kv.ZAdd(ctx, "rank", 5, "mid")

	members, err := kv.ZRange(ctx, "rank", 0, -1)
	if err != nil {
		t.Fatalf("ZRange: %v", err)
	}
	want := []string{"high", "mid", "low"}
	if len(members) != len(want) {
		t.Fatalf("members = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("members = %v, want %v", members, want)
		}
	}
}

func TestAdapterArticleRoundtrip(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	article := &core.ArticleRecord{
		ID:                1,
		Title:             "Deep Sea Exploration",
		Content:           "body text",
		Category:          "science",
		DifficultyLevel:   "B2",
		WordCount:         800,
		Embedding:         []float64{0.1, 0.2, 0.3},
		Views:             42,
		AvgCompletionRate: 0.75,
		CreatedAt:         created,
	}
	if err := adapter.SaveArticle(ctx, article); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	got, err := adapter.GetArticle(ctx, 1)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got == nil || got.Title != article.Title || got.Category != article.Category {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding mismatch: %v", got.Embedding)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}

	missing, err := adapter.GetArticle(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("missing article should be (nil, nil), got %v, %v", missing, err)
	}
}

func TestAdapterMalformedEmbedding(t *testing.T) {
	adapter, kv := newTestAdapter(t)
	ctx := context.Background()

	raw := []byte(`{"id": 2, "title": "bad vector", "embedding": "oops"}`)
	if err := kv.HSet(ctx, "test:articles", "2", raw); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	got, err := adapter.GetArticle(ctx, 2)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	// 向量损坏不拖垮文章本身
	if got == nil || got.Title != "bad vector" {
		t.Fatalf("article should survive a bad embedding: %+v", got)
	}
	if got.Embedding != nil {
		t.Errorf("bad embedding should parse to nil, got %v", got.Embedding)
	}
}

func TestAdapterListByLevels(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	articles := []*core.ArticleRecord{
		{ID: 1, DifficultyLevel: "B1", AvgCompletionRate: 0.9, Views: 10},
		{ID: 2, DifficultyLevel: "B1", AvgCompletionRate: 0.9, Views: 50},
		{ID: 3, DifficultyLevel: "B1", AvgCompletionRate: 0.5, Views: 500},
		{ID: 4, DifficultyLevel: "C2", AvgCompletionRate: 1.0, Views: 999}, // 等级不符
		{ID: 5, DifficultyLevel: "B2", AvgCompletionRate: 0.3, Views: 1},
	}
	for _, a := range articles {
		if err := adapter.SaveArticle(ctx, a); err != nil {
			t.Fatalf("SaveArticle: %v", err)
		}
	}

	excluded := map[int64]struct{}{3: {}}
	got, err := adapter.ListByLevels(ctx, []string{"B1", "B2"}, excluded, 10)
	if err != nil {
		t.Fatalf("ListByLevels: %v", err)
	}

	// 完成率优先，浏览量次之：2 (0.9, 50) > 1 (0.9, 10) > 5 (0.3)
	wantOrder := []int64{2, 1, 5}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d articles, want %d", len(got), len(wantOrder))
	}
	for i, a := range got {
		if a.ID != wantOrder[i] {
			t.Errorf("position %d: got %d, want %d", i, a.ID, wantOrder[i])
		}
	}

	// limit 截断
	got, err = adapter.ListByLevels(ctx, []string{"B1", "B2"}, nil, 2)
	if err != nil {
		t.Fatalf("ListByLevels: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limit=2: got %d articles", len(got))
	}
}

func TestAdapterUserRoundtripAndModelWrite(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	user := &core.User{
		ID:           10,
		EnglishLevel: "B1",
		Interests:    map[string]float64{"science": 0.5},
	}
	if err := adapter.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	got, err := adapter.GetUser(ctx, 10)
	if err != nil || got == nil {
		t.Fatalf("GetUser: %v, %v", got, err)
	}
	if got.EnglishLevel != "B1" || got.Interests["science"] != 0.5 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	embedding := []float64{0.6, 0.8}
	interests := map[string]float64{"travel": 1}
	if err := adapter.SaveUserModel(ctx, 10, embedding, interests); err != nil {
		t.Fatalf("SaveUserModel: %v", err)
	}

	got, err = adapter.GetUser(ctx, 10)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[0] != 0.6 {
		t.Errorf("embedding not persisted: %v", got.Embedding)
	}
	if got.Interests["travel"] != 1 {
		t.Errorf("interests not persisted: %v", got.Interests)
	}
	// 回写不触碰其他字段
	if got.EnglishLevel != "B1" {
		t.Errorf("english level clobbered: %q", got.EnglishLevel)
	}

	if err := adapter.SaveUserModel(ctx, 404, embedding, interests); !core.IsNotFound(err) {
		t.Errorf("unknown user should be NOT_FOUND, got %v", err)
	}
}

func TestAdapterHistory(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	empty, err := adapter.ListHistory(ctx, 20)
	if err != nil || empty != nil {
		t.Errorf("empty history should be (nil, nil), got %v, %v", empty, err)
	}

	base := time.Now().Truncate(time.Second)
	for i := int64(1); i <= 3; i++ {
		record := &core.ReadingRecord{
			UserID:         20,
			ArticleID:      i,
			CompletionRate: 0.5,
			Liked:          core.FeedbackNone,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := adapter.AddHistory(ctx, record); err != nil {
			t.Fatalf("AddHistory: %v", err)
		}
	}

	// 对第 2 篇补充喜欢反馈：覆盖旧记录并提到最前
	if err := adapter.AddHistory(ctx, &core.ReadingRecord{
		UserID: 20, ArticleID: 2, CompletionRate: 1,
		Liked: core.FeedbackLiked, CreatedAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}

	history, err := adapter.ListHistory(ctx, 20)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d records, want 3 (same article deduped)", len(history))
	}
	if history[0].ArticleID != 2 || history[0].Liked != core.FeedbackLiked {
		t.Errorf("newest record should be the like on article 2: %+v", history[0])
	}
	for i := 1; i < len(history); i++ {
		if history[i].ArticleID == 2 {
			t.Error("stale record for article 2 should be dropped")
		}
	}
}

func TestAdapterListArticlesSkipsCorrupt(t *testing.T) {
	adapter, kv := newTestAdapter(t)
	ctx := context.Background()

	if err := adapter.SaveArticle(ctx, &core.ArticleRecord{ID: 1, Title: "ok"}); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}
	if err := kv.HSet(ctx, "test:articles", strconv.Itoa(2), []byte("not json")); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	all, err := adapter.ListArticles(ctx)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(all) != 1 || all[0].ID != 1 {
		t.Errorf("corrupt record should be skipped: %+v", all)
	}
}
