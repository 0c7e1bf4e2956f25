package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, "conf.yaml", `
recommend:
  weights:
    content_similarity: 0.5
    freshness: 0.05
  search_breadth: 100
  max_per_category: 3
  rules:
    - article.word_count > 3000
  blacklist: [7, 8]

redis:
  addr: localhost:6379
  db: 2
  key_prefix: lingo

feast:
  endpoint: localhost:6565
  project: lingoread
`)

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}

	if cfg.Recommend.SearchBreadth != 100 || cfg.Recommend.MaxPerCategory != 3 {
		t.Errorf("recommend config mismatch: %+v", cfg.Recommend)
	}
	if len(cfg.Recommend.Rules) != 1 || len(cfg.Recommend.Blacklist) != 2 {
		t.Errorf("rules/blacklist mismatch: %+v", cfg.Recommend)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 || cfg.Redis.KeyPrefix != "lingo" {
		t.Errorf("redis config mismatch: %+v", cfg.Redis)
	}
	if cfg.Feast.Endpoint != "localhost:6565" || cfg.Feast.Project != "lingoread" {
		t.Errorf("feast config mismatch: %+v", cfg.Feast)
	}

	// 配置项覆盖默认权重，未配置项保持默认
	w := cfg.Recommend.RankWeights()
	if w.ContentSimilarity != 0.5 || w.Freshness != 0.05 {
		t.Errorf("overridden weights = %+v", w)
	}
	if math.Abs(w.LevelFit-0.25) > 1e-9 || math.Abs(w.InterestMatch-0.20) > 1e-9 {
		t.Errorf("default weights should survive partial override: %+v", w)
	}
}

func TestLoadFromYAMLErrors(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}

	path := writeConfig(t, "bad.yaml", "recommend: [not a map")
	if _, err := LoadFromYAML(path); err == nil {
		t.Error("malformed yaml should error")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := &Config{}
	cfg.Recommend.SearchBreadth = 50
	cfg.Recommend.Blacklist = []int64{1}
	cfg.Recommend.Rules = []string{`article.category == "politics"`}

	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatalf("EngineOptions: %v", err)
	}
	// 权重 + 检索宽度 + 过滤器
	if len(opts) != 3 {
		t.Errorf("got %d options, want 3", len(opts))
	}
}

func TestEngineOptionsBadRule(t *testing.T) {
	cfg := &Config{}
	cfg.Recommend.Rules = []string{`article.category ==`}
	if _, err := cfg.EngineOptions(); err == nil {
		t.Error("invalid rule should fail assembly")
	}
}

func TestBuildStoreDefaultsToMemory(t *testing.T) {
	cfg := &Config{}
	kv, err := cfg.BuildStore()
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	defer kv.Close()
	if kv.Name() != "memory" {
		t.Errorf("empty redis addr should fall back to memory store, got %s", kv.Name())
	}
}

func TestBuildEngagementDisabled(t *testing.T) {
	cfg := &Config{}
	src, err := cfg.BuildEngagement()
	if err != nil || src != nil {
		t.Errorf("no endpoint: got %v, %v", src, err)
	}
}
