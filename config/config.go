// Package config 提供推荐子系统的配置加载（YAML/JSON）与组件装配。
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/engine"
	"github.com/lingoread/recommender/feast"
	"github.com/lingoread/recommender/filter"
	"github.com/lingoread/recommender/pkg/conv"
	"github.com/lingoread/recommender/rank"
	"github.com/lingoread/recommender/store"
)

// Config 是推荐子系统的配置结构（支持 YAML/JSON）。
type Config struct {
	Recommend RecommendConfig `yaml:"recommend" json:"recommend"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Feast     FeastConfig     `yaml:"feast" json:"feast"`
}

// RecommendConfig 是推荐链路的策略配置。
type RecommendConfig struct {
	// Weights 打分融合权重，key 为 content_similarity / level_fit /
	// interest_match / engagement / freshness；缺省项用默认权重。
	Weights map[string]interface{} `yaml:"weights" json:"weights"`

	// SearchBreadth 内容检索宽度；0 用默认值。
	SearchBreadth int `yaml:"search_breadth" json:"search_breadth"`

	// MaxPerCategory 冷启动单类别上限；0 用默认值。
	MaxPerCategory int `yaml:"max_per_category" json:"max_per_category"`

	// Rules 运营过滤规则（CEL 表达式，命中即剔除）。
	Rules []string `yaml:"rules" json:"rules"`

	// Blacklist 文章黑名单。
	Blacklist []int64 `yaml:"blacklist" json:"blacklist"`
}

// RedisConfig 是 Redis 存储配置；Addr 为空时使用内存存储。
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`

	// KeyPrefix 数据适配器的 key 前缀；空用默认 "reco"。
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// FeastConfig 是 Feast 在线特征库配置；Endpoint 为空时不启用。
type FeastConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Project  string `yaml:"project" json:"project"`
	Token    string `yaml:"token" json:"token"`
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// RankWeights 把配置的权重 map 合入默认权重。
func (c *RecommendConfig) RankWeights() rank.Weights {
	w := rank.DefaultWeights()
	values := conv.MapToFloat64(c.Weights)
	if v, ok := values["content_similarity"]; ok {
		w.ContentSimilarity = v
	}
	if v, ok := values["level_fit"]; ok {
		w.LevelFit = v
	}
	if v, ok := values["interest_match"]; ok {
		w.InterestMatch = v
	}
	if v, ok := values["engagement"]; ok {
		w.Engagement = v
	}
	if v, ok := values["freshness"]; ok {
		w.Freshness = v
	}
	return w
}

// EngineOptions 根据配置装配引擎选项（权重、检索宽度、过滤器等）。
// 规则表达式非法时返回错误。
func (c *Config) EngineOptions() ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithWeights(c.Recommend.RankWeights()),
	}
	if c.Recommend.SearchBreadth > 0 {
		opts = append(opts, engine.WithSearchBreadth(c.Recommend.SearchBreadth))
	}
	if c.Recommend.MaxPerCategory > 0 {
		opts = append(opts, engine.WithMaxPerCategory(c.Recommend.MaxPerCategory))
	}

	var filters []filter.Filter
	if len(c.Recommend.Blacklist) > 0 {
		filters = append(filters, &filter.Blacklist{IDs: c.Recommend.Blacklist})
	}
	if len(c.Recommend.Rules) > 0 {
		rf, err := filter.NewRuleFilter(c.Recommend.Rules)
		if err != nil {
			return nil, fmt.Errorf("build rule filter: %w", err)
		}
		filters = append(filters, rf)
	}
	if len(filters) > 0 {
		opts = append(opts, engine.WithFilters(filters...))
	}

	if c.Feast.Endpoint != "" {
		src, err := c.BuildEngagement()
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithEngagement(src))
	}

	return opts, nil
}

// BuildStore 根据配置创建 KV 存储：配置了 Redis 地址用 Redis，否则用内存。
func (c *Config) BuildStore() (core.KeyValueStore, error) {
	if c.Redis.Addr == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewRedisStore(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
}

// BuildDataAdapter 根据配置创建数据适配器。
func (c *Config) BuildDataAdapter() (*store.DataAdapter, error) {
	kv, err := c.BuildStore()
	if err != nil {
		return nil, err
	}
	return store.NewDataAdapter(kv, c.Redis.KeyPrefix), nil
}

// BuildEngagement 根据配置创建 Feast 参与度来源；未配置 Endpoint 返回 (nil, nil)。
func (c *Config) BuildEngagement() (core.EngagementSource, error) {
	if c.Feast.Endpoint == "" {
		return nil, nil
	}
	var opts []feast.ClientOption
	if c.Feast.Token != "" {
		opts = append(opts, feast.WithStaticToken(c.Feast.Token))
	}
	client, err := feast.NewGrpcClient(c.Feast.Endpoint, c.Feast.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("build feast client: %w", err)
	}
	return feast.NewEngagementAdapter(client), nil
}
