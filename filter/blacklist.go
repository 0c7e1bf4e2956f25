package filter

import (
	"context"
	"encoding/json"

	"github.com/lingoread/recommender/core"
)

// Blacklist 是黑名单过滤器：剔除运营下架/屏蔽的文章。
type Blacklist struct {
	// IDs 是内存中的黑名单文章 ID 列表
	IDs []int64

	// Store 用于从存储中读取黑名单（可选），Key 为黑名单 key
	Store core.Store
	Key   string
}

func (f *Blacklist) Name() string { return "filter.blacklist" }

// ShouldFilter 实现 Filter 接口。
func (f *Blacklist) ShouldFilter(ctx context.Context, _ *core.UserProfile, article *core.ArticleRecord) (bool, error) {
	if article == nil {
		return true, nil
	}

	for _, id := range f.IDs {
		if article.ID == id {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		data, err := f.Store.Get(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, err
		}
		var ids []int64
		if err := json.Unmarshal(data, &ids); err != nil {
			return false, nil
		}
		for _, id := range ids {
			if article.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}

var _ Filter = (*Blacklist)(nil)
