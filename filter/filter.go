// Package filter 提供候选文章的过滤器：黑名单、运营规则等。
package filter

import (
	"context"

	"github.com/lingoread/recommender/core"
)

// Filter 是过滤器的抽象接口，用于判断一篇候选文章是否应该被剔除。
// 返回 true 表示剔除，false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 article 对该用户是否应该被剔除
	ShouldFilter(ctx context.Context, user *core.UserProfile, article *core.ArticleRecord) (bool, error)
}

// Apply 依次应用过滤器；任一命中即剔除。
// 单个过滤器出错时跳过该过滤器（不中断推荐链路）。
func Apply(ctx context.Context, filters []Filter, user *core.UserProfile, article *core.ArticleRecord) bool {
	for _, f := range filters {
		ok, err := f.ShouldFilter(ctx, user, article)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
