package feast

import (
	"context"

	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/pkg/conv"
)

// 文章参与度特征在 Feast 中的默认注册名。
const (
	DefaultEntityKey      = "article_id"
	DefaultViewsFeature   = "article_stats:views"
	DefaultCompletionFeat = "article_stats:avg_completion_rate"
)

// EngagementAdapter 把 Feast 在线特征库适配为 core.EngagementSource：
// 批量拉取文章的实时浏览量与平均完成率，供索引元数据刷新使用。
//
// 特征名与实体键可定制，零值时用上面的默认注册名。
type EngagementAdapter struct {
	Client Client

	// EntityKey 实体键名，默认 "article_id"
	EntityKey string

	// ViewsFeature 浏览量特征名，默认 "article_stats:views"
	ViewsFeature string

	// CompletionFeature 平均完成率特征名，默认 "article_stats:avg_completion_rate"
	CompletionFeature string
}

// NewEngagementAdapter 用默认特征名创建参与度适配器。
func NewEngagementAdapter(client Client) *EngagementAdapter {
	return &EngagementAdapter{Client: client}
}

func (a *EngagementAdapter) entityKey() string {
	if a.EntityKey != "" {
		return a.EntityKey
	}
	return DefaultEntityKey
}

func (a *EngagementAdapter) viewsFeature() string {
	if a.ViewsFeature != "" {
		return a.ViewsFeature
	}
	return DefaultViewsFeature
}

func (a *EngagementAdapter) completionFeature() string {
	if a.CompletionFeature != "" {
		return a.CompletionFeature
	}
	return DefaultCompletionFeat
}

// ArticleStats 实现 core.EngagementSource 接口。
// 特征库中没有的文章不出现在结果里；单条特征缺失按零值处理。
func (a *EngagementAdapter) ArticleStats(ctx context.Context, ids []int64) (map[int64]core.EngagementStats, error) {
	if len(ids) == 0 {
		return map[int64]core.EngagementStats{}, nil
	}

	entityRows := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		entityRows[i] = map[string]interface{}{a.entityKey(): id}
	}

	resp, err := a.Client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
		Features:   []string{a.viewsFeature(), a.completionFeature()},
		EntityRows: entityRows,
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable, "feast: "+err.Error())
	}

	out := make(map[int64]core.EngagementStats, len(ids))
	for i, vec := range resp.Vectors {
		if i >= len(ids) {
			break
		}
		if len(vec.Values) == 0 {
			continue
		}
		stats := core.EngagementStats{}
		if raw, ok := vec.Values[a.viewsFeature()]; ok {
			if n, ok := conv.ToInt(raw); ok {
				stats.Views = int64(n)
			}
		}
		if raw, ok := vec.Values[a.completionFeature()]; ok {
			if f, ok := conv.ToFloat64(raw); ok {
				stats.AvgCompletionRate = f
			}
		}
		out[ids[i]] = stats
	}
	return out, nil
}

// Close 实现 core.EngagementSource 接口。
func (a *EngagementAdapter) Close() error {
	if a.Client == nil {
		return nil
	}
	return a.Client.Close()
}

// 确保实现了领域接口
var _ core.EngagementSource = (*EngagementAdapter)(nil)
