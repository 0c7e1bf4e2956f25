package filter

import (
	"context"

	"github.com/lingoread/recommender/core"
	"github.com/lingoread/recommender/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器。
// 规则由运营侧配置（例如把成人向类别挡在低龄学习者之外），
// 任一规则命中即剔除。
type RuleFilter struct {
	rules []*dsl.Rule
}

// NewRuleFilter 编译一组规则表达式；任一表达式非法则整体失败。
func NewRuleFilter(exprs []string) (*RuleFilter, error) {
	rules := make([]*dsl.Rule, 0, len(exprs))
	for _, expr := range exprs {
		rule, err := dsl.Compile(expr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return &RuleFilter{rules: rules}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

// ShouldFilter 实现 Filter 接口。单条规则求值出错时忽略该规则。
func (f *RuleFilter) ShouldFilter(_ context.Context, user *core.UserProfile, article *core.ArticleRecord) (bool, error) {
	for _, rule := range f.rules {
		hit, err := rule.Match(article, user)
		if err != nil {
			continue
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

var _ Filter = (*RuleFilter)(nil)
