// Package dsl 提供基于 CEL (Common Expression Language) 的规则解释器，
// 用于运营侧配置的候选排除规则。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/lingoread/recommender/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("article", cel.DynType),
			cel.Variable("user", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译后的 CEL 规则，可对 (article, user) 重复求值。
//
// 表达式语法（CEL 标准语法）：
//   - article.category == "politics"
//   - article.word_count > 2000 && user.level < 4
//   - article.difficulty_level in ["C1", "C2"]
//
// 表达式必须返回布尔值；返回 true 表示规则命中。
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译一条规则表达式。编译一次，求值多次。
func Compile(expr string) (*Rule, error) {
	if expr == "" {
		return nil, fmt.Errorf("dsl: empty expression")
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: env error: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program error: %w", err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式。
func (r *Rule) Expr() string { return r.expr }

// Match 对一篇文章与一个用户画像求值。
// 访问不存在的 key 会报错；表达式应使用 != null 做存在性检查。
func (r *Rule) Match(article *core.ArticleRecord, user *core.UserProfile) (bool, error) {
	out, _, err := r.prg.Eval(buildInput(article, user))
	if err != nil {
		return false, fmt.Errorf("dsl: eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(article *core.ArticleRecord, user *core.UserProfile) map[string]interface{} {
	articleMap := map[string]interface{}{}
	if article != nil {
		articleMap = map[string]interface{}{
			"id":                  article.ID,
			"category":            article.CategoryKey(),
			"difficulty_level":    article.DifficultyLevel,
			"difficulty_score":    article.DifficultyScore,
			"word_count":          article.WordCount,
			"views":               article.Views,
			"avg_completion_rate": article.AvgCompletionRate,
			"source":              article.Source,
		}
	}

	userMap := map[string]interface{}{}
	if user != nil {
		userMap = map[string]interface{}{
			"id":                   user.UserID,
			"english_level":        user.EnglishLevel,
			"level":                user.LevelNum(),
			"learning_goal":        user.LearningGoal,
			"interests":            user.Interests,
			"estimated_vocabulary": user.EstimatedVocabulary,
			"is_new":               user.IsNewUser(),
		}
	}

	return map[string]interface{}{
		"article": articleMap,
		"user":    userMap,
	}
}
