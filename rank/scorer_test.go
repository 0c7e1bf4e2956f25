package rank

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lingoread/recommender/core"
)

func fixedScorer(now time.Time) *Scorer {
	s := NewScorer()
	s.Now = func() time.Time { return now }
	return s
}

func TestScoreLevelFit(t *testing.T) {
	now := time.Now()
	s := fixedScorer(now)

	tests := []struct {
		name         string
		userLevel    string
		articleLevel string
		wantFit      float64
		wantPenalty  float64
		wantExcluded bool
	}{
		{
			name:      "exact match",
			userLevel: "B1", articleLevel: "B1",
			wantFit: 1.0, wantPenalty: 0,
		},
		{
			name:      "one level harder is discounted",
			userLevel: "B1", articleLevel: "B2",
			wantFit: 0.76, wantPenalty: 0.2,
		},
		{
			name:      "two levels harder stays in",
			userLevel: "B2", articleLevel: "C2",
			wantFit: 0.52, wantPenalty: 0.4,
		},
		{
			name:      "three levels harder is excluded",
			userLevel: "A1", articleLevel: "B2",
			wantFit: 0.28, wantPenalty: 0.6, wantExcluded: true,
		},
		{
			name:      "two levels easier stays in",
			userLevel: "B2", articleLevel: "A2",
			wantFit: 0.4, wantPenalty: 0.5,
		},
		{
			name:      "one level easier has no discount",
			userLevel: "B1", articleLevel: "A2",
			wantFit: 0.7, wantPenalty: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := &core.ArticleRecord{DifficultyLevel: tt.articleLevel, CreatedAt: now}
			r := s.Score(article, 0, core.LevelNum(tt.userLevel), nil)

			if math.Abs(r.Breakdown.LevelFit-tt.wantFit) > 1e-9 {
				t.Errorf("fit = %v, want %v", r.Breakdown.LevelFit, tt.wantFit)
			}
			if math.Abs(r.LevelPenalty-tt.wantPenalty) > 1e-9 {
				t.Errorf("penalty = %v, want %v", r.LevelPenalty, tt.wantPenalty)
			}
			if r.Excluded() != tt.wantExcluded {
				t.Errorf("excluded = %v, want %v", r.Excluded(), tt.wantExcluded)
			}
		})
	}
}

func TestScoreSimilarityMapping(t *testing.T) {
	s := fixedScorer(time.Now())
	article := &core.ArticleRecord{DifficultyLevel: "B1"}

	tests := []struct {
		sim  float64
		want float64
	}{
		{1, 1},
		{0, 0.5},
		{-1, 0},
		{0.5, 0.75},
	}
	for _, tt := range tests {
		r := s.Score(article, tt.sim, 3, nil)
		if math.Abs(r.Breakdown.ContentSimilarity-tt.want) > 1e-9 {
			t.Errorf("sim %v -> %v, want %v", tt.sim, r.Breakdown.ContentSimilarity, tt.want)
		}
	}
}

func TestScoreInterestFloor(t *testing.T) {
	s := fixedScorer(time.Now())
	article := &core.ArticleRecord{Category: "Science", DifficultyLevel: "B1"}

	// 未接触类别保底 0.1
	r := s.Score(article, 0, 3, map[string]float64{"travel": 0.9})
	if r.Breakdown.InterestMatch != 0.1 {
		t.Errorf("unseen category interest = %v, want 0.1", r.Breakdown.InterestMatch)
	}

	// 明确为 0 的类别不垫底
	r = s.Score(article, 0, 3, map[string]float64{"science": 0})
	if r.Breakdown.InterestMatch != 0 {
		t.Errorf("explicit zero interest = %v, want 0", r.Breakdown.InterestMatch)
	}

	r = s.Score(article, 0, 3, map[string]float64{"science": 0.6})
	if r.Breakdown.InterestMatch != 0.6 {
		t.Errorf("interest = %v, want 0.6", r.Breakdown.InterestMatch)
	}
}

func TestScoreEngagement(t *testing.T) {
	s := fixedScorer(time.Now())

	article := &core.ArticleRecord{DifficultyLevel: "B1", AvgCompletionRate: 0.5, Views: 50}
	r := s.Score(article, 0, 3, nil)
	if math.Abs(r.Breakdown.Engagement-0.5) > 1e-9 {
		t.Errorf("engagement = %v, want 0.5", r.Breakdown.Engagement)
	}

	// 两个分量都截断到 1
	article = &core.ArticleRecord{DifficultyLevel: "B1", AvgCompletionRate: 3, Views: 100000}
	r = s.Score(article, 0, 3, nil)
	if math.Abs(r.Breakdown.Engagement-1) > 1e-9 {
		t.Errorf("engagement = %v, want 1 (clamped)", r.Breakdown.Engagement)
	}
}

func TestScoreFreshness(t *testing.T) {
	now := time.Now()
	s := fixedScorer(now)

	tests := []struct {
		name      string
		createdAt time.Time
		want      float64
	}{
		{"brand new", now, 1},
		{"15 days old", now.AddDate(0, 0, -15), 0.5},
		{"60 days old", now.AddDate(0, 0, -60), 0},
		{"unknown time is neutral", time.Time{}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := &core.ArticleRecord{DifficultyLevel: "B1", CreatedAt: tt.createdAt}
			r := s.Score(article, 0, 3, nil)
			if math.Abs(r.Breakdown.Freshness-tt.want) > 1e-6 {
				t.Errorf("freshness = %v, want %v", r.Breakdown.Freshness, tt.want)
			}
		})
	}
}

func TestScoreWeightedSum(t *testing.T) {
	now := time.Now()
	s := fixedScorer(now)

	article := &core.ArticleRecord{
		Category:          "science",
		DifficultyLevel:   "B1",
		AvgCompletionRate: 0.5,
		Views:             50,
		CreatedAt:         now,
	}
	r := s.Score(article, 1, 3, map[string]float64{"science": 0.5})

	// 1*0.35 + 1*0.25 + 0.5*0.2 + 0.5*0.1 + 1*0.1
	want := 0.35 + 0.25 + 0.1 + 0.05 + 0.1
	if math.Abs(r.Final-want) > 1e-9 {
		t.Errorf("final = %v, want %v", r.Final, want)
	}
}

func TestBuildReason(t *testing.T) {
	now := time.Now()
	s := fixedScorer(now)

	// 高相似 + 等级匹配：取前两条，用分隔符拼接
	article := &core.ArticleRecord{Category: "science", DifficultyLevel: "B1", CreatedAt: now}
	r := s.Score(article, 0.9, 3, map[string]float64{"science": 0.9})
	if !strings.Contains(r.Reason, "Similar to articles you liked") {
		t.Errorf("missing similarity reason: %q", r.Reason)
	}
	if !strings.Contains(r.Reason, "Perfect difficulty for your level") {
		t.Errorf("missing level reason: %q", r.Reason)
	}
	if got := len(strings.Split(r.Reason, " • ")); got != 2 {
		t.Errorf("reason should have exactly 2 parts, got %d: %q", got, r.Reason)
	}

	// 兴趣理由包含类别名
	article = &core.ArticleRecord{Category: "travel", DifficultyLevel: "C1", AvgCompletionRate: 0, CreatedAt: now.AddDate(0, 0, -20)}
	r = s.Score(article, -1, 3, map[string]float64{"travel": 0.5})
	if !strings.Contains(r.Reason, "Matches your interest in travel") {
		t.Errorf("missing interest reason: %q", r.Reason)
	}

	// 无信号时回退
	article = &core.ArticleRecord{Category: "x", DifficultyLevel: "C1", CreatedAt: now.AddDate(0, 0, -29)}
	r = s.Score(article, -1, 3, map[string]float64{"x": 0})
	if r.Reason != "Recommended for you" {
		t.Errorf("fallback reason = %q", r.Reason)
	}
}
