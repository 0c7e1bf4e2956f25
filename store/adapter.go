package store

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/lingoread/recommender/core"
)

// DataAdapter 把 core.KeyValueStore 适配为推荐子系统的数据面接口
// （ArticleStore / UserStore / HistoryStore）。
//
// 存储布局：
//   - 文章：    Hash  {prefix}:articles          field=文章ID -> JSON
//   - 热度序：  ZSet  {prefix}:articles:rank     member=文章ID,
//     score = avg_completion_rate*1e9 + views（复合排序键：完成率优先，浏览量次之）
//   - 用户：    Key   {prefix}:user:{id}         -> JSON
//   - 历史：    Key   {prefix}:history:{userID}  -> JSON 数组（最新在前）
//
// embedding 以序列化 JSON 数组入库，读取时经 core.ParseEmbedding 统一解析；
// 解析失败的文章照常返回（embedding 为空），由索引构建决定跳过。
type DataAdapter struct {
	store  core.KeyValueStore
	prefix string
}

// NewDataAdapter 创建数据适配器；prefix 为空时使用 "reco"。
func NewDataAdapter(s core.KeyValueStore, prefix string) *DataAdapter {
	if prefix == "" {
		prefix = "reco"
	}
	return &DataAdapter{store: s, prefix: prefix}
}

// storedArticle 是文章的存储形态。
type storedArticle struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Content           string          `json:"content,omitempty"`
	Category          string          `json:"category,omitempty"`
	Source            string          `json:"source,omitempty"`
	SourceName        string          `json:"source_name,omitempty"`
	DifficultyLevel   string          `json:"difficulty_level,omitempty"`
	DifficultyScore   float64         `json:"difficulty_score,omitempty"`
	WordCount         int             `json:"word_count,omitempty"`
	Embedding         json.RawMessage `json:"embedding,omitempty"`
	Views             int64           `json:"views,omitempty"`
	AvgCompletionRate float64         `json:"avg_completion_rate,omitempty"`
	CreatedAt         string          `json:"created_at,omitempty"` // RFC3339
}

// storedUser 是用户记录的存储形态。
type storedUser struct {
	ID                  int64              `json:"id"`
	EnglishLevel        string             `json:"english_level,omitempty"`
	LearningGoal        string             `json:"learning_goal,omitempty"`
	Interests           map[string]float64 `json:"interests,omitempty"`
	UserEmbedding       json.RawMessage    `json:"user_embedding,omitempty"`
	EstimatedVocabulary int                `json:"estimated_vocabulary,omitempty"`
}

// storedRecord 是阅读历史的存储形态。
type storedRecord struct {
	UserID         int64   `json:"user_id"`
	ArticleID      int64   `json:"article_id"`
	CompletionRate float64 `json:"completion_rate,omitempty"`
	TimeSpent      int64   `json:"time_spent,omitempty"`
	Liked          int     `json:"liked,omitempty"`
	Bookmarked     bool    `json:"bookmarked,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

func (a *DataAdapter) articlesKey() string { return a.prefix + ":articles" }
func (a *DataAdapter) rankKey() string     { return a.prefix + ":articles:rank" }
func (a *DataAdapter) userKey(id int64) string {
	return a.prefix + ":user:" + strconv.FormatInt(id, 10)
}
func (a *DataAdapter) historyKey(userID int64) string {
	return a.prefix + ":history:" + strconv.FormatInt(userID, 10)
}

// rankScore 是冷启动排序的复合分：完成率压倒浏览量。
func rankScore(completion float64, views int64) float64 {
	return completion*1e9 + float64(views)
}

func decodeArticle(data []byte) (*core.ArticleRecord, error) {
	var sa storedArticle
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: malformed article record: "+err.Error())
	}

	record := &core.ArticleRecord{
		ID:                sa.ID,
		Title:             sa.Title,
		Content:           sa.Content,
		Category:          sa.Category,
		Source:            sa.Source,
		SourceName:        sa.SourceName,
		DifficultyLevel:   sa.DifficultyLevel,
		DifficultyScore:   sa.DifficultyScore,
		WordCount:         sa.WordCount,
		Views:             sa.Views,
		AvgCompletionRate: sa.AvgCompletionRate,
	}

	// embedding 解析失败不拖垮整篇文章：跳过向量，文章仍可进冷启动
	if len(sa.Embedding) > 0 {
		if vec, err := core.ParseEmbedding(sa.Embedding); err == nil {
			record.Embedding = vec
		}
	}
	if sa.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, sa.CreatedAt); err == nil {
			record.CreatedAt = t
		}
	}
	return record, nil
}

// GetArticle 实现 core.ArticleStore 接口；不存在返回 (nil, nil)。
func (a *DataAdapter) GetArticle(ctx context.Context, id int64) (*core.ArticleRecord, error) {
	data, err := a.store.HGet(ctx, a.articlesKey(), strconv.FormatInt(id, 10))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeArticle(data)
}

// GetArticles 实现 core.ArticleStore 接口；缺失/损坏的记录被跳过。
func (a *DataAdapter) GetArticles(ctx context.Context, ids []int64) (map[int64]*core.ArticleRecord, error) {
	out := make(map[int64]*core.ArticleRecord, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		data, err := a.store.HGet(ctx, a.articlesKey(), strconv.FormatInt(id, 10))
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		record, err := decodeArticle(data)
		if err != nil {
			continue
		}
		out[id] = record
	}
	return out, nil
}

// ListArticles 实现 core.ArticleStore 接口：全量快照，损坏的记录被跳过。
func (a *DataAdapter) ListArticles(ctx context.Context) ([]*core.ArticleRecord, error) {
	all, err := a.store.HGetAll(ctx, a.articlesKey())
	if err != nil {
		return nil, err
	}
	out := make([]*core.ArticleRecord, 0, len(all))
	for _, data := range all {
		record, err := decodeArticle(data)
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// ListByLevels 实现 core.ArticleStore 接口。
// 优先走热度 ZSet 拿现成的排序；ZSet 缺失时退化为全量加载后排序。
func (a *DataAdapter) ListByLevels(ctx context.Context, levels []string, excluded map[int64]struct{}, limit int) ([]*core.ArticleRecord, error) {
	levelSet := make(map[string]struct{}, len(levels))
	for _, l := range levels {
		levelSet[l] = struct{}{}
	}

	keep := func(record *core.ArticleRecord) bool {
		if record == nil {
			return false
		}
		if _, ok := levelSet[record.DifficultyLevel]; !ok {
			return false
		}
		if excluded != nil {
			if _, ok := excluded[record.ID]; ok {
				return false
			}
		}
		return true
	}

	members, err := a.store.ZRange(ctx, a.rankKey(), 0, -1)
	if err == nil && len(members) > 0 {
		out := make([]*core.ArticleRecord, 0, limit)
		for _, member := range members {
			id, err := strconv.ParseInt(member, 10, 64)
			if err != nil {
				continue
			}
			record, err := a.GetArticle(ctx, id)
			if err != nil {
				return nil, err
			}
			if !keep(record) {
				continue
			}
			out = append(out, record)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return out, nil
	}

	// fallback：全量加载后按 (完成率 desc, 浏览量 desc) 排序
	all, err := a.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.ArticleRecord, 0, len(all))
	for _, record := range all {
		if keep(record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgCompletionRate != out[j].AvgCompletionRate {
			return out[i].AvgCompletionRate > out[j].AvgCompletionRate
		}
		return out[i].Views > out[j].Views
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveArticle 写入/更新一篇文章并同步热度排序（平台摄取侧与测试使用）。
func (a *DataAdapter) SaveArticle(ctx context.Context, article *core.ArticleRecord) error {
	if article == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: nil article")
	}

	sa := storedArticle{
		ID:                article.ID,
		Title:             article.Title,
		Content:           article.Content,
		Category:          article.Category,
		Source:            article.Source,
		SourceName:        article.SourceName,
		DifficultyLevel:   article.DifficultyLevel,
		DifficultyScore:   article.DifficultyScore,
		WordCount:         article.WordCount,
		Views:             article.Views,
		AvgCompletionRate: article.AvgCompletionRate,
	}
	if len(article.Embedding) > 0 {
		raw, err := json.Marshal(article.Embedding)
		if err != nil {
			return err
		}
		sa.Embedding = raw
	}
	if !article.CreatedAt.IsZero() {
		sa.CreatedAt = article.CreatedAt.Format(time.RFC3339)
	}

	data, err := json.Marshal(&sa)
	if err != nil {
		return err
	}
	field := strconv.FormatInt(article.ID, 10)
	if err := a.store.HSet(ctx, a.articlesKey(), field, data); err != nil {
		return err
	}
	return a.store.ZAdd(ctx, a.rankKey(), rankScore(article.AvgCompletionRate, article.Views), field)
}

// GetUser 实现 core.UserStore 接口；不存在返回 (nil, nil)。
func (a *DataAdapter) GetUser(ctx context.Context, id int64) (*core.User, error) {
	data, err := a.store.Get(ctx, a.userKey(id))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var su storedUser
	if err := json.Unmarshal(data, &su); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: malformed user record: "+err.Error())
	}

	user := &core.User{
		ID:                  su.ID,
		EnglishLevel:        su.EnglishLevel,
		LearningGoal:        su.LearningGoal,
		Interests:           su.Interests,
		EstimatedVocabulary: su.EstimatedVocabulary,
	}
	if len(su.UserEmbedding) > 0 {
		if vec, err := core.ParseEmbedding(su.UserEmbedding); err == nil {
			user.Embedding = vec
		}
	}
	return user, nil
}

// SaveUser 写入用户记录（注册侧与测试使用）。
func (a *DataAdapter) SaveUser(ctx context.Context, user *core.User) error {
	if user == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: nil user")
	}
	su := storedUser{
		ID:                  user.ID,
		EnglishLevel:        user.EnglishLevel,
		LearningGoal:        user.LearningGoal,
		Interests:           user.Interests,
		EstimatedVocabulary: user.EstimatedVocabulary,
	}
	if len(user.Embedding) > 0 {
		raw, err := json.Marshal(user.Embedding)
		if err != nil {
			return err
		}
		su.UserEmbedding = raw
	}
	data, err := json.Marshal(&su)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.userKey(user.ID), data)
}

// SaveUserModel 实现 core.UserStore 接口：整条记录读-改-写，单次 Set 落盘，
// 序列化失败不触碰旧值（原子语义由单 key 覆盖写保证）。
func (a *DataAdapter) SaveUserModel(ctx context.Context, id int64, embedding []float64, interests map[string]float64) error {
	data, err := a.store.Get(ctx, a.userKey(id))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "store: user not found")
		}
		return err
	}

	var su storedUser
	if err := json.Unmarshal(data, &su); err != nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: malformed user record: "+err.Error())
	}

	raw, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	su.UserEmbedding = raw
	su.Interests = interests

	updated, err := json.Marshal(&su)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.userKey(id), updated)
}

// ListHistory 实现 core.HistoryStore 接口：最新在前。
func (a *DataAdapter) ListHistory(ctx context.Context, userID int64) ([]*core.ReadingRecord, error) {
	data, err := a.store.Get(ctx, a.historyKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var stored []storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: malformed history: "+err.Error())
	}

	out := make([]*core.ReadingRecord, 0, len(stored))
	for _, sr := range stored {
		record := &core.ReadingRecord{
			UserID:         sr.UserID,
			ArticleID:      sr.ArticleID,
			CompletionRate: sr.CompletionRate,
			TimeSpent:      sr.TimeSpent,
			Liked:          sr.Liked,
			Bookmarked:     sr.Bookmarked,
		}
		if sr.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, sr.CreatedAt); err == nil {
				record.CreatedAt = t
			}
		}
		out = append(out, record)
	}
	return out, nil
}

// AddHistory 头插一条阅读记录（阅读事件侧与测试使用）。
// 同一文章的旧记录被移除：历史保持"每篇文章一条、最新反馈覆盖"的语义。
func (a *DataAdapter) AddHistory(ctx context.Context, record *core.ReadingRecord) error {
	if record == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: nil reading record")
	}

	var stored []storedRecord
	if data, err := a.store.Get(ctx, a.historyKey(record.UserID)); err == nil {
		if err := json.Unmarshal(data, &stored); err != nil {
			stored = nil
		}
	} else if !core.IsStoreNotFound(err) {
		return err
	}

	sr := storedRecord{
		UserID:         record.UserID,
		ArticleID:      record.ArticleID,
		CompletionRate: record.CompletionRate,
		TimeSpent:      record.TimeSpent,
		Liked:          record.Liked,
		Bookmarked:     record.Bookmarked,
	}
	if !record.CreatedAt.IsZero() {
		sr.CreatedAt = record.CreatedAt.Format(time.RFC3339)
	}

	next := make([]storedRecord, 0, len(stored)+1)
	next = append(next, sr)
	for _, old := range stored {
		if old.ArticleID == record.ArticleID {
			continue
		}
		next = append(next, old)
	}

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.historyKey(record.UserID), data)
}

// 确保实现了领域数据接口
var (
	_ core.ArticleStore = (*DataAdapter)(nil)
	_ core.UserStore    = (*DataAdapter)(nil)
	_ core.HistoryStore = (*DataAdapter)(nil)
)
