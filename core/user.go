package core

// User 是存储层中的用户记录（推荐子系统只读取其中与推荐相关的字段）。
// Embedding 与 Interests 会在显式反馈事件后由 Engine 回写，
// 让冷启动用户下次能更快进入个性化路径。
type User struct {
	ID           int64
	EnglishLevel string // CEFR 等级，缺失按 B1 处理
	LearningGoal string

	// Interests 是注册/设置页声明的类别偏好（category -> weight），
	// 在没有行为数据时作为兴趣权重的回退。
	Interests map[string]float64

	// Embedding 是上次回写的用户向量（已归一化）；nil 表示从未派生成功。
	Embedding []float64

	EstimatedVocabulary int
}

// LevelNum 返回用户 CEFR 等级对应的整数（缺失按 B1 处理）。
func (u *User) LevelNum() int {
	if u == nil {
		return LevelNum(DefaultLevel)
	}
	return LevelNum(u.EnglishLevel)
}
