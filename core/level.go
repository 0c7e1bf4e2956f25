package core

// CEFR（欧洲语言共同参考框架）等级是文章难度与用户水平的统一刻度。
// A1（入门）到 C2（精通），映射为整数 1-6 便于差值计算。

// LevelMap 是 CEFR 等级到整数的映射。
var LevelMap = map[string]int{
	"A1": 1,
	"A2": 2,
	"B1": 3,
	"B2": 4,
	"C1": 5,
	"C2": 6,
}

// ReverseLevelMap 是整数到 CEFR 等级的反向映射。
var ReverseLevelMap = map[int]string{
	1: "A1",
	2: "A2",
	3: "B1",
	4: "B2",
	5: "C1",
	6: "C2",
}

// DefaultLevel 是等级缺失时的默认值。
const DefaultLevel = "B1"

// LevelNum 将 CEFR 等级转换为整数；未知等级返回默认等级（B1 = 3）。
func LevelNum(level string) int {
	if n, ok := LevelMap[level]; ok {
		return n
	}
	return LevelMap[DefaultLevel]
}

// LevelName 将整数转换为 CEFR 等级；越界返回 ("", false)。
func LevelName(n int) (string, bool) {
	name, ok := ReverseLevelMap[n]
	return name, ok
}

// LevelBand 返回以 level 为中心、上下各 offset 级的等级集合（越界自动截断）。
// 用于冷启动的可接受难度范围（例如 B1 ± 1 => [A2, B1, B2]）。
func LevelBand(level string, offset int) []string {
	center := LevelNum(level)
	band := make([]string, 0, 2*offset+1)
	for n := center - offset; n <= center+offset; n++ {
		if name, ok := ReverseLevelMap[n]; ok {
			band = append(band, name)
		}
	}
	return band
}
